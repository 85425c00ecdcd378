package fallback

import (
	"context"
	"encoding/json"
	"sync"

	"cashflow-loans/internal/models"
)

// MemoryStore keeps records in process. Not durable.
type MemoryStore struct {
	mu      sync.Mutex
	records [][]byte
	err     error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Backend() string { return "memory" }

// FailWith makes every later Append return err. Pass nil to recover.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemoryStore) Append(_ context.Context, rec *models.FallbackRecord) (err error) {
	defer func() { observe(s.Backend(), err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	data, err := encode(rec)
	if err != nil {
		return err
	}
	s.records = append(s.records, data)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// Records decodes everything appended so far, oldest first.
func (s *MemoryStore) Records() []models.FallbackRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.FallbackRecord, 0, len(s.records))
	for _, raw := range s.records {
		var rec models.FallbackRecord
		if err := json.Unmarshal(raw, &rec); err == nil {
			out = append(out, rec)
		}
	}
	return out
}

// Len returns the number of appended records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

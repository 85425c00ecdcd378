package fallback

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"cashflow-loans/internal/models"
)

// ElasticsearchStore creates one document per record, keyed by lead id.
type ElasticsearchStore struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchStore(client *elasticsearch.Client, index string) *ElasticsearchStore {
	return &ElasticsearchStore{client: client, index: index}
}

func (s *ElasticsearchStore) Backend() string { return "elasticsearch" }

func (s *ElasticsearchStore) Append(ctx context.Context, rec *models.FallbackRecord) (err error) {
	defer func() { observe(s.Backend(), err) }()

	data, err := encode(rec)
	if err != nil {
		return err
	}

	req := esapi.CreateRequest{
		Index:      s.index,
		DocumentID: rec.ID,
		Body:       bytes.NewReader(data),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("failed to index lead %s: %w", rec.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("failed to index lead %s (status %d): %s", rec.ID, res.StatusCode, string(body))
	}
	return nil
}

func (s *ElasticsearchStore) Ping(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}

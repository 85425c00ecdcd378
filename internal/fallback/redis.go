package fallback

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"cashflow-loans/internal/models"
)

// RedisStore appends JSON records to a Redis list with RPUSH.
type RedisStore struct {
	client redis.Cmdable
	key    string
}

func NewRedisStore(client redis.Cmdable, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Backend() string { return "redis" }

func (s *RedisStore) Append(ctx context.Context, rec *models.FallbackRecord) (err error) {
	defer func() { observe(s.Backend(), err) }()

	data, err := encode(rec)
	if err != nil {
		return err
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("failed to append lead %s to %s: %w", rec.ID, s.key, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Package fallback persists leads locally when the CRM cannot be reached.
// Stores are append-only; nothing in the portal reads records back.
package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"cashflow-loans/internal/common/config"
	"cashflow-loans/internal/common/database"
	"cashflow-loans/internal/common/logger"
	"cashflow-loans/internal/common/metrics"
	"cashflow-loans/internal/models"
)

const DefaultKey = "cashflow_leads"

// Store appends fallback records.
type Store interface {
	Append(ctx context.Context, rec *models.FallbackRecord) error
	Ping(ctx context.Context) error
	Backend() string
}

// Connections carries the already-opened clients a backend may need.
type Connections struct {
	Redis         *database.RedisClient
	Postgres      *database.PostgresClient
	Elasticsearch *database.ElasticsearchClient
}

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// New picks the backend named in cfg.
func New(cfg config.FallbackConfig, conns Connections, log logger.Logger) (Store, error) {
	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}

	switch cfg.Backend {
	case "redis", "":
		if conns.Redis == nil {
			return nil, fmt.Errorf("redis fallback needs a redis connection")
		}
		return NewRedisStore(conns.Redis.Client, key), nil
	case "postgres":
		if conns.Postgres == nil {
			return nil, fmt.Errorf("postgres fallback needs a postgres connection")
		}
		return NewPostgresStore(conns.Postgres.DB, key)
	case "elasticsearch":
		if conns.Elasticsearch == nil {
			return nil, fmt.Errorf("elasticsearch fallback needs an elasticsearch connection")
		}
		return NewElasticsearchStore(conns.Elasticsearch.Client, key), nil
	case "memory":
		log.Warn("Using in-memory fallback store; leads saved during CRM outages are lost on restart", nil)
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown fallback backend %q", cfg.Backend)
	}
}

func encode(rec *models.FallbackRecord) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("nil fallback record")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fallback record: %w", err)
	}
	return data, nil
}

func observe(backend string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.FallbackWrites.WithLabelValues(backend, result).Inc()
}

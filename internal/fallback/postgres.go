package fallback

import (
	"context"
	"database/sql"
	"fmt"

	"cashflow-loans/internal/models"
)

// PostgresStore inserts one row per record; the full record is kept as JSONB.
type PostgresStore struct {
	db          *sql.DB
	table       string
	insertQuery string
}

func NewPostgresStore(db *sql.DB, table string) (*PostgresStore, error) {
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("invalid fallback table name %q", table)
	}
	return &PostgresStore{
		db:    db,
		table: table,
		insertQuery: fmt.Sprintf(
			`INSERT INTO %s (id, schema_version, status, saved_at, record) VALUES ($1, $2, $3, $4, $5)`,
			table,
		),
	}, nil
}

func (s *PostgresStore) Backend() string { return "postgres" }

// EnsureSchema creates the table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id             UUID PRIMARY KEY,
	schema_version INTEGER NOT NULL,
	status         TEXT NOT NULL,
	saved_at       TIMESTAMPTZ NOT NULL,
	record         JSONB NOT NULL
)`, s.table))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", s.table, err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, rec *models.FallbackRecord) (err error) {
	defer func() { observe(s.Backend(), err) }()

	data, err := encode(rec)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.insertQuery,
		rec.ID, rec.SchemaVersion, rec.Status, rec.SavedAt, string(data),
	); err != nil {
		return fmt.Errorf("failed to insert lead %s: %w", rec.ID, err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

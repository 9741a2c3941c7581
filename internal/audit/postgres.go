package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the sink uses, as an interface so tests
// can substitute pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresSink persists run entries to Postgres. Used when several operators
// share one audit trail.
type PostgresSink struct {
	pool Pool
}

// NewPostgres connects, migrates, and returns the sink.
func NewPostgres(ctx context.Context, connString string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "audit: connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "audit: ping postgres")
	}

	s := &PostgresSink{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresWithPool wraps an existing pool (tests use pgxmock here).
func NewPostgresWithPool(pool Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS discovery_runs (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	request      JSONB,
	strategy     TEXT,
	degraded     BOOLEAN NOT NULL DEFAULT FALSE,
	record_count INTEGER NOT NULL DEFAULT 0,
	duration_ms  BIGINT NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_discovery_runs_kind ON discovery_runs(kind);
CREATE INDEX IF NOT EXISTS idx_discovery_runs_created_at ON discovery_runs(created_at);
`

func (s *PostgresSink) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "audit: migrate postgres")
}

func (s *PostgresSink) RecordRun(ctx context.Context, entry RunEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	requestJSON, err := json.Marshal(entry.Request)
	if err != nil {
		return eris.Wrap(err, "audit: marshal request")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO discovery_runs (id, kind, request, strategy, degraded, record_count, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.Kind, requestJSON, entry.Strategy,
		entry.Degraded, entry.RecordCount, entry.DurationMS, entry.CreatedAt,
	)
	return eris.Wrap(err, "audit: insert run")
}

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}

package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteSink persists run entries to a local SQLite file. The default sink
// for CLI use: zero setup, one file next to the config.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLite opens (and migrates) a SQLite audit database at dsn.
func NewSQLite(ctx context.Context, dsn string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "audit: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "audit: exec %s", pragma)
		}
	}

	s := &SQLiteSink{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS discovery_runs (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	request      TEXT,
	strategy     TEXT,
	degraded     INTEGER NOT NULL DEFAULT 0,
	record_count INTEGER NOT NULL DEFAULT 0,
	duration_ms  INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_discovery_runs_kind ON discovery_runs(kind);
CREATE INDEX IF NOT EXISTS idx_discovery_runs_created_at ON discovery_runs(created_at);
`

func (s *SQLiteSink) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "audit: migrate sqlite")
}

func (s *SQLiteSink) RecordRun(ctx context.Context, entry RunEntry) error {
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO discovery_runs (id, kind, request, strategy, degraded, record_count, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Kind, string(requestJSON), entry.Strategy,
		boolToInt(entry.Degraded), entry.RecordCount, entry.DurationMS, entry.CreatedAt,
	)
	return eris.Wrap(err, "audit: insert run")
}

// RecentRuns returns the newest runs, newest first.
func (s *SQLiteSink) RecentRuns(ctx context.Context, limit int) ([]RunEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, request, strategy, degraded, record_count, duration_ms, created_at
		 FROM discovery_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "audit: query runs")
	}
	defer rows.Close() //nolint:errcheck

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		var requestJSON string
		var degraded int
		if err := rows.Scan(&e.ID, &e.Kind, &requestJSON, &e.Strategy, &degraded, &e.RecordCount, &e.DurationMS, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "audit: scan run")
		}
		e.Degraded = degraded != 0
		if requestJSON != "" {
			var req any
			if err := json.Unmarshal([]byte(requestJSON), &req); err == nil {
				e.Request = req
			}
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "audit: iterate runs")
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

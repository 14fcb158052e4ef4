// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool connects to Postgres and verifies the connection.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return pool, nil
}

// Migrate creates the snapshot and journal tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	const kvTable = `
CREATE TABLE IF NOT EXISTS kv_store (
    key        TEXT PRIMARY KEY,
    value      JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
	const matchesTable = `
CREATE TABLE IF NOT EXISTS matches (
    id          TEXT PRIMARY KEY,
    status      TEXT NOT NULL DEFAULT 'in_progress',
    winner_id   TEXT,
    start_time  TIMESTAMPTZ NOT NULL DEFAULT now(),
    end_time    TIMESTAMPTZ
);
`
	const matchEventsTable = `
CREATE TABLE IF NOT EXISTS match_events (
    id           BIGSERIAL PRIMARY KEY,
    match_id     TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
    event_index  INT NOT NULL,
    player_id    TEXT,
    event_type   TEXT NOT NULL,
    payload      JSONB NOT NULL DEFAULT '{}'::jsonb,
    recorded_at  TIMESTAMPTZ NOT NULL
);
`
	// Re-delivered journal records share (match_id, event_index) and are skipped.
	const matchEventsIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS match_events_match_index
    ON match_events (match_id, event_index);
`
	for _, stmt := range []string{kvTable, matchesTable, matchEventsTable, matchEventsIndex} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

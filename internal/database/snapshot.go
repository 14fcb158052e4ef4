// internal/database/snapshot.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SnapshotStore keeps the session blob in one kv_store row.
type SnapshotStore struct {
	pool *pgxpool.Pool
	key  string
}

// NewSnapshotStore wraps an open pool. Migrate must have run.
func NewSnapshotStore(pool *pgxpool.Pool, key string) *SnapshotStore {
	return &SnapshotStore{pool: pool, key: key}
}

func (s *SnapshotStore) Load(ctx context.Context) ([]byte, bool, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT value::text FROM kv_store WHERE key = $1`, s.key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load snapshot: %w", err)
	}
	return data, true, nil
}

func (s *SnapshotStore) Save(ctx context.Context, data []byte) error {
	q := `
	INSERT INTO kv_store (key, value, updated_at)
	VALUES ($1, $2::jsonb, now())
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, s.key, string(data))
		return execErr
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, s.key); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *SnapshotStore) Close() error {
	s.pool.Close()
	return nil
}

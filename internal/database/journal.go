// internal/database/journal.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/dartkeeper/internal/models"
)

// Journal event types that close a match row.
const (
	eventMatchFinished  = "match_finished"
	eventMatchAbandoned = "match_abandoned"
)

// InsertMatchEvents writes a batch of journal records in one transaction,
// upserting the owning match rows and closing those that finished.
func InsertMatchEvents(ctx context.Context, pool *pgxpool.Pool, records []models.MatchEventRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertMatchEventTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertMatchEventTx: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert match events: %w", err)
	}
	return nil
}

func insertMatchEventTx(ctx context.Context, tx pgx.Tx, rec models.MatchEventRecord) error {
	if rec.MatchID == "" {
		// registry events carry no match
		return nil
	}
	upsertMatchQ := `
		INSERT INTO matches (id, status, start_time)
		VALUES ($1, 'in_progress', $2)
		ON CONFLICT (id) DO NOTHING
	`
	recordedAt := time.UnixMilli(rec.Timestamp).UTC()
	if _, err := tx.Exec(ctx, upsertMatchQ, rec.MatchID, recordedAt); err != nil {
		return err
	}

	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return err
	}
	insertQ := `
		INSERT INTO match_events (match_id, event_index, player_id, event_type, payload, recorded_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
		ON CONFLICT (match_id, event_index) DO NOTHING
	`
	if _, err := tx.Exec(ctx, insertQ, rec.MatchID, rec.EventIndex, rec.PlayerID, rec.EventType, payload, recordedAt); err != nil {
		return err
	}

	switch rec.EventType {
	case eventMatchFinished:
		_, err = tx.Exec(ctx, `
			UPDATE matches SET status = 'finished', winner_id = NULLIF($2, ''), end_time = $3
			WHERE id = $1
		`, rec.MatchID, rec.PlayerID, recordedAt)
	case eventMatchAbandoned:
		_, err = tx.Exec(ctx, `
			UPDATE matches SET status = 'abandoned', end_time = $2
			WHERE id = $1
		`, rec.MatchID, recordedAt)
	default:
		_, err = tx.Exec(ctx, `UPDATE matches SET status = 'in_progress' WHERE id = $1 AND status = 'idle'`, rec.MatchID)
	}
	return err
}

// MarkMatchIdle flags a match that is still in progress as idle.
func MarkMatchIdle(ctx context.Context, pool *pgxpool.Pool, matchID string) (bool, error) {
	tag, err := pool.Exec(ctx, `
		UPDATE matches SET status = 'idle'
		WHERE id = $1 AND status = 'in_progress'
	`, matchID)
	if err != nil {
		return false, fmt.Errorf("mark match %s idle: %w", matchID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// JournalWriter binds the journal queries to a pool.
type JournalWriter struct {
	Pool *pgxpool.Pool
}

func (j JournalWriter) InsertMatchEvents(ctx context.Context, records []models.MatchEventRecord) error {
	return InsertMatchEvents(ctx, j.Pool, records)
}

func (j JournalWriter) MarkMatchIdle(ctx context.Context, matchID string) (bool, error) {
	return MarkMatchIdle(ctx, j.Pool, matchID)
}

package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/dartkeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func poolOrSkip(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		t.Skipf("postgres not reachable: %v", err)
	}
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool))
	return pool
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	pool := poolOrSkip(t)
	ctx := context.Background()
	store := NewSnapshotStore(pool, "test_"+uuid.NewString())
	t.Cleanup(func() { _ = store.Clear(ctx) })

	_, found, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Save(ctx, []byte(`{"savedGames":[]}`)))
	require.NoError(t, store.Save(ctx, []byte(`{"savedGames":[],"registeredPlayers":[]}`)))
	data, found, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"savedGames":[],"registeredPlayers":[]}`, string(data))
}

func TestJournalWriterLifecycle(t *testing.T) {
	pool := poolOrSkip(t)
	ctx := context.Background()
	w := JournalWriter{Pool: pool}
	matchID := uuid.NewString()
	t.Cleanup(func() { _, _ = pool.Exec(ctx, `DELETE FROM matches WHERE id = $1`, matchID) })

	now := time.Now().UnixMilli()
	require.NoError(t, w.InsertMatchEvents(ctx, []models.MatchEventRecord{
		{MatchID: matchID, EventIndex: 1, EventType: "match_started", Timestamp: now},
		{MatchID: "", EventIndex: 1, EventType: "player_registered", Timestamp: now},
	}))

	idle, err := w.MarkMatchIdle(ctx, matchID)
	require.NoError(t, err)
	assert.True(t, idle)

	require.NoError(t, w.InsertMatchEvents(ctx, []models.MatchEventRecord{
		{MatchID: matchID, EventIndex: 2, PlayerID: "p1", EventType: "match_finished", Timestamp: now + 10},
	}))

	var status, winner string
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT status, winner_id FROM matches WHERE id = $1`, matchID).Scan(&status, &winner))
	assert.Equal(t, "finished", status)
	assert.Equal(t, "p1", winner)

	idle, err = w.MarkMatchIdle(ctx, matchID)
	require.NoError(t, err)
	assert.False(t, idle, "finished matches are never idle")

	// a re-delivered record is ignored
	require.NoError(t, w.InsertMatchEvents(ctx, []models.MatchEventRecord{
		{MatchID: matchID, EventIndex: 2, PlayerID: "p1", EventType: "match_finished", Timestamp: now + 10},
	}))

	var events int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT count(*) FROM match_events WHERE match_id = $1`, matchID).Scan(&events))
	assert.Equal(t, 2, events)
}

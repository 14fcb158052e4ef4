// internal/game/session_store_test.go
package game

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/jason-s-yu/dartkeeper/internal/models"
	"github.com/jason-s-yu/dartkeeper/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return eventTypes(p.events)
}

// failingStore loads nothing and refuses every write.
type failingStore struct{ storage.MemoryStore }

func (f *failingStore) Save(context.Context, []byte) error { return errors.New("disk full") }

func setupSessionStore(t *testing.T, backend storage.Store) (*SessionStore, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	ss := NewSessionStore(newTestEngine(), backend, logrus.NewEntry(logger))
	require.NoError(t, ss.Load(context.Background()))
	return ss, hook
}

// startedStoreMatch registers Alice and Bob into a forming 301 match and starts it.
func startedStoreMatch(t *testing.T, ss *SessionStore) (alice, bob string) {
	t.Helper()
	ctx := context.Background()
	_, err := ss.CreateMatch(ctx, models.GameType301)
	require.NoError(t, err)
	a, err := ss.RegisterPlayer(ctx, "Alice")
	require.NoError(t, err)
	b, err := ss.RegisterPlayer(ctx, "Bob")
	require.NoError(t, err)
	require.NoError(t, ss.Start(ctx))
	return a.ID, b.ID
}

func TestSessionStore_LoadMissingStartsFresh(t *testing.T) {
	ss, _ := setupSessionStore(t, storage.NewMemoryStore())

	assert.Equal(t, PhaseNoMatch, ss.Phase())
	assert.Equal(t, models.NewSession(), ss.Snapshot())
}

func TestSessionStore_LoadCorruptStartsFresh(t *testing.T) {
	backend := storage.NewMemoryStore()
	require.NoError(t, backend.Save(context.Background(), []byte("{not json")))

	ss, hook := setupSessionStore(t, backend)

	assert.Equal(t, models.NewSession(), ss.Snapshot())
	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warned = true
		}
	}
	assert.True(t, warned, "corrupt snapshot is logged")
}

func TestSessionStore_PersistsEveryCommit(t *testing.T) {
	backend := storage.NewMemoryStore()
	ss, _ := setupSessionStore(t, backend)
	alice, _ := startedStoreMatch(t, ss)
	saves := backend.Saves()

	require.NoError(t, ss.SubmitTurn(context.Background(), 100))
	assert.Equal(t, saves+1, backend.Saves())

	data, found, err := backend.Load(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	var stored models.Session
	require.NoError(t, json.Unmarshal(data, &stored))
	require.NotNil(t, stored.CurrentGame)
	assert.Equal(t, alice, stored.CurrentGame.Players[0].ID)
	assert.Equal(t, 201, stored.CurrentGame.Players[0].RemainingScore)
	assert.Equal(t, models.MatchStatusInProgress, stored.CurrentGame.Status)

	// a second store over the same backend resumes the match
	reloaded, _ := setupSessionStore(t, backend)
	assert.Equal(t, PhaseInProgress, reloaded.Phase())
	assert.Equal(t, ss.Snapshot(), reloaded.Snapshot())
}

func TestSessionStore_RegisterEnrollsIntoFormingMatch(t *testing.T) {
	ss, _ := setupSessionStore(t, storage.NewMemoryStore())
	alice, bob := startedStoreMatch(t, ss)

	m := ss.Snapshot().CurrentGame
	require.NotNil(t, m)
	assert.True(t, m.HasPlayer(alice))
	assert.True(t, m.HasPlayer(bob))
	assert.True(t, ss.IsCurrentPlayer(alice))
	assert.False(t, ss.IsCurrentPlayer(bob))
}

func TestSessionStore_DartsCommitTurnOnThirdDart(t *testing.T) {
	ss, _ := setupSessionStore(t, storage.NewMemoryStore())
	alice, bob := startedStoreMatch(t, ss)
	ctx := context.Background()

	res, err := ss.RecordDart(ctx, 20, 3)
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Equal(t, alice, res.PlayerID)
	assert.Equal(t, 60, res.Subtotal)

	_, err = ss.RecordDart(ctx, 20, 3)
	require.NoError(t, err)
	view := ss.View()
	assert.Equal(t, 2, view.Turn.CurrentSlot)
	assert.Equal(t, 120, view.Turn.Subtotal)
	assert.Equal(t, 301, view.Match.Players[0].RemainingScore, "nothing applied before the third dart")

	res, err = ss.RecordDart(ctx, 25, 2)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, 170, res.Total)
	assert.Len(t, res.Darts, 3)
	assert.False(t, res.Finished)

	m := ss.Snapshot().CurrentGame
	assert.Equal(t, 131, m.Players[0].RemainingScore)
	assert.True(t, ss.IsCurrentPlayer(bob))
	assert.Empty(t, ss.View().Turn.Darts)
}

func TestSessionStore_KeypadAndMiss(t *testing.T) {
	ss, _ := setupSessionStore(t, storage.NewMemoryStore())
	startedStoreMatch(t, ss)
	ctx := context.Background()

	require.NoError(t, ss.SelectMultiplier(2))
	assert.Equal(t, 2, ss.View().Turn.Multiplier)
	_, err := ss.RecordQuickPoints(ctx, 25)
	require.NoError(t, err)
	assert.Equal(t, 1, ss.View().Turn.Multiplier)

	_, err = ss.RecordMiss(ctx)
	require.NoError(t, err)
	res, err := ss.RecordQuickPoints(ctx, 20)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, 70, res.Total)
	assert.Equal(t, 231, ss.Snapshot().CurrentGame.Players[0].RemainingScore)
}

func TestSessionStore_ResetTurn(t *testing.T) {
	ss, _ := setupSessionStore(t, storage.NewMemoryStore())
	ctx := context.Background()

	assert.ErrorIs(t, ss.ResetTurn(ctx), ErrMatchNotStarted)

	startedStoreMatch(t, ss)
	_, err := ss.RecordDart(ctx, 19, 1)
	require.NoError(t, err)
	require.NoError(t, ss.ResetTurn(ctx))

	assert.Empty(t, ss.View().Turn.Darts)
	assert.Equal(t, 301, ss.Snapshot().CurrentGame.Players[0].RemainingScore)
}

func TestSessionStore_DartsRequireMatchInProgress(t *testing.T) {
	ss, _ := setupSessionStore(t, storage.NewMemoryStore())
	ctx := context.Background()

	_, err := ss.RecordDart(ctx, 20, 1)
	assert.ErrorIs(t, err, ErrNoActiveMatch)

	_, err = ss.CreateMatch(ctx, models.GameType501)
	require.NoError(t, err)
	_, err = ss.RecordMiss(ctx)
	assert.ErrorIs(t, err, ErrMatchNotStarted)
}

func TestSessionStore_DirectTurnIsBounded(t *testing.T) {
	ss, _ := setupSessionStore(t, storage.NewMemoryStore())
	alice, bob := startedStoreMatch(t, ss)
	ctx := context.Background()

	assert.ErrorIs(t, ss.SubmitTurn(ctx, 181), ErrInvalidPoints)
	assert.ErrorIs(t, ss.ApplyTurn(ctx, alice, -5), ErrInvalidPoints)
	assert.ErrorIs(t, ss.ApplyTurn(ctx, bob, 60), ErrNotPlayersTurn)

	require.NoError(t, ss.ApplyTurn(ctx, alice, 180))
	require.NoError(t, ss.SubmitTurn(ctx, 0))
	require.NoError(t, ss.SubmitTurn(ctx, 121))

	assert.Equal(t, PhaseNoMatch, ss.Phase())
	snap := ss.Snapshot()
	require.Len(t, snap.SavedGames, 1)
	assert.Equal(t, alice, snap.SavedGames[0].WinnerID)
}

func TestSessionStore_BroadcastsViews(t *testing.T) {
	ss, _ := setupSessionStore(t, storage.NewMemoryStore())
	var views []SessionView
	ss.BroadcastFn = func(v SessionView) { views = append(views, v) }

	startedStoreMatch(t, ss)

	require.Len(t, views, 4)
	assert.Equal(t, PhaseForming, views[0].Phase)
	last := views[len(views)-1]
	assert.Equal(t, PhaseInProgress, last.Phase)
	require.NotNil(t, last.Match)
	assert.True(t, last.Match.Players[0].IsCurrentTurn)
	assert.False(t, last.Match.Players[1].IsCurrentTurn)

	// rejected actions broadcast nothing
	_, err := ss.CreateMatch(context.Background(), models.GameType301)
	assert.ErrorIs(t, err, ErrMatchActive)
	assert.Len(t, views, 4)
}

func TestSessionStore_JournalsInCommitOrder(t *testing.T) {
	ss, _ := setupSessionStore(t, storage.NewMemoryStore())
	pub := &recordingPublisher{}
	ss.SetPublisher(pub, 0)
	ctx := context.Background()

	startedStoreMatch(t, ss)
	_, err := ss.RecordDart(ctx, 20, 1)
	require.NoError(t, err)
	require.NoError(t, ss.Abandon(ctx))
	require.NoError(t, ss.Close())

	assert.Equal(t, []EventType{
		EventMatchCreated,
		EventPlayerRegistered, EventPlayerEnrolled,
		EventPlayerRegistered, EventPlayerEnrolled,
		EventMatchStarted,
		EventDartRecorded,
		EventMatchAbandoned,
	}, pub.types())
}

func TestSessionStore_ExitResumeDiscardsPendingDarts(t *testing.T) {
	ss, _ := setupSessionStore(t, storage.NewMemoryStore())
	startedStoreMatch(t, ss)
	ctx := context.Background()
	matchID := ss.Snapshot().CurrentGame.ID

	_, err := ss.RecordDart(ctx, 5, 1)
	require.NoError(t, err)
	require.NoError(t, ss.Exit(ctx))
	assert.Empty(t, ss.View().Turn.Darts)

	require.NoError(t, ss.Resume(ctx, matchID))
	assert.Equal(t, PhaseInProgress, ss.Phase())
}

func TestSessionStore_Clear(t *testing.T) {
	backend := storage.NewMemoryStore()
	ss, _ := setupSessionStore(t, backend)
	startedStoreMatch(t, ss)

	require.NoError(t, ss.Clear(context.Background()))

	assert.Equal(t, models.NewSession(), ss.Snapshot())
	reloaded, _ := setupSessionStore(t, backend)
	assert.Equal(t, models.NewSession(), reloaded.Snapshot())
}

func TestSessionStore_UpdateRules(t *testing.T) {
	ss, _ := setupSessionStore(t, storage.NewMemoryStore())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := ss.CreateMatch(ctx, models.GameType301)
		require.NoError(t, err)
		require.NoError(t, ss.Exit(ctx))
	}
	require.Len(t, ss.Snapshot().SavedGames, 3)

	rules, err := ss.UpdateRules(ctx, map[string]interface{}{
		"maxSavedGames":    float64(2),
		"enforceTurnOrder": false,
	})
	require.NoError(t, err)
	assert.False(t, rules.EnforceTurnOrder)
	assert.Equal(t, 2, rules.MaxSavedGames)
	assert.Len(t, ss.Snapshot().SavedGames, 2)
	assert.Equal(t, rules, ss.Rules())

	_, err = ss.UpdateRules(ctx, map[string]interface{}{"maxSavedGames": "ten"})
	assert.True(t, IsValidation(err))
	assert.Equal(t, rules, ss.Rules())
}

func TestSessionStore_PersistFailureKeepsState(t *testing.T) {
	ss, hook := setupSessionStore(t, &failingStore{})

	p, err := ss.RegisterPlayer(context.Background(), "Alice")
	require.NoError(t, err)

	_, ok := ss.Snapshot().FindPlayer(p.ID)
	assert.True(t, ok)
	var logged bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel && entry.Message == "failed to persist session" {
			logged = true
		}
	}
	assert.True(t, logged)
}

func TestSessionStore_ViewsCarryIncreasingSequence(t *testing.T) {
	ss, _ := setupSessionStore(t, storage.NewMemoryStore())
	var mu sync.Mutex
	var seqs []uint64
	ss.BroadcastFn = func(v SessionView) {
		mu.Lock()
		seqs = append(seqs, v.Seq)
		mu.Unlock()
	}

	startedStoreMatch(t, ss)
	ctx := context.Background()
	require.NoError(t, ss.SelectMultiplier(2))
	_, err := ss.RecordDart(ctx, 20, 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ss.SelectMultiplier(3)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seqs, 14)
	seen := make(map[uint64]bool, len(seqs))
	for _, seq := range seqs {
		assert.False(t, seen[seq], "sequence %d pushed twice", seq)
		seen[seq] = true
	}
	for seq := uint64(1); seq <= 14; seq++ {
		assert.True(t, seen[seq], "sequence %d missing", seq)
	}
	assert.Equal(t, uint64(14), ss.View().Seq, "reads report the latest sequence")
}

func TestSessionStore_DartsRejectedWhenRosterIsEmpty(t *testing.T) {
	ss, _ := setupSessionStore(t, storage.NewMemoryStore())
	pub := &recordingPublisher{}
	ss.SetPublisher(pub, 8)
	alice, bob := startedStoreMatch(t, ss)
	ctx := context.Background()

	require.NoError(t, ss.Unenroll(ctx, alice))
	require.NoError(t, ss.Unenroll(ctx, bob))
	require.Equal(t, PhaseInProgress, ss.Phase())

	_, err := ss.RecordDart(ctx, 20, 1)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)
	_, err = ss.RecordMiss(ctx)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)
	assert.ErrorIs(t, ss.SubmitTurn(ctx, 60), ErrNotEnoughPlayers)
	assert.Empty(t, ss.View().Turn.Darts, "nothing was accumulated")

	require.NoError(t, ss.Close())
	assert.NotContains(t, pub.types(), EventDartRecorded)
}

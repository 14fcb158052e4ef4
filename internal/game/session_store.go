// internal/game/session_store.go
package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jason-s-yu/dartkeeper/internal/models"
	"github.com/jason-s-yu/dartkeeper/internal/storage"
	"github.com/sirupsen/logrus"
)

// Publisher receives every committed event for the match journal.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// TurnResult describes the turn accumulator after a dart was recorded. When
// Complete is set, Total has been applied to PlayerID's score.
type TurnResult struct {
	PlayerID string        `json:"playerId"`
	Darts    []models.Dart `json:"darts"`
	Subtotal int           `json:"subtotal"`
	Complete bool          `json:"complete"`
	Total    int           `json:"total"`
	Finished bool          `json:"finished"`
}

// SessionStore owns the live session. It serialises every mutation, persists
// the full snapshot after each commit, journals the resulting events and pushes
// a fresh view to BroadcastFn.
type SessionStore struct {
	mu     sync.Mutex
	engine *Engine
	store  storage.Store
	log    *logrus.Entry

	state models.Session
	turn  *TurnAccumulator
	seq   uint64 // bumped on every broadcast view

	journal chan Event
	done    chan struct{}

	// BroadcastFn is called outside the lock with the view after every change.
	BroadcastFn func(SessionView)
}

// NewSessionStore wraps engine and backend. Call Load before use.
func NewSessionStore(engine *Engine, store storage.Store, log *logrus.Entry) *SessionStore {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &SessionStore{
		engine: engine,
		store:  store,
		log:    log,
		state:  models.NewSession(),
		turn:   NewTurnAccumulator(),
	}
}

// SetPublisher starts journaling committed events to p. Events are published in
// commit order by a single goroutine; Close drains it.
func (s *SessionStore) SetPublisher(p Publisher, buffer int) {
	if p == nil {
		return
	}
	if buffer <= 0 {
		buffer = 256
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal != nil {
		return
	}
	s.journal = make(chan Event, buffer)
	s.done = make(chan struct{})
	go s.publishLoop(p, s.journal, s.done)
}

func (s *SessionStore) publishLoop(p Publisher, events <-chan Event, done chan<- struct{}) {
	defer close(done)
	for ev := range events {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := p.Publish(ctx, ev); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"event":   ev.Type,
				"matchID": ev.MatchID,
			}).Warn("failed to journal event")
		}
		cancel()
	}
}

// Close stops the journal and closes the storage backend.
func (s *SessionStore) Close() error {
	s.mu.Lock()
	journal, done := s.journal, s.done
	s.journal = nil
	s.mu.Unlock()

	if journal != nil {
		close(journal)
		<-done
	}
	return s.store.Close()
}

// Load reads the stored snapshot. A missing snapshot starts an empty session;
// an unreadable one is logged and replaced by an empty session.
func (s *SessionStore) Load(ctx context.Context) error {
	data, found, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	state := models.NewSession()
	if found {
		if err := json.Unmarshal(data, &state); err != nil {
			s.log.WithError(err).Warn("stored session is corrupt, starting fresh")
			state = models.NewSession()
		}
	}

	s.mu.Lock()
	s.state = Normalize(state, s.engine.Rules.historyCap())
	s.turn.Reset()
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"found":      found,
		"players":    len(state.RegisteredPlayers),
		"savedGames": len(state.SavedGames),
		"phase":      s.Phase().String(),
	}).Info("session loaded")
	return nil
}

// Snapshot returns a private copy of the current session.
func (s *SessionStore) Snapshot() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// View returns the rendering view of the current session and turn.
func (s *SessionStore) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := BuildView(s.state, s.turn, s.engine.Rules)
	v.Seq = s.seq
	return v
}

// nextViewLocked builds the view for a change and stamps it with the next
// sequence number. Must be called with s.mu held.
func (s *SessionStore) nextViewLocked() SessionView {
	s.seq++
	v := BuildView(s.state, s.turn, s.engine.Rules)
	v.Seq = s.seq
	return v
}

// Phase returns the phase of the active match.
func (s *SessionStore) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionPhase(s.state)
}

// Rules returns the rules the engine currently runs with.
func (s *SessionStore) Rules() Rules {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Rules
}

// IsCurrentPlayer reports whether playerID holds the seat whose turn it is.
func (s *SessionStore) IsCurrentPlayer(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionPhase(s.state) == PhaseInProgress && IsCurrentPlayer(s.state.CurrentGame, playerID)
}

type reducer func(models.Session) (models.Session, []Event, error)

// mutate runs fn against the current state and commits the result. When
// resetTurn is set the pending darts are discarded as part of the commit.
func (s *SessionStore) mutate(ctx context.Context, resetTurn bool, fn reducer) error {
	s.mu.Lock()
	next, events, err := fn(s.state)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if resetTurn {
		s.turn.Reset()
	}
	view := s.commitLocked(ctx, next, events)
	s.mu.Unlock()

	s.broadcast(view)
	return nil
}

// commitLocked swaps in next, persists it and hands events to the journal.
// Must be called with s.mu held.
func (s *SessionStore) commitLocked(ctx context.Context, next models.Session, events []Event) SessionView {
	s.state = next
	s.persistLocked(ctx)
	s.emitLocked(events)
	return s.nextViewLocked()
}

// emitLocked logs events and queues them for the journal.
func (s *SessionStore) emitLocked(events []Event) {
	for _, ev := range events {
		s.log.WithFields(logrus.Fields{
			"event":    ev.Type,
			"matchID":  ev.MatchID,
			"playerID": ev.PlayerID,
		}).Debug("committed")
		if s.journal != nil {
			select {
			case s.journal <- ev:
			default:
				s.log.WithField("event", ev.Type).Warn("journal buffer full, dropping event")
			}
		}
	}
}

// persistLocked writes the whole session. A failed write is logged and the
// in-memory state stays authoritative.
func (s *SessionStore) persistLocked(ctx context.Context) {
	data, err := json.Marshal(s.state)
	if err != nil {
		s.log.WithError(err).Error("failed to encode session")
		return
	}
	if err := s.store.Save(context.WithoutCancel(ctx), data); err != nil {
		s.log.WithError(err).Error("failed to persist session")
	}
}

func (s *SessionStore) broadcast(view SessionView) {
	if s.BroadcastFn != nil {
		s.BroadcastFn(view)
	}
}

// RegisterPlayer adds a player to the registry, enrolling them too when a match
// is forming.
func (s *SessionStore) RegisterPlayer(ctx context.Context, name string) (models.RegisteredPlayer, error) {
	var created models.RegisteredPlayer
	err := s.mutate(ctx, false, func(cur models.Session) (models.Session, []Event, error) {
		next, p, events, err := s.engine.RegisterAndEnroll(cur, name)
		created = p
		return next, events, err
	})
	if err != nil {
		return models.RegisteredPlayer{}, err
	}
	return created, nil
}

// DeletePlayer removes a player from the registry and from the active match.
func (s *SessionStore) DeletePlayer(ctx context.Context, playerID string) error {
	return s.mutate(ctx, true, func(cur models.Session) (models.Session, []Event, error) {
		return s.engine.DeletePlayer(cur, playerID)
	})
}

// CreateMatch starts forming a match of the given type.
func (s *SessionStore) CreateMatch(ctx context.Context, gameType models.GameType) (models.Match, error) {
	err := s.mutate(ctx, true, func(cur models.Session) (models.Session, []Event, error) {
		return s.engine.Create(cur, gameType)
	})
	if err != nil {
		return models.Match{}, err
	}
	return s.currentMatch(), nil
}

// Enroll seats a registered player in the forming match.
func (s *SessionStore) Enroll(ctx context.Context, playerID string) error {
	return s.mutate(ctx, false, func(cur models.Session) (models.Session, []Event, error) {
		return s.engine.Enroll(cur, playerID)
	})
}

// Unenroll removes a player's seats from the active match.
func (s *SessionStore) Unenroll(ctx context.Context, playerID string) error {
	return s.mutate(ctx, true, func(cur models.Session) (models.Session, []Event, error) {
		return s.engine.Unenroll(cur, playerID)
	})
}

// Start begins play in the forming match.
func (s *SessionStore) Start(ctx context.Context) error {
	return s.mutate(ctx, true, func(cur models.Session) (models.Session, []Event, error) {
		return s.engine.Start(cur)
	})
}

// checkTurnPoints bounds a turn total entered by hand to what three darts can
// score.
func checkTurnPoints(points int) error {
	if points < 0 || points > MaxTurnPoints {
		return fmt.Errorf("%w: must be between 0 and %d, got %d", ErrInvalidPoints, MaxTurnPoints, points)
	}
	return nil
}

// ApplyTurn commits a turn total for playerID directly, bypassing the dart
// accumulator. Pending darts are discarded.
func (s *SessionStore) ApplyTurn(ctx context.Context, playerID string, points int) error {
	if err := checkTurnPoints(points); err != nil {
		return err
	}
	return s.mutate(ctx, true, func(cur models.Session) (models.Session, []Event, error) {
		return s.engine.ApplyTurn(cur, playerID, points)
	})
}

// SubmitTurn commits a turn total for whoever holds the current seat.
func (s *SessionStore) SubmitTurn(ctx context.Context, points int) error {
	if err := checkTurnPoints(points); err != nil {
		return err
	}
	return s.mutate(ctx, true, func(cur models.Session) (models.Session, []Event, error) {
		if SessionPhase(cur) != PhaseInProgress {
			return s.engine.ApplyTurn(cur, "", points)
		}
		p, ok := cur.CurrentGame.CurrentPlayer()
		if !ok {
			return cur, nil, ErrNotEnoughPlayers
		}
		return s.engine.ApplyTurn(cur, p.ID, points)
	})
}

// RecordDart adds a dart to the current player's turn. The third dart commits
// the turn total.
func (s *SessionStore) RecordDart(ctx context.Context, segment, multiplier int) (TurnResult, error) {
	return s.throw(ctx, func(t *TurnAccumulator) (int, bool, error) {
		return t.RecordDart(segment, multiplier)
	})
}

// RecordMiss adds a zero-point dart to the current player's turn.
func (s *SessionStore) RecordMiss(ctx context.Context) (TurnResult, error) {
	return s.throw(ctx, func(t *TurnAccumulator) (int, bool, error) {
		return t.RecordMiss()
	})
}

// RecordQuickPoints adds a keypad dart at the selected multiplier.
func (s *SessionStore) RecordQuickPoints(ctx context.Context, points int) (TurnResult, error) {
	return s.throw(ctx, func(t *TurnAccumulator) (int, bool, error) {
		return t.RecordQuickPoints(points)
	})
}

func (s *SessionStore) throw(ctx context.Context, record func(*TurnAccumulator) (int, bool, error)) (TurnResult, error) {
	s.mu.Lock()
	switch SessionPhase(s.state) {
	case PhaseNoMatch:
		s.mu.Unlock()
		return TurnResult{}, ErrNoActiveMatch
	case PhaseForming:
		s.mu.Unlock()
		return TurnResult{}, ErrMatchNotStarted
	}
	cur, ok := s.state.CurrentGame.CurrentPlayer()
	if !ok {
		// every seat was unenrolled mid-match
		s.mu.Unlock()
		return TurnResult{}, ErrNotEnoughPlayers
	}
	matchID := s.state.CurrentGame.ID

	total, complete, err := record(s.turn)
	if err != nil {
		s.mu.Unlock()
		return TurnResult{}, err
	}

	res := TurnResult{PlayerID: cur.ID, Complete: complete, Total: total}
	if complete {
		res.Darts = s.turn.LastTurn()
		res.Subtotal = total
	} else {
		res.Darts = s.turn.Darts()
		res.Subtotal = s.turn.Subtotal()
	}
	thrown := res.Darts[len(res.Darts)-1]

	dartEvent := s.engine.event(EventDartRecorded, matchID, cur.ID, map[string]interface{}{
		"segment":    thrown.Segment,
		"multiplier": thrown.Multiplier,
		"points":     thrown.Points(),
		"slot":       len(res.Darts) - 1,
	})

	if !complete {
		s.emitLocked([]Event{dartEvent})
		view := s.nextViewLocked()
		s.mu.Unlock()
		s.broadcast(view)
		return res, nil
	}

	next, events, err := s.engine.ApplyTurn(s.state, cur.ID, total)
	if err != nil {
		// the turn was complete but could not be applied; nothing changes
		s.mu.Unlock()
		return TurnResult{}, err
	}
	res.Finished = SessionPhase(next) == PhaseNoMatch
	view := s.commitLocked(ctx, next, append([]Event{dartEvent}, events...))
	s.mu.Unlock()
	s.broadcast(view)
	return res, nil
}

// SelectMultiplier sets the keypad multiplier for the next quick-point dart.
func (s *SessionStore) SelectMultiplier(m int) error {
	s.mu.Lock()
	if err := s.turn.SelectMultiplier(m); err != nil {
		s.mu.Unlock()
		return err
	}
	view := s.nextViewLocked()
	s.mu.Unlock()
	s.broadcast(view)
	return nil
}

// ResetTurn discards the darts recorded so far.
func (s *SessionStore) ResetTurn(ctx context.Context) error {
	return s.mutate(ctx, true, func(cur models.Session) (models.Session, []Event, error) {
		if SessionPhase(cur) != PhaseInProgress {
			return cur, nil, ErrMatchNotStarted
		}
		return cur, []Event{s.engine.event(EventTurnReset, cur.CurrentGame.ID, "", nil)}, nil
	})
}

// Exit parks the active match in history.
func (s *SessionStore) Exit(ctx context.Context) error {
	return s.mutate(ctx, true, func(cur models.Session) (models.Session, []Event, error) {
		return s.engine.Exit(cur)
	})
}

// Abandon ends the match in progress without a winner.
func (s *SessionStore) Abandon(ctx context.Context) error {
	return s.mutate(ctx, true, func(cur models.Session) (models.Session, []Event, error) {
		return s.engine.Abandon(cur)
	})
}

// Resume reloads an unfinished match from history.
func (s *SessionStore) Resume(ctx context.Context, matchID string) error {
	return s.mutate(ctx, true, func(cur models.Session) (models.Session, []Event, error) {
		return s.engine.Resume(cur, matchID)
	})
}

// Clear wipes the session and the stored blob.
func (s *SessionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	next, events := s.engine.Clear(s.state)
	s.turn.Reset()
	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		s.log.WithError(err).Error("failed to clear stored session")
	}
	view := s.commitLocked(ctx, next, events)
	s.mu.Unlock()
	s.broadcast(view)
	return nil
}

// UpdateRules applies partial rule changes. Lowering the history capacity trims
// saved games immediately.
func (s *SessionStore) UpdateRules(ctx context.Context, changes map[string]interface{}) (Rules, error) {
	s.mu.Lock()
	updated, err := ParseRules(changes, s.engine.Rules)
	if err != nil {
		s.mu.Unlock()
		return Rules{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	s.engine.Rules = updated
	next := Normalize(s.state, updated.historyCap())
	ev := s.engine.event(EventRulesUpdated, "", "", map[string]interface{}{
		"enforceTurnOrder":         updated.EnforceTurnOrder,
		"allowDuplicateEnrollment": updated.AllowDuplicateEnrollment,
		"maxSavedGames":            updated.MaxSavedGames,
	})
	view := s.commitLocked(ctx, next, []Event{ev})
	s.mu.Unlock()
	s.broadcast(view)
	return updated, nil
}

func (s *SessionStore) currentMatch() models.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentGame == nil {
		return models.Match{}
	}
	return *s.state.CurrentGame.Clone()
}

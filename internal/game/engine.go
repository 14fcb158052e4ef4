// internal/game/engine.go
package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/dartkeeper/internal/models"
	"github.com/jason-s-yu/dartkeeper/internal/stats"
)

// DefaultAvatarBaseURL is prefixed to the escaped player name to build avatars.
const DefaultAvatarBaseURL = "https://api.dicebear.com/7.x/avataaars/svg?seed="

// Engine holds the match state machine and the player registry. Every method
// is a reducer: it takes the current session, returns the next one plus the
// events describing the change, and never mutates its input. On error the input
// session is returned as is.
type Engine struct {
	Rules         Rules
	AvatarBaseURL string

	// Now and NewID are swapped out in tests for deterministic output.
	Now   func() time.Time
	NewID func() string
}

// NewEngine builds an engine with wall-clock time and random UUIDs.
func NewEngine(rules Rules) *Engine {
	return &Engine{
		Rules:         rules,
		AvatarBaseURL: DefaultAvatarBaseURL,
		Now:           func() time.Time { return time.Now().UTC() },
		NewID:         uuid.NewString,
	}
}

func (e *Engine) event(t EventType, matchID, playerID string, payload map[string]interface{}) Event {
	return Event{Type: t, MatchID: matchID, PlayerID: playerID, Payload: payload, At: e.Now()}
}

// Create starts forming a new match of the given type. A match that is still
// forming is silently replaced; a match in progress must be exited or abandoned
// first.
func (e *Engine) Create(s models.Session, gameType models.GameType) (models.Session, []Event, error) {
	if !gameType.Valid() {
		return s, nil, ErrUnknownGameType
	}
	if SessionPhase(s) == PhaseInProgress {
		return s, nil, ErrMatchActive
	}

	next := s.Clone()
	var events []Event
	if prev := next.CurrentGame; prev != nil {
		events = append(events, e.event(EventMatchExited, prev.ID, "", map[string]interface{}{"replaced": true}))
	}

	now := e.Now()
	next.CurrentGame = &models.Match{
		ID:                 e.NewID(),
		Type:               gameType,
		Status:             models.MatchStatusForming,
		Players:            []models.MatchPlayer{},
		CurrentPlayerIndex: 0,
		StartedAt:          now,
		LastUpdatedAt:      now,
		IsFinished:         false,
	}
	events = append(events, e.event(EventMatchCreated, next.CurrentGame.ID, "", map[string]interface{}{"type": string(gameType)}))
	return next, events, nil
}

// Enroll gives a registered player a seat in the forming match, starting at the
// game type's initial score.
func (e *Engine) Enroll(s models.Session, playerID string) (models.Session, []Event, error) {
	switch SessionPhase(s) {
	case PhaseNoMatch:
		return s, nil, ErrNoActiveMatch
	case PhaseInProgress:
		return s, nil, ErrMatchStarted
	}
	rp, ok := s.FindPlayer(playerID)
	if !ok {
		return s, nil, ErrPlayerNotFound
	}
	if s.CurrentGame.HasPlayer(playerID) && !e.Rules.AllowDuplicateEnrollment {
		return s, nil, ErrAlreadyEnrolled
	}

	next := s.Clone()
	m := next.CurrentGame
	m.Players = append(m.Players, models.MatchPlayer{
		ID:             rp.ID,
		Name:           rp.Name,
		RemainingScore: m.Type.InitialScore(),
	})
	m.LastUpdatedAt = e.Now()
	return next, []Event{e.event(EventPlayerEnrolled, m.ID, rp.ID, map[string]interface{}{"seat": len(m.Players) - 1})}, nil
}

// Unenroll removes every seat held by playerID while the match is forming or in
// progress. The current player index is shifted so the same seat keeps the
// turn when possible, and is always left in range.
func (e *Engine) Unenroll(s models.Session, playerID string) (models.Session, []Event, error) {
	if SessionPhase(s) == PhaseNoMatch {
		return s, nil, ErrNoActiveMatch
	}
	if !s.CurrentGame.HasPlayer(playerID) {
		return s, nil, ErrNotEnrolled
	}

	next := s.Clone()
	removeSeats(next.CurrentGame, playerID)
	next.CurrentGame.LastUpdatedAt = e.Now()
	return next, []Event{e.event(EventPlayerUnenrolled, next.CurrentGame.ID, playerID, nil)}, nil
}

func removeSeats(m *models.Match, playerID string) {
	kept := make([]models.MatchPlayer, 0, len(m.Players))
	current := m.CurrentPlayerIndex
	for i, p := range m.Players {
		if p.ID == playerID {
			if i < m.CurrentPlayerIndex {
				current--
			}
			continue
		}
		kept = append(kept, p)
	}
	m.Players = kept
	m.CurrentPlayerIndex = clampIndex(current, len(kept))
}

// Start moves a forming match with enough players into play.
func (e *Engine) Start(s models.Session) (models.Session, []Event, error) {
	switch SessionPhase(s) {
	case PhaseNoMatch:
		return s, nil, ErrNoActiveMatch
	case PhaseInProgress:
		return s, nil, ErrMatchStarted
	}
	if len(s.CurrentGame.Players) < MinPlayers {
		return s, nil, ErrNotEnoughPlayers
	}

	next := s.Clone()
	m := next.CurrentGame
	m.Status = models.MatchStatusInProgress
	m.CurrentPlayerIndex = 0
	m.LastUpdatedAt = e.Now()
	return next, []Event{e.event(EventMatchStarted, m.ID, "", map[string]interface{}{"players": len(m.Players)})}, nil
}

// IsCurrentPlayer reports whether playerID holds the seat whose turn it is.
func IsCurrentPlayer(m *models.Match, playerID string) bool {
	if m == nil {
		return false
	}
	cur, ok := m.CurrentPlayer()
	return ok && cur.ID == playerID
}

// ApplyTurn subtracts a committed turn total from a player's remaining score.
// Reaching exactly zero (the score is floored there) wins the match: stats are
// recorded for every enrolled player, the match is archived and the active slot
// is cleared. Otherwise the turn passes to the next seat.
func (e *Engine) ApplyTurn(s models.Session, playerID string, points int) (models.Session, []Event, error) {
	if points < 0 {
		return s, nil, fmt.Errorf("%w: %d is negative", ErrInvalidPoints, points)
	}
	switch SessionPhase(s) {
	case PhaseNoMatch:
		return s, nil, ErrNoActiveMatch
	case PhaseForming:
		return s, nil, ErrMatchNotStarted
	}
	seat := s.CurrentGame.PlayerIndex(playerID)
	if seat < 0 {
		return s, nil, ErrNotEnrolled
	}
	if IsCurrentPlayer(s.CurrentGame, playerID) {
		seat = s.CurrentGame.CurrentPlayerIndex
	} else if e.Rules.EnforceTurnOrder {
		return s, nil, ErrNotPlayersTurn
	}

	next := s.Clone()
	m := next.CurrentGame
	before := m.Players[seat].RemainingScore
	after := before - points
	if after < 0 {
		after = 0
	}
	m.Players[seat].RemainingScore = after
	m.LastUpdatedAt = e.Now()

	events := []Event{e.event(EventTurnApplied, m.ID, playerID, map[string]interface{}{
		"points": points,
		"before": before,
		"after":  after,
	})}

	if after == 0 {
		finished, finishEvents := e.finish(next, playerID, before)
		return finished, append(events, finishEvents...), nil
	}

	m.CurrentPlayerIndex = (m.CurrentPlayerIndex + 1) % len(m.Players)
	return next, events, nil
}

// finish closes the active match with winnerID and settles player stats. The
// winner is credited with checkout, the score they had before the winning
// turn; everyone else with their remaining score. The session passed in is
// already a private copy.
func (e *Engine) finish(s models.Session, winnerID string, checkout int) (models.Session, []Event) {
	m := s.CurrentGame
	now := e.Now()
	m.IsFinished = true
	m.Status = models.MatchStatusFinished
	m.WinnerID = winnerID
	m.LastUpdatedAt = now

	for _, p := range uniqueSeats(m.Players) {
		outcome, final := stats.Lost, p.RemainingScore
		if p.ID == winnerID {
			outcome, final = stats.Won, checkout
		}
		s.RegisteredPlayers = recordResult(s.RegisteredPlayers, p.ID, final, outcome, now)
	}

	s.SavedGames = archive(s.SavedGames, *m, e.Rules.historyCap())
	s.CurrentGame = nil
	return s, []Event{e.event(EventMatchFinished, m.ID, winnerID, map[string]interface{}{"scores": scoreMap(m)})}
}

// Exit parks the active match in history without finishing it and without
// touching player stats. It can be resumed later.
func (e *Engine) Exit(s models.Session) (models.Session, []Event, error) {
	if SessionPhase(s) == PhaseNoMatch {
		return s, nil, ErrNoActiveMatch
	}

	next := s.Clone()
	m := next.CurrentGame
	m.LastUpdatedAt = e.Now()
	next.SavedGames = archive(next.SavedGames, *m, e.Rules.historyCap())
	next.CurrentGame = nil
	return next, []Event{e.event(EventMatchExited, m.ID, "", nil)}, nil
}

// Abandon ends a match in progress with no winner. Every enrolled player gets a
// game played; nothing else in their stats changes.
func (e *Engine) Abandon(s models.Session) (models.Session, []Event, error) {
	switch SessionPhase(s) {
	case PhaseNoMatch:
		return s, nil, ErrNoActiveMatch
	case PhaseForming:
		return s, nil, ErrMatchNotStarted
	}

	next := s.Clone()
	m := next.CurrentGame
	now := e.Now()
	m.IsFinished = true
	m.Status = models.MatchStatusFinished
	m.WinnerID = ""
	m.LastUpdatedAt = now

	for _, p := range uniqueSeats(m.Players) {
		next.RegisteredPlayers = recordResult(next.RegisteredPlayers, p.ID, p.RemainingScore, stats.Abandoned, now)
	}
	next.SavedGames = archive(next.SavedGames, *m, e.Rules.historyCap())
	next.CurrentGame = nil
	return next, []Event{e.event(EventMatchAbandoned, m.ID, "", map[string]interface{}{"scores": scoreMap(m)})}, nil
}

// Resume loads an unfinished match from history into the active slot.
func (e *Engine) Resume(s models.Session, matchID string) (models.Session, []Event, error) {
	if s.CurrentGame != nil {
		return s, nil, ErrMatchActive
	}
	saved, ok := s.FindSavedGame(matchID)
	if !ok {
		return s, nil, ErrMatchNotFound
	}
	if PhaseOf(&saved) == PhaseFinished {
		return s, nil, ErrMatchFinished
	}

	next := s.Clone()
	m := saved.Clone()
	normalizeMatch(m)
	m.LastUpdatedAt = e.Now()
	next.CurrentGame = m
	return next, []Event{e.event(EventMatchResumed, m.ID, "", map[string]interface{}{"status": string(m.Status)})}, nil
}

// Clear wipes the whole session.
func (e *Engine) Clear(models.Session) (models.Session, []Event) {
	return models.NewSession(), []Event{e.event(EventSessionCleared, "", "", nil)}
}

// archive puts m at the front of history, replacing any older entry with the
// same id, and trims history to capacity.
func archive(history []models.Match, m models.Match, capacity int) []models.Match {
	out := make([]models.Match, 0, len(history)+1)
	out = append(out, *m.Clone())
	for _, h := range history {
		if h.ID == m.ID {
			continue
		}
		out = append(out, h)
	}
	if len(out) > capacity {
		out = out[:capacity]
	}
	return out
}

// uniqueSeats returns each enrolled player once, keeping their first seat.
func uniqueSeats(players []models.MatchPlayer) []models.MatchPlayer {
	seen := make(map[string]bool, len(players))
	out := make([]models.MatchPlayer, 0, len(players))
	for _, p := range players {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

func scoreMap(m *models.Match) map[string]int {
	scores := make(map[string]int, len(m.Players))
	for _, p := range uniqueSeats(m.Players) {
		scores[p.ID] = p.RemainingScore
	}
	return scores
}

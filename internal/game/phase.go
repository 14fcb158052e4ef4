// internal/game/phase.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/dartkeeper/internal/models"
)

// Phase is the lifecycle state of the session's active match.
type Phase int

const (
	PhaseNoMatch Phase = iota
	PhaseForming
	PhaseInProgress
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseNoMatch:
		return "no_match"
	case PhaseForming:
		return "forming"
	case PhaseInProgress:
		return "in_progress"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// MarshalText lets phases appear as strings in JSON views.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses the names produced by MarshalText.
func (p *Phase) UnmarshalText(b []byte) error {
	for _, candidate := range []Phase{PhaseNoMatch, PhaseForming, PhaseInProgress, PhaseFinished} {
		if candidate.String() == string(b) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// PhaseOf derives the phase of m. Snapshots written before matches carried a
// status are treated as in progress once they have enough players.
func PhaseOf(m *models.Match) Phase {
	if m == nil {
		return PhaseNoMatch
	}
	if m.IsFinished || m.Status == models.MatchStatusFinished {
		return PhaseFinished
	}
	switch m.Status {
	case models.MatchStatusInProgress:
		return PhaseInProgress
	case models.MatchStatusForming:
		return PhaseForming
	}
	if len(m.Players) >= MinPlayers {
		return PhaseInProgress
	}
	return PhaseForming
}

// SessionPhase is the phase of the session's active match, or PhaseNoMatch.
func SessionPhase(s models.Session) Phase {
	return PhaseOf(s.CurrentGame)
}

func statusFor(p Phase) models.MatchStatus {
	switch p {
	case PhaseInProgress:
		return models.MatchStatusInProgress
	case PhaseFinished:
		return models.MatchStatusFinished
	default:
		return models.MatchStatusForming
	}
}

// Normalize repairs a freshly loaded snapshot: nil slices become empty, every
// match gets an explicit status, and current player indexes are brought back in
// range. A finished match left in the active slot is moved to history.
func Normalize(s models.Session, historyCap int) models.Session {
	s = s.Clone()
	if s.SavedGames == nil {
		s.SavedGames = []models.Match{}
	}
	if s.RegisteredPlayers == nil {
		s.RegisteredPlayers = []models.RegisteredPlayer{}
	}
	for i := range s.SavedGames {
		normalizeMatch(&s.SavedGames[i])
	}
	if s.CurrentGame != nil {
		normalizeMatch(s.CurrentGame)
		if s.CurrentGame.IsFinished {
			s.SavedGames = archive(s.SavedGames, *s.CurrentGame, historyCap)
			s.CurrentGame = nil
		}
	}
	if len(s.SavedGames) > historyCap {
		s.SavedGames = s.SavedGames[:historyCap]
	}
	return s
}

func normalizeMatch(m *models.Match) {
	if m.Players == nil {
		m.Players = []models.MatchPlayer{}
	}
	m.Status = statusFor(PhaseOf(m))
	m.IsFinished = m.Status == models.MatchStatusFinished
	m.CurrentPlayerIndex = clampIndex(m.CurrentPlayerIndex, len(m.Players))
}

func clampIndex(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	return i % n
}

// internal/game/sync_state.go
package game

import (
	"time"

	"github.com/jason-s-yu/dartkeeper/internal/models"
)

// PlayerView is one seat of the active match as the rendering layer sees it.
type PlayerView struct {
	Seat           int    `json:"seat"`
	ID             string `json:"id"`
	Name           string `json:"name"`
	Avatar         string `json:"avatar,omitempty"`
	RemainingScore int    `json:"score"`
	IsCurrentTurn  bool   `json:"isCurrentTurn"`
}

// MatchView is the active match with per-seat turn flags resolved.
type MatchView struct {
	ID              string             `json:"id"`
	Type            models.GameType    `json:"type"`
	Status          models.MatchStatus `json:"status"`
	Players         []PlayerView       `json:"players"`
	CurrentPlayerID string             `json:"currentPlayerId,omitempty"`
	StartedAt       time.Time          `json:"startedAt"`
	LastUpdatedAt   time.Time          `json:"lastUpdatedAt"`
}

// TurnView is the in-progress turn.
type TurnView struct {
	Darts       []models.Dart `json:"darts"`
	CurrentSlot int           `json:"currentSlot"` // -1 when full
	Subtotal    int           `json:"subtotal"`
	Multiplier  int           `json:"multiplier"`
}

// SessionView is pushed to the rendering layer after every committed change.
type SessionView struct {
	Seq               uint64                    `json:"seq"` // increases with every pushed view
	Phase             Phase                     `json:"phase"`
	Match             *MatchView                `json:"match,omitempty"`
	Turn              TurnView                  `json:"turn"`
	SavedGames        []models.Match            `json:"savedGames"`
	RegisteredPlayers []models.RegisteredPlayer `json:"registeredPlayers"`
	Rules             Rules                     `json:"rules"`
}

// BuildView assembles a view from a session and the pending turn.
func BuildView(s models.Session, turn *TurnAccumulator, rules Rules) SessionView {
	s = s.Clone()
	v := SessionView{
		Phase:             SessionPhase(s),
		SavedGames:        s.SavedGames,
		RegisteredPlayers: s.RegisteredPlayers,
		Rules:             rules,
	}
	if turn != nil {
		v.Turn = TurnView{
			Darts:       turn.Darts(),
			CurrentSlot: turn.CurrentSlot(),
			Subtotal:    turn.Subtotal(),
			Multiplier:  turn.SelectedMultiplier(),
		}
	}

	m := s.CurrentGame
	if m == nil {
		return v
	}
	mv := &MatchView{
		ID:            m.ID,
		Type:          m.Type,
		Status:        statusFor(PhaseOf(m)),
		Players:       make([]PlayerView, 0, len(m.Players)),
		StartedAt:     m.StartedAt,
		LastUpdatedAt: m.LastUpdatedAt,
	}
	inPlay := PhaseOf(m) == PhaseInProgress
	for i, p := range m.Players {
		pv := PlayerView{
			Seat:           i,
			ID:             p.ID,
			Name:           p.Name,
			RemainingScore: p.RemainingScore,
			IsCurrentTurn:  inPlay && i == m.CurrentPlayerIndex,
		}
		if rp, ok := s.FindPlayer(p.ID); ok {
			pv.Avatar = rp.Avatar
		}
		mv.Players = append(mv.Players, pv)
	}
	if cur, ok := m.CurrentPlayer(); ok && inPlay {
		mv.CurrentPlayerID = cur.ID
	}
	v.Match = mv
	return v
}

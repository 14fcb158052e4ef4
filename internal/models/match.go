package models

import "time"

// MatchStatus is the persisted lifecycle state of a match.
type MatchStatus string

const (
	MatchStatusForming    MatchStatus = "forming"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusFinished   MatchStatus = "finished"
)

// Match is a single darts match. Players keep their enrollment order for the
// whole match and turns rotate over that order.
type Match struct {
	ID                 string        `json:"id"`
	Type               GameType      `json:"type"`
	Status             MatchStatus   `json:"status,omitempty"`
	Players            []MatchPlayer `json:"players"`
	CurrentPlayerIndex int           `json:"currentPlayerIndex"`
	StartedAt          time.Time     `json:"startedAt"`
	LastUpdatedAt      time.Time     `json:"lastUpdatedAt"`
	IsFinished         bool          `json:"isFinished"`
	WinnerID           string        `json:"winner,omitempty"`
}

// Clone returns a deep copy of m.
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	c.Players = make([]MatchPlayer, len(m.Players))
	copy(c.Players, m.Players)
	return &c
}

// PlayerIndex returns the seat index of playerID, or -1.
func (m *Match) PlayerIndex(playerID string) int {
	for i, p := range m.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// HasPlayer reports whether playerID holds a seat in m.
func (m *Match) HasPlayer(playerID string) bool {
	return m.PlayerIndex(playerID) >= 0
}

// CurrentPlayer returns the player whose turn it is.
func (m *Match) CurrentPlayer() (MatchPlayer, bool) {
	if m.CurrentPlayerIndex < 0 || m.CurrentPlayerIndex >= len(m.Players) {
		return MatchPlayer{}, false
	}
	return m.Players[m.CurrentPlayerIndex], true
}

// Winner returns the seat of the winner if the match finished with one.
func (m *Match) Winner() (MatchPlayer, bool) {
	if m.WinnerID == "" {
		return MatchPlayer{}, false
	}
	i := m.PlayerIndex(m.WinnerID)
	if i < 0 {
		return MatchPlayer{}, false
	}
	return m.Players[i], true
}

// internal/game/registry.go
package game

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jason-s-yu/dartkeeper/internal/models"
	"github.com/jason-s-yu/dartkeeper/internal/stats"
)

// ValidateName trims name and checks it against the registry: at least
// MinNameLength characters and unique ignoring case.
func ValidateName(players []models.RegisteredPlayer, name string) (string, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < MinNameLength {
		return "", ErrNameTooShort
	}
	for _, p := range players {
		if strings.EqualFold(strings.TrimSpace(p.Name), name) {
			return "", ErrDuplicateName
		}
	}
	return name, nil
}

// AvatarFor derives the avatar handle from a player name.
func (e *Engine) AvatarFor(name string) string {
	base := e.AvatarBaseURL
	if base == "" {
		base = DefaultAvatarBaseURL
	}
	return base + url.QueryEscape(name)
}

// Register appends a new player with zeroed stats to the registry.
func (e *Engine) Register(s models.Session, name string) (models.Session, models.RegisteredPlayer, []Event, error) {
	name, err := ValidateName(s.RegisteredPlayers, name)
	if err != nil {
		return s, models.RegisteredPlayer{}, nil, err
	}

	rp := models.RegisteredPlayer{
		ID:     e.NewID(),
		Name:   name,
		Avatar: e.AvatarFor(name),
		Stats:  models.PlayerStats{LastPlayedAt: e.Now()},
	}
	next := s.Clone()
	next.RegisteredPlayers = append(next.RegisteredPlayers, rp)
	return next, rp, []Event{e.event(EventPlayerRegistered, "", rp.ID, map[string]interface{}{"name": rp.Name})}, nil
}

// RegisterAndEnroll registers a player and, when a match is forming, seats them
// in it straight away.
func (e *Engine) RegisterAndEnroll(s models.Session, name string) (models.Session, models.RegisteredPlayer, []Event, error) {
	next, rp, events, err := e.Register(s, name)
	if err != nil {
		return s, rp, nil, err
	}
	if SessionPhase(next) != PhaseForming {
		return next, rp, events, nil
	}
	enrolled, more, err := e.Enroll(next, rp.ID)
	if err != nil {
		return next, rp, events, nil
	}
	return enrolled, rp, append(events, more...), nil
}

// DeletePlayer removes a player from the registry and from every seat of the
// active match in the same step.
func (e *Engine) DeletePlayer(s models.Session, playerID string) (models.Session, []Event, error) {
	if _, ok := s.FindPlayer(playerID); !ok {
		return s, nil, ErrPlayerNotFound
	}

	next := s.Clone()
	kept := make([]models.RegisteredPlayer, 0, len(next.RegisteredPlayers))
	for _, p := range next.RegisteredPlayers {
		if p.ID != playerID {
			kept = append(kept, p)
		}
	}
	next.RegisteredPlayers = kept

	events := []Event{e.event(EventPlayerDeleted, "", playerID, nil)}
	if m := next.CurrentGame; m != nil && m.HasPlayer(playerID) {
		removeSeats(m, playerID)
		m.LastUpdatedAt = e.Now()
		events = append(events, e.event(EventPlayerUnenrolled, m.ID, playerID, map[string]interface{}{"deleted": true}))
	}
	return next, events, nil
}

// RecordMatchResult folds one match result into a player's stats. Unknown ids
// are ignored.
func (e *Engine) RecordMatchResult(s models.Session, playerID string, finalScore int, outcome stats.Outcome) models.Session {
	if _, ok := s.FindPlayer(playerID); !ok {
		return s
	}
	next := s.Clone()
	next.RegisteredPlayers = recordResult(next.RegisteredPlayers, playerID, finalScore, outcome, e.Now())
	return next
}

// recordResult updates players in place.
func recordResult(players []models.RegisteredPlayer, playerID string, finalScore int, outcome stats.Outcome, at time.Time) []models.RegisteredPlayer {
	for i := range players {
		if players[i].ID == playerID {
			players[i].Stats = stats.Apply(players[i].Stats, outcome, finalScore, at)
			break
		}
	}
	return players
}

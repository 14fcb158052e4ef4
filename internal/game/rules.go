// internal/game/rules.go
package game

import (
	"fmt"
	"math"
)

// Table limits.
const (
	MinNameLength        = 2
	MinPlayers           = 2
	DartsPerTurn         = 3
	MaxTurnPoints        = 180
	DefaultMaxSavedGames = 10
)

// Rules holds the engine behaviours that are a product choice rather than part
// of the game itself.
type Rules struct {
	EnforceTurnOrder         bool `json:"enforceTurnOrder"`         // only the rotation-designated player may submit a turn
	AllowDuplicateEnrollment bool `json:"allowDuplicateEnrollment"` // the same registered player may hold several seats
	MaxSavedGames            int  `json:"maxSavedGames"`            // history capacity
}

// DefaultRules enforces turn order, rejects duplicate seats and keeps ten
// matches of history.
func DefaultRules() Rules {
	return Rules{
		EnforceTurnOrder:         true,
		AllowDuplicateEnrollment: false,
		MaxSavedGames:            DefaultMaxSavedGames,
	}
}

func (r Rules) historyCap() int {
	if r.MaxSavedGames <= 0 {
		return DefaultMaxSavedGames
	}
	return r.MaxSavedGames
}

// Update will update the rules with the values provided.
// Keys that are absent or null are ignored and the old value persists.
func (r *Rules) Update(newRules map[string]interface{}) error {
	assignBool := func(field *bool, key string) error {
		if val, exists := newRules[key]; exists && val != nil {
			b, ok := val.(bool)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
			*field = b
		}
		return nil
	}

	assignInt := func(field *int, key string, minVal int) error {
		if val, exists := newRules[key]; exists && val != nil {
			var n int
			switch v := val.(type) {
			case float64: // JSON numbers decode as float64
				if v != math.Trunc(v) {
					return fmt.Errorf("%s must be a whole number, got %v", key, v)
				}
				n = int(v)
			case int:
				n = v
			default:
				return fmt.Errorf("invalid type for %s", key)
			}
			if n < minVal {
				return fmt.Errorf("%s must be at least %d", key, minVal)
			}
			*field = n
		}
		return nil
	}

	if err := assignBool(&r.EnforceTurnOrder, "enforceTurnOrder"); err != nil {
		return err
	}
	if err := assignBool(&r.AllowDuplicateEnrollment, "allowDuplicateEnrollment"); err != nil {
		return err
	}
	if err := assignInt(&r.MaxSavedGames, "maxSavedGames", 1); err != nil {
		return err
	}
	return nil
}

// ParseRules applies a map of rule updates on top of current. On error current
// is returned unchanged.
func ParseRules(rules map[string]interface{}, current Rules) (Rules, error) {
	updated := current
	if err := updated.Update(rules); err != nil {
		return current, err
	}
	return updated, nil
}

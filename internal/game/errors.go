// internal/game/errors.go
package game

import (
	"errors"
	"fmt"
)

// The two error classes every engine failure belongs to.
var (
	// ErrValidation marks bad user input (player names, dart values). The user
	// is expected to correct the input and retry.
	ErrValidation = errors.New("validation error")
	// ErrInvalidState marks an action attempted outside the phase that allows
	// it. The state is left untouched.
	ErrInvalidState = errors.New("invalid state")
)

// Validation errors
var (
	ErrNameTooShort    = fmt.Errorf("%w: player name must be at least %d characters", ErrValidation, MinNameLength)
	ErrDuplicateName   = fmt.Errorf("%w: player name already exists", ErrValidation)
	ErrUnknownGameType = fmt.Errorf("%w: unknown game type", ErrValidation)
	ErrInvalidDart     = fmt.Errorf("%w: invalid dart", ErrValidation)
	ErrInvalidPoints   = fmt.Errorf("%w: invalid turn points", ErrValidation)
)

// State errors
var (
	ErrNoActiveMatch    = fmt.Errorf("%w: no active match", ErrInvalidState)
	ErrMatchActive      = fmt.Errorf("%w: another match is in progress", ErrInvalidState)
	ErrMatchStarted     = fmt.Errorf("%w: match has already started", ErrInvalidState)
	ErrMatchNotStarted  = fmt.Errorf("%w: match has not started", ErrInvalidState)
	ErrMatchFinished    = fmt.Errorf("%w: match is finished", ErrInvalidState)
	ErrMatchNotFound    = fmt.Errorf("%w: match not found in history", ErrInvalidState)
	ErrPlayerNotFound   = fmt.Errorf("%w: player not found", ErrInvalidState)
	ErrAlreadyEnrolled  = fmt.Errorf("%w: player is already enrolled", ErrInvalidState)
	ErrNotEnrolled      = fmt.Errorf("%w: player is not enrolled in this match", ErrInvalidState)
	ErrNotEnoughPlayers = fmt.Errorf("%w: at least %d players are required", ErrInvalidState, MinPlayers)
	ErrNotPlayersTurn   = fmt.Errorf("%w: not this player's turn", ErrInvalidState)
	ErrTurnFull         = fmt.Errorf("%w: turn already has %d darts", ErrInvalidState, DartsPerTurn)
)

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidState reports whether err is an InvalidStateError.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// internal/game/turn.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/dartkeeper/internal/models"
)

// QuickPoints are the keypad shortcuts offered for each dart.
var QuickPoints = []int{20, 25, 50}

// TurnAccumulator collects the darts of the turn in progress. It is transient:
// it is never persisted and is emptied as soon as a turn total is handed back.
// It is not safe for concurrent use; SessionStore serialises access to it.
type TurnAccumulator struct {
	slots [DartsPerTurn]models.Dart
	count int
	last  [DartsPerTurn]models.Dart // the most recently completed turn

	// multiplier selected on the keypad for the next quick-point dart
	multiplier int
}

// NewTurnAccumulator returns an empty turn with the keypad multiplier at 1.
func NewTurnAccumulator() *TurnAccumulator {
	return &TurnAccumulator{multiplier: 1}
}

// ValidateDart checks a (segment, multiplier) pair coming from the input layer.
// Multiplier 0 is a miss. The outer bull allows single and double, the inner bull
// only single.
func ValidateDart(segment, multiplier int) error {
	if multiplier < 0 || multiplier > 3 {
		return fmt.Errorf("%w: multiplier %d", ErrInvalidDart, multiplier)
	}
	if multiplier == 0 || segment == models.SegmentMiss {
		if segment < 0 || (segment > 20 && segment != models.SegmentOuterBull && segment != models.SegmentInnerBull) {
			return fmt.Errorf("%w: segment %d", ErrInvalidDart, segment)
		}
		return nil
	}
	switch {
	case segment >= 1 && segment <= 20:
		return nil
	case segment == models.SegmentOuterBull:
		if multiplier > 2 {
			return fmt.Errorf("%w: bull cannot be tripled", ErrInvalidDart)
		}
		return nil
	case segment == models.SegmentInnerBull:
		if multiplier != 1 {
			return fmt.Errorf("%w: inner bull only scores single", ErrInvalidDart)
		}
		return nil
	default:
		return fmt.Errorf("%w: segment %d", ErrInvalidDart, segment)
	}
}

// RecordDart fills the next slot. When the third slot is filled the turn total
// is returned with complete set, and the accumulator empties itself.
func (t *TurnAccumulator) RecordDart(segment, multiplier int) (total int, complete bool, err error) {
	if t.count >= DartsPerTurn {
		return 0, false, ErrTurnFull
	}
	if err := ValidateDart(segment, multiplier); err != nil {
		return 0, false, err
	}

	d := models.Dart{Segment: segment, Multiplier: multiplier}
	if d.IsMiss() {
		d = models.Miss
	}
	t.slots[t.count] = d
	t.count++

	if t.count < DartsPerTurn {
		return 0, false, nil
	}
	total = t.Subtotal()
	t.last = t.slots
	t.clear()
	return total, true, nil
}

// RecordMiss records a zero-contribution dart.
func (t *TurnAccumulator) RecordMiss() (int, bool, error) {
	return t.RecordDart(models.SegmentMiss, 0)
}

// SelectMultiplier sets the multiplier applied to the next quick-point dart.
func (t *TurnAccumulator) SelectMultiplier(m int) error {
	if m < 1 || m > 3 {
		return fmt.Errorf("%w: multiplier %d", ErrInvalidDart, m)
	}
	t.multiplier = m
	return nil
}

// SelectedMultiplier returns the keypad multiplier.
func (t *TurnAccumulator) SelectedMultiplier() int {
	if t.multiplier == 0 {
		return 1
	}
	return t.multiplier
}

// RecordQuickPoints records a keypad dart worth points times the selected
// multiplier. The multiplier goes back to 1 after every accepted dart.
func (t *TurnAccumulator) RecordQuickPoints(points int) (int, bool, error) {
	known := false
	for _, q := range QuickPoints {
		if q == points {
			known = true
			break
		}
	}
	if !known {
		return 0, false, fmt.Errorf("%w: %d is not a quick-point value", ErrInvalidDart, points)
	}

	total, complete, err := t.RecordDart(points, t.SelectedMultiplier())
	if err != nil {
		return 0, false, err
	}
	t.multiplier = 1
	return total, complete, nil
}

// Reset discards every recorded dart and the keypad multiplier.
func (t *TurnAccumulator) Reset() {
	t.clear()
	t.multiplier = 1
}

func (t *TurnAccumulator) clear() {
	t.slots = [DartsPerTurn]models.Dart{}
	t.count = 0
}

// Darts returns the darts recorded so far, in throw order.
func (t *TurnAccumulator) Darts() []models.Dart {
	out := make([]models.Dart, t.count)
	copy(out, t.slots[:t.count])
	return out
}

// LastTurn returns the three darts of the most recently completed turn.
func (t *TurnAccumulator) LastTurn() []models.Dart {
	out := make([]models.Dart, DartsPerTurn)
	copy(out, t.last[:])
	return out
}

// CurrentSlot is the index of the next empty slot, or -1 when the turn is full.
func (t *TurnAccumulator) CurrentSlot() int {
	if t.count >= DartsPerTurn {
		return -1
	}
	return t.count
}

// Subtotal is the sum of the darts recorded so far.
func (t *TurnAccumulator) Subtotal() int {
	sum := 0
	for _, d := range t.slots[:t.count] {
		sum += d.Points()
	}
	return sum
}

// internal/game/helpers_test.go
package game

import (
	"fmt"
	"testing"
	"time"

	"github.com/jason-s-yu/dartkeeper/internal/models"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

// newTestEngine returns an engine with a ticking fake clock and sequential ids.
func newTestEngine() *Engine {
	e := NewEngine(DefaultRules())
	tick := 0
	e.Now = func() time.Time {
		tick++
		return testEpoch.Add(time.Duration(tick) * time.Second)
	}
	ids := 0
	e.NewID = func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	}
	return e
}

// registerAll registers players by name and returns their ids in order.
func registerAll(t *testing.T, e *Engine, s models.Session, names ...string) (models.Session, []string) {
	t.Helper()
	ids := make([]string, 0, len(names))
	for _, n := range names {
		var (
			rp  models.RegisteredPlayer
			err error
		)
		s, rp, _, err = e.Register(s, n)
		require.NoError(t, err)
		ids = append(ids, rp.ID)
	}
	return s, ids
}

// startedMatch builds a session with a match of gameType in progress for the
// given players.
func startedMatch(t *testing.T, e *Engine, gameType models.GameType, names ...string) (models.Session, []string) {
	t.Helper()
	s, ids := registerAll(t, e, models.NewSession(), names...)
	s, _, err := e.Create(s, gameType)
	require.NoError(t, err)
	for _, id := range ids {
		s, _, err = e.Enroll(s, id)
		require.NoError(t, err)
	}
	s, _, err = e.Start(s)
	require.NoError(t, err)
	return s, ids
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

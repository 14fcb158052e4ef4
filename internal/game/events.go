// internal/game/events.go
package game

import "time"

// EventType names a committed state transition.
type EventType string

const (
	EventPlayerRegistered EventType = "player_registered"
	EventPlayerDeleted    EventType = "player_deleted"
	EventMatchCreated     EventType = "match_created"
	EventPlayerEnrolled   EventType = "player_enrolled"
	EventPlayerUnenrolled EventType = "player_unenrolled"
	EventMatchStarted     EventType = "match_started"
	EventDartRecorded     EventType = "dart_recorded"
	EventTurnReset        EventType = "turn_reset"
	EventTurnApplied      EventType = "turn_applied"
	EventMatchFinished    EventType = "match_finished"
	EventMatchAbandoned   EventType = "match_abandoned"
	EventMatchExited      EventType = "match_exited"
	EventMatchResumed     EventType = "match_resumed"
	EventRulesUpdated     EventType = "rules_updated"
	EventSessionCleared   EventType = "session_cleared"
)

// Event describes one transition. Reducers return them alongside the new state
// so the caller can log, broadcast and journal without re-deriving what changed.
type Event struct {
	Type     EventType              `json:"type"`
	MatchID  string                 `json:"match_id,omitempty"`
	PlayerID string                 `json:"player_id,omitempty"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
	At       time.Time              `json:"at"`
}

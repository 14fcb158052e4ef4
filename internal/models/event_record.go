package models

// MatchEventRecord is one journal entry as queued for the historian.
type MatchEventRecord struct {
	MatchID    string                 `json:"match_id"`
	EventIndex int                    `json:"event_index"`
	PlayerID   string                 `json:"player_id,omitempty"`
	EventType  string                 `json:"event_type"`
	Payload    map[string]interface{} `json:"payload"`
	Timestamp  int64                  `json:"timestamp"` // epoch millis
}

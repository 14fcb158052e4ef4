package models

import "time"

// PlayerStats holds the cumulative record of a registered player across every
// match that was finished or abandoned while they were enrolled.
type PlayerStats struct {
	GamesPlayed  int       `json:"gamesPlayed"`
	GamesWon     int       `json:"gamesWon"`
	AverageScore int       `json:"averageScore"`
	BestScore    int       `json:"bestScore"`
	LastPlayedAt time.Time `json:"lastPlayed"`
}

// RegisteredPlayer is a persistent player profile.
type RegisteredPlayer struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Avatar string      `json:"avatar"` // opaque display handle
	Stats  PlayerStats `json:"stats"`
}

// MatchPlayer is a player's seat in a single match. Name is a snapshot taken at
// enrollment time and does not follow later registry changes.
type MatchPlayer struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	RemainingScore int    `json:"score"`
}

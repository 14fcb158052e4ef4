package stats

import (
	"math"
	"time"

	"github.com/jason-s-yu/dartkeeper/internal/models"
)

// Outcome is how a match ended for one enrolled player.
type Outcome int

const (
	// Lost means the match finished with another player as winner.
	Lost Outcome = iota
	// Won means the player brought their remaining score to zero.
	Won
	// Abandoned means the match was ended without a winner. Only the games
	// played counter and the last played time move.
	Abandoned
)

func (o Outcome) String() string {
	switch o {
	case Won:
		return "won"
	case Lost:
		return "lost"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// RunningAverage folds newScore into an average taken over n-1 earlier values
// and rounds the result half up:
//
//	round((oldAverage*(n-1) + newScore) / n)
//
// n is the updated count. For n <= 0 the old average is returned unchanged.
func RunningAverage(oldAverage, n, newScore int) int {
	if n <= 0 {
		return oldAverage
	}
	mean := float64(oldAverage*(n-1)+newScore) / float64(n)
	return int(math.Floor(mean + 0.5))
}

// Apply returns s updated with one more match result.
//
// Won and Lost both count toward the average of final remaining scores; only a
// win can raise the best score. Abandoned touches gamesPlayed and lastPlayedAt
// and nothing else.
func Apply(s models.PlayerStats, outcome Outcome, finalScore int, at time.Time) models.PlayerStats {
	s.GamesPlayed++
	s.LastPlayedAt = at
	if outcome == Abandoned {
		return s
	}

	if outcome == Won {
		s.GamesWon++
		if finalScore > s.BestScore {
			s.BestScore = finalScore
		}
	}
	s.AverageScore = RunningAverage(s.AverageScore, s.GamesPlayed, finalScore)
	return s
}

// WinRate is the share of played games that were won, in [0, 1].
func WinRate(s models.PlayerStats) float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.GamesWon) / float64(s.GamesPlayed)
}

package models

// GameType identifies one of the fixed match variants.
type GameType string

const (
	GameType301            GameType = "301"
	GameType501            GameType = "501"
	GameType701            GameType = "701"
	GameTypeAroundTheClock GameType = "Around the Clock"
)

// GameTypeInfo describes a game type for selection screens.
type GameTypeInfo struct {
	Type         GameType `json:"type"`
	InitialScore int      `json:"initialScore"`
	Description  string   `json:"description"`
}

// gameTypes is ordered the way selection screens list them.
var gameTypes = []GameTypeInfo{
	{Type: GameType301, InitialScore: 301, Description: "Start at 301 points, first to zero wins"},
	{Type: GameType501, InitialScore: 501, Description: "The classic: 501 points"},
	{Type: GameType701, InitialScore: 701, Description: "Long format: start at 701 points"},
	{Type: GameTypeAroundTheClock, InitialScore: 1, Description: "Hit the numbers 1 to 20 in order"},
}

// GameTypes returns the catalogue of supported game types.
func GameTypes() []GameTypeInfo {
	out := make([]GameTypeInfo, len(gameTypes))
	copy(out, gameTypes)
	return out
}

// Info returns the catalogue entry for t.
func (t GameType) Info() (GameTypeInfo, bool) {
	for _, info := range gameTypes {
		if info.Type == t {
			return info, true
		}
	}
	return GameTypeInfo{}, false
}

// Valid reports whether t is a known game type.
func (t GameType) Valid() bool {
	_, ok := t.Info()
	return ok
}

// InitialScore returns the starting remaining score for t, or 0 if t is unknown.
func (t GameType) InitialScore() int {
	info, _ := t.Info()
	return info.InitialScore
}

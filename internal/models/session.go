package models

// Session is the whole persisted state: the registry, the match history and at
// most one active match. Its JSON shape is the stored blob.
type Session struct {
	CurrentGame       *Match             `json:"currentGame,omitempty"`
	SavedGames        []Match            `json:"savedGames"`
	RegisteredPlayers []RegisteredPlayer `json:"registeredPlayers"`
}

// NewSession returns an empty session with non-nil slices.
func NewSession() Session {
	return Session{
		SavedGames:        []Match{},
		RegisteredPlayers: []RegisteredPlayer{},
	}
}

// Clone returns a deep copy so reducers never share slices with their input.
func (s Session) Clone() Session {
	c := Session{
		CurrentGame:       s.CurrentGame.Clone(),
		SavedGames:        make([]Match, 0, len(s.SavedGames)),
		RegisteredPlayers: make([]RegisteredPlayer, len(s.RegisteredPlayers)),
	}
	for i := range s.SavedGames {
		c.SavedGames = append(c.SavedGames, *s.SavedGames[i].Clone())
	}
	copy(c.RegisteredPlayers, s.RegisteredPlayers)
	return c
}

// FindPlayer returns the registered player with the given id.
func (s Session) FindPlayer(id string) (RegisteredPlayer, bool) {
	for _, p := range s.RegisteredPlayers {
		if p.ID == id {
			return p, true
		}
	}
	return RegisteredPlayer{}, false
}

// FindSavedGame returns the history entry with the given match id.
func (s Session) FindSavedGame(id string) (Match, bool) {
	for _, m := range s.SavedGames {
		if m.ID == id {
			return m, true
		}
	}
	return Match{}, false
}

// internal/handlers/session.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/dartkeeper/internal/game"
	"github.com/jason-s-yu/dartkeeper/internal/models"
)

const requestTimeout = 3 * time.Second

type registerRequest struct {
	Name string `json:"name"`
}

type createMatchRequest struct {
	Type models.GameType `json:"type"`
}

type dartRequest struct {
	Segment    int `json:"segment"`
	Multiplier int `json:"multiplier"`
}

type quickRequest struct {
	Points int `json:"points"`
}

type multiplierRequest struct {
	Multiplier int `json:"multiplier"`
}

type pointsRequest struct {
	Points   int    `json:"points"`
	PlayerID string `json:"playerId,omitempty"`
}

type playerResponse struct {
	Player models.RegisteredPlayer `json:"player"`
	State  game.SessionView        `json:"state"`
}

type turnResponse struct {
	Turn  game.TurnResult  `json:"turn"`
	State game.SessionView `json:"state"`
}

// respond writes the current view, or the error mapped onto a status.
func (a *API) respond(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.Sessions.View())
}

func withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}

// GET /state
func (a *API) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Sessions.View())
}

// DELETE /state
func (a *API) ClearState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	a.respond(w, a.Sessions.Clear(ctx))
}

// GET /game-types
func (a *API) GetGameTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.GameTypes())
}

// POST /players
func (a *API) RegisterPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := a.Sessions.RegisterPlayer(ctx, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, playerResponse{Player: p, State: a.Sessions.View()})
}

// DELETE /players/{id}
func (a *API) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	a.respond(w, a.Sessions.DeletePlayer(ctx, chi.URLParam(r, "id")))
}

// POST /match
func (a *API) CreateMatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	var req createMatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := a.Sessions.CreateMatch(ctx, req.Type); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a.Sessions.View())
}

// POST /match/start
func (a *API) StartMatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	a.respond(w, a.Sessions.Start(ctx))
}

// POST /match/exit
func (a *API) ExitMatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	a.respond(w, a.Sessions.Exit(ctx))
}

// POST /match/abandon
func (a *API) AbandonMatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	a.respond(w, a.Sessions.Abandon(ctx))
}

// POST /match/players/{id}
func (a *API) EnrollPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	a.respond(w, a.Sessions.Enroll(ctx, chi.URLParam(r, "id")))
}

// DELETE /match/players/{id}
func (a *API) UnenrollPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	a.respond(w, a.Sessions.Unenroll(ctx, chi.URLParam(r, "id")))
}

// GET /match/players/{id}/turn
func (a *API) IsCurrentPlayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"playerId":        id,
		"isCurrentPlayer": a.Sessions.IsCurrentPlayer(id),
	})
}

func (a *API) respondTurn(w http.ResponseWriter, res game.TurnResult, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turnResponse{Turn: res, State: a.Sessions.View()})
}

// POST /match/darts
func (a *API) RecordDart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	var req dartRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := a.Sessions.RecordDart(ctx, req.Segment, req.Multiplier)
	a.respondTurn(w, res, err)
}

// POST /match/miss
func (a *API) RecordMiss(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	res, err := a.Sessions.RecordMiss(ctx)
	a.respondTurn(w, res, err)
}

// POST /match/quick
func (a *API) RecordQuickPoints(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	var req quickRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := a.Sessions.RecordQuickPoints(ctx, req.Points)
	a.respondTurn(w, res, err)
}

// POST /match/multiplier
func (a *API) SelectMultiplier(w http.ResponseWriter, r *http.Request) {
	var req multiplierRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a.respond(w, a.Sessions.SelectMultiplier(req.Multiplier))
}

// POST /match/turn/reset
func (a *API) ResetTurn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	a.respond(w, a.Sessions.ResetTurn(ctx))
}

// POST /match/points
// Without a playerId the total goes to whoever holds the current seat.
func (a *API) SubmitPoints(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	var req pointsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.PlayerID == "" {
		a.respond(w, a.Sessions.SubmitTurn(ctx, req.Points))
		return
	}
	a.respond(w, a.Sessions.ApplyTurn(ctx, req.PlayerID, req.Points))
}

// POST /history/{id}/resume
func (a *API) ResumeMatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	a.respond(w, a.Sessions.Resume(ctx, chi.URLParam(r, "id")))
}

// GET /rules
func (a *API) GetRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Sessions.Rules())
}

// POST /rules
func (a *API) UpdateRules(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	changes := map[string]interface{}{}
	if err := decodeBody(r, &changes); err != nil {
		writeError(w, err)
		return
	}
	rules, err := a.Sessions.UpdateRules(ctx, changes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

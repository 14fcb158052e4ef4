// internal/handlers/errors.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jason-s-yu/dartkeeper/internal/game"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// statusFor maps engine error classes onto HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case game.IsValidation(err):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, game.ErrPlayerNotFound), errors.Is(err, game.ErrMatchNotFound):
		return http.StatusNotFound, "invalid_state"
	case game.IsInvalidState(err):
		return http.StatusConflict, "invalid_state"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, kind := statusFor(err)
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

// Helper to write JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody decodes a JSON request body into v. An empty body leaves v alone.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid JSON body", game.ErrValidation)
	}
	return nil
}

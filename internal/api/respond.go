package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"klovn-bot/internal/game"
	"klovn-bot/internal/pkg/lock"
)

// Reasons reported by the HTTP layer itself.
var (
	errInvalidID       = game.Validation("invalid_id")
	errInvalidBody     = game.Validation("invalid_body")
	errMissingOpponent = game.Validation("missing_opponent_id")
)

const (
	internalError = "internal_error"
	maxBodyBytes  = 1 << 16
)

type errorResponse struct {
	Error string `json:"error"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, game.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, lock.ErrLockTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err as {"error": reason}. Errors that are not domain
// failures are logged and hidden behind a generic reason.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	reason := game.Reason(err)
	if reason == "" {
		reason = internalError
		if status == http.StatusServiceUnavailable {
			reason = "busy"
		}
		log.Error().Err(err).
			Str("request_id", RequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Request failed")
	}
	writeJSON(w, status, errorResponse{Error: reason})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errInvalidBody
	}
	return nil
}

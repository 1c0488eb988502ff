package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/teemow/dotion/internal/calendar"
	"github.com/teemow/dotion/internal/logging"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto HTTP status codes and writes the JSON
// error body. Upstream errors are logged with their cause but surfaced to
// the client as a generic message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, ErrUnauthenticated):
		status = http.StatusUnauthorized
		msg = err.Error()
	case calendar.IsValidation(err):
		status = http.StatusBadRequest
		msg = err.Error()
	case calendar.IsUpstream(err):
		if calendar.IsNotFound(err) {
			status = http.StatusNotFound
			msg = "event not found"
		} else {
			msg = "calendar request failed"
		}
		logger.Error("calendar upstream error", logging.Err(err))
	default:
		logger.Error("request failed", logging.Err(err))
	}

	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

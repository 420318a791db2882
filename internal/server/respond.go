package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/PKCanCode/SoundM8/internal/services"
	"github.com/PKCanCode/SoundM8/internal/shared"
	"github.com/charmbracelet/log"
)

// writeJSON encodes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body with a short message string.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeUpstreamError maps a failed Spotify call to a response: upstream status
// codes pass through so the client can distinguish 403 permission issues from
// 404 not-found; transport failures become a generic 500.
func writeUpstreamError(w http.ResponseWriter, logger *log.Logger, err error, message string) {
	var apiErr *services.APIError
	if errors.As(err, &apiErr) {
		logger.Warnf("%s: upstream status %d", message, apiErr.Status)
		writeError(w, apiErr.Status, message)
		return
	}

	logger.Errorf("%s: %v", message, err)
	writeError(w, http.StatusInternalServerError, message)
}

// guardMessage maps a guard failure to its client-facing message.
func guardMessage(err error) string {
	switch {
	case errors.Is(err, shared.ErrNoSession):
		return "No session provided"
	case errors.Is(err, shared.ErrInvalidSession):
		return "Invalid session"
	case errors.Is(err, shared.ErrRefreshFailed), errors.Is(err, shared.ErrNoRefreshToken):
		return "Failed to refresh token"
	default:
		return "Unauthorized"
	}
}

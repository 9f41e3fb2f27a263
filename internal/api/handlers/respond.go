package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/bcanady/snippets-be/internal/apperror"
)

// writeJSON serializes v to the response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a service error to its HTTP response. Internal
// failures are logged with their cause; the client only ever sees the
// short message.
func writeError(w http.ResponseWriter, err error) {
	appErr := apperror.FromError(err)
	if appErr.StatusCode() >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, appErr.StatusCode(), appErr.ToResponse())
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"example.com/mediascribe/internal/apperr"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if raw, ok := body.(json.RawMessage); ok {
		w.Write(raw)
		return
	}
	json.NewEncoder(w).Encode(body)
}

// writeError classifies err and writes {"error": message}, or the field map
// for validation errors. Server side failures are logged with their cause.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	e := apperr.From(err)
	status := e.Status()
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("kind", string(e.Kind)).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("kind", string(e.Kind)).Msg("request rejected")
	}
	if len(e.Fields) > 0 {
		writeJSON(w, status, e.Fields)
		return
	}
	writeJSON(w, status, errorBody{Error: e.Message})
}

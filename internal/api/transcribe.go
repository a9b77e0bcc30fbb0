package api

import (
	"net/http"

	"example.com/mediascribe/internal/transcribe"
)

type transcribeRequest struct {
	S3URL string `json:"s3_url"`
}

// transcribe blocks until the provider job for the URL finishes and returns
// its transcript document verbatim.
func (s *Server) transcribe(kind transcribe.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.logger(r).With().Str("kind", kind.String()).Logger()
		var req transcribeRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, log, err)
			return
		}

		transcript, err := s.transcriber.Transcribe(r.Context(), kind, req.S3URL)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, transcript)
	}
}

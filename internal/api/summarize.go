package api

import (
	"net/http"
	"path/filepath"

	"example.com/mediascribe/internal/apperr"
)

type summarizeRequest struct {
	Text string `json:"text"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

func (s *Server) summarize(w http.ResponseWriter, r *http.Request) {
	log := s.logger(r)
	var req summarizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, log, err)
		return
	}

	summary, err := s.summarizer.Summarize(r.Context(), req.Text)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Summary: summary})
}

// summarizeFile always takes the assistant path, grounding it on the
// uploaded file.
func (s *Server) summarizeFile(w http.ResponseWriter, r *http.Request) {
	log := s.logger(r)
	file, header, err := s.formFile(w, r)
	if err != nil {
		writeError(w, log, err)
		return
	}
	defer file.Close()
	if header.Size == 0 {
		writeError(w, log, apperr.InvalidInput("Empty file"))
		return
	}

	summary, err := s.files.SummarizeReader(r.Context(), file, filepath.Ext(header.Filename))
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Summary: summary})
}

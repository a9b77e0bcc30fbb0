package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"example.com/mediascribe/internal/apperr"
	"example.com/mediascribe/internal/auth"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required,min=8"`
	Email    string `json:"email" validate:"required,email"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	log := s.logger(r)
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, log, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeError(w, log, err)
		return
	}

	user, err := s.accounts.Register(r.Context(), auth.Registration{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	log := s.logger(r)
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil || validateStruct(req) != nil {
		writeError(w, log, apperr.Auth("Invalid Credentials"))
		return
	}

	token, err := s.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

// decodeJSON reads a JSON object body. An empty body leaves v zero and
// unknown fields are ignored.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.InvalidInput("Malformed JSON body").WithCause(err)
	}
	return nil
}

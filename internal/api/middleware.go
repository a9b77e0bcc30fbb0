package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/urfave/negroni"

	"example.com/mediascribe/internal/apperr"
	"example.com/mediascribe/internal/auth"
)

const headerRequestID = "X-Request-ID"

// requestLog tags each request with an id, puts a request scoped logger in
// the context and logs the outcome.
func requestLog(base zerolog.Logger) negroni.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		start := time.Now()
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		rw.Header().Set(headerRequestID, id)

		log := base.With().Str("request_id", id).Logger()
		r = r.WithContext(log.WithContext(r.Context()))

		nrw, ok := rw.(negroni.ResponseWriter)
		if !ok {
			nrw = negroni.NewResponseWriter(rw)
		}
		next(nrw, r)

		status := nrw.Status()
		level := zerolog.InfoLevel
		if status >= http.StatusInternalServerError {
			level = zerolog.WarnLevel
		}
		log.WithLevel(level).Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", nrw.Size()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

// requireAuth rejects requests without a valid access token and stores the
// caller's principal in the context.
func (s *Server) requireAuth() negroni.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		log := s.logger(r)
		token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeError(rw, log, apperr.Unauthorized("Authentication credentials were not provided."))
			return
		}
		p, err := s.verifier.Verify(r.Context(), token)
		if errors.Is(err, auth.ErrKeySource) {
			// The token may still be fine; writeError logs the 5xx.
			writeError(rw, log, apperr.Unavailable("Authentication service unavailable", err))
			return
		}
		if err != nil {
			writeError(rw, log, apperr.Unauthorized("Invalid token.").WithCause(err))
			return
		}
		next(rw, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	}
}

// panicFormatter answers a recovered panic with the generic error body.
type panicFormatter struct{}

func (panicFormatter) FormatPanicError(rw http.ResponseWriter, _ *http.Request, _ *negroni.PanicInformation) {
	fmt.Fprint(rw, `{"error":"Internal server error"}`)
}

// recoveryLogger adapts zerolog to negroni's logger interface.
type recoveryLogger struct {
	log zerolog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error().Msg(fmt.Sprint(v...))
}

func (l recoveryLogger) Printf(format string, v ...interface{}) {
	l.log.Error().Msgf(format, v...)
}

func newRecovery(log zerolog.Logger) *negroni.Recovery {
	rec := negroni.NewRecovery()
	rec.Logger = recoveryLogger{log: log}
	rec.PrintStack = true
	rec.Formatter = panicFormatter{}
	return rec
}

// Package api exposes registration, login, upload, transcription and
// summarization over HTTP.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/urfave/negroni"

	"example.com/mediascribe/internal/auth"
	"example.com/mediascribe/internal/storage"
	"example.com/mediascribe/internal/transcribe"
)

type Accounts interface {
	Register(ctx context.Context, reg auth.Registration) (auth.User, error)
	Login(ctx context.Context, username, password string) (string, error)
}

type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (auth.Principal, error)
}

type ObjectStore interface {
	Put(ctx context.Context, loc storage.Location, r io.Reader, contentType string) error
	List(ctx context.Context, bucket string) ([]storage.Object, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, kind transcribe.Kind, sourceURL string) (json.RawMessage, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type FileSummarizer interface {
	SummarizeReader(ctx context.Context, r io.Reader, ext string) (string, error)
}

type Options struct {
	Accounts       Accounts
	Verifier       TokenVerifier
	Objects        ObjectStore
	Bucket         string
	Transcriber    Transcriber
	Summarizer     Summarizer
	FileSummarizer FileSummarizer
	// MaxUploadBytes bounds multipart bodies. Zero means 32 MiB.
	MaxUploadBytes int64
	Log            zerolog.Logger
}

type Server struct {
	accounts    Accounts
	verifier    TokenVerifier
	objects     ObjectStore
	bucket      string
	transcriber Transcriber
	summarizer  Summarizer
	files       FileSummarizer
	maxUpload   int64
	log         zerolog.Logger
}

func New(opts Options) *Server {
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	return &Server{
		accounts:    opts.Accounts,
		verifier:    opts.Verifier,
		objects:     opts.Objects,
		bucket:      opts.Bucket,
		transcriber: opts.Transcriber,
		summarizer:  opts.Summarizer,
		files:       opts.FileSummarizer,
		maxUpload:   maxUpload,
		log:         opts.Log,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ping", s.ping).Methods(http.MethodGet)

	r.HandleFunc("/api/register/", s.register).Methods(http.MethodPost)
	r.HandleFunc("/api/login/", s.login).Methods(http.MethodPost)

	r.Handle("/api/upload/", s.protect(s.upload)).Methods(http.MethodPost)
	r.Handle("/api/s3-files/", s.protect(s.listFiles)).Methods(http.MethodGet)
	r.Handle("/api/transcribe/", s.protect(s.transcribe(transcribe.Generic))).Methods(http.MethodPost)
	r.Handle("/api/transcribe-medical/", s.protect(s.transcribe(transcribe.Medical))).Methods(http.MethodPost)
	r.Handle("/api/summarize/", s.protect(s.summarize)).Methods(http.MethodPost)
	r.Handle("/api/summarize-file/", s.protect(s.summarizeFile)).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found."})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed."})
	})
	return r
}

// Handler is the router behind panic recovery and request logging.
func (s *Server) Handler() http.Handler {
	n := negroni.New(newRecovery(s.log), requestLog(s.log))
	n.UseHandler(s.Router())
	return n
}

func (s *Server) protect(h http.HandlerFunc) http.Handler {
	return negroni.New(s.requireAuth(), negroni.Wrap(h))
}

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct{}{})
}

// logger returns the request scoped logger set by requestLog, falling back
// to the server's own.
func (s *Server) logger(r *http.Request) zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return s.log
}

// Package app wires configuration into the service's components.
package app

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"example.com/mediascribe/internal/api"
	"example.com/mediascribe/internal/auth"
	"example.com/mediascribe/internal/cloud"
	"example.com/mediascribe/internal/config"
	"example.com/mediascribe/internal/logging"
	"example.com/mediascribe/internal/poll"
	"example.com/mediascribe/internal/storage"
	"example.com/mediascribe/internal/summarize"
	"example.com/mediascribe/internal/transcribe"
)

const jwksRefresh = 15 * time.Minute

// App holds the wired components. Fields are exported so each binary can
// take only what it needs.
type App struct {
	Config      *config.Config
	Log         zerolog.Logger
	Session     *session.Session
	Storage     *storage.S3
	Transcriber *transcribe.Transcriber
}

// NewCore builds the AWS side: session, storage and the transcription
// orchestrator.
func NewCore(cfg *config.Config, log zerolog.Logger) (*App, error) {
	sess, err := cloud.NewSession(cfg.AWS)
	if err != nil {
		return nil, err
	}
	objects := storage.NewS3(sess)
	transcriber := transcribe.NewTranscriber(
		transcribe.NewAWSProvider(sess),
		transcribe.NewFetcher(objects),
		poll.New(cfg.TranscribePoll, nil),
		cfg.AWS.TranscriptsBucket,
		logging.Component(log, "transcribe"),
	)
	return &App{
		Config:      cfg,
		Log:         log,
		Session:     sess,
		Storage:     objects,
		Transcriber: transcriber,
	}, nil
}

// NewServer builds every component and returns the HTTP API. ctx bounds the
// background refresh of the token signing keys.
func NewServer(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*api.Server, error) {
	a, err := NewCore(cfg, log)
	if err != nil {
		return nil, err
	}

	oc := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		oc.BaseURL = cfg.OpenAI.BaseURL
	}
	client := openai.NewClientWithConfig(oc)

	counter, err := summarize.NewTiktoken(cfg.Summary.Encoding)
	if err != nil {
		return nil, err
	}
	sumLog := logging.Component(log, "summarize")
	assistant := summarize.NewAssistant(client, poll.New(cfg.RunPoll, nil), cfg.OpenAI.Model, cfg.Server.UploadDir, sumLog)
	router := summarize.NewRouter(
		counter,
		summarize.NewDirect(client, cfg.OpenAI.Model),
		assistant,
		cfg.Summary.TokenCeiling,
		sumLog,
	)

	keys := auth.NewJWKS(ctx, auth.CognitoJWKSURL(cfg.AWS.Region, cfg.Cognito.UserPoolID), jwksRefresh)
	verifier := auth.NewVerifier(keys, auth.CognitoIssuer(cfg.AWS.Region, cfg.Cognito.UserPoolID), cfg.Cognito.ClientID)
	accounts := auth.NewCognito(a.Session, cfg.Cognito, logging.Component(log, "auth"))
	return api.New(api.Options{
		Accounts:       accounts,
		Verifier:       verifier,
		Objects:        a.Storage,
		Bucket:         cfg.AWS.Bucket,
		Transcriber:    a.Transcriber,
		Summarizer:     router,
		FileSummarizer: assistant,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Log:            logging.Component(log, "api"),
	}), nil
}

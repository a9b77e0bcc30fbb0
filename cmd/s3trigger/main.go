package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	"example.com/mediascribe/internal/app"
	"example.com/mediascribe/internal/config"
	"example.com/mediascribe/internal/logging"
	"example.com/mediascribe/internal/storage"
	"example.com/mediascribe/internal/transcribe"
)

// mediaExtensions are the formats Transcribe accepts.
var mediaExtensions = map[string]bool{
	".amr": true, ".flac": true, ".m4a": true, ".mp3": true,
	".mp4": true, ".ogg": true, ".wav": true, ".webm": true,
}

type Submitter interface {
	Submit(ctx context.Context, kind transcribe.Kind, sourceURL string) (transcribe.Job, error)
}

// Trigger starts a generic transcription job for every media object an S3
// event reports. Jobs get the same deterministic names the API uses, so a
// later transcribe call for the file's URL picks the job up.
type Trigger struct {
	jobs Submitter
	log  zerolog.Logger
}

func (t Trigger) HandleRequest(ctx context.Context, event events.S3Event) error {
	var errs []error
	for _, record := range event.Records {
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			errs = append(errs, fmt.Errorf("decode key %q: %w", record.S3.Object.Key, err))
			continue
		}
		if !mediaExtensions[strings.ToLower(path.Ext(key))] {
			t.log.Debug().Str("key", key).Msg("skipping non-media object")
			continue
		}

		source := storage.PublicURL(storage.Location{Bucket: record.S3.Bucket.Name, Key: key})
		job, err := t.jobs.Submit(ctx, transcribe.Generic, source)
		if err != nil {
			t.log.Error().Err(err).Str("source", source).Msg("submit failed")
			errs = append(errs, fmt.Errorf("submit %s: %w", source, err))
			continue
		}
		t.log.Info().Str("job", job.Name).Str("status", string(job.Status)).Str("source", source).Msg("transcription submitted")
	}
	return errors.Join(errs...)
}

func main() {
	cfg, err := config.Load(config.Options{})
	if err == nil && cfg.AWS.TranscriptsBucket == "" {
		err = errors.New("config: missing required keys: aws.transcripts_bucket")
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log, "mediascribe-s3trigger")

	core, err := app.NewCore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("wiring failed")
	}
	lambda.Start(Trigger{jobs: core.Transcriber, log: log}.HandleRequest)
}

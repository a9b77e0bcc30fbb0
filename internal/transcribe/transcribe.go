// Package transcribe turns a media URL into a transcript by driving AWS
// Transcribe jobs to completion.
package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"example.com/mediascribe/internal/apperr"
	"example.com/mediascribe/internal/poll"
	"example.com/mediascribe/internal/storage"
)

type TranscriptFetcher interface {
	Fetch(ctx context.Context, loc storage.Location) (json.RawMessage, error)
}

// Transcriber looks up or creates the job for a URL, waits for it and reads
// the transcript. It holds no per-request state.
type Transcriber struct {
	provider     Provider
	fetcher      TranscriptFetcher
	poller       *poll.Poller
	outputBucket string
	log          zerolog.Logger
}

func NewTranscriber(provider Provider, fetcher TranscriptFetcher, poller *poll.Poller, outputBucket string, log zerolog.Logger) *Transcriber {
	return &Transcriber{
		provider:     provider,
		fetcher:      fetcher,
		poller:       poller,
		outputBucket: outputBucket,
		log:          log,
	}
}

// Transcribe blocks until the job for sourceURL is terminal and returns the
// transcript document.
func (t *Transcriber) Transcribe(ctx context.Context, kind Kind, sourceURL string) (json.RawMessage, error) {
	job, err := t.Submit(ctx, kind, sourceURL)
	if err != nil {
		return nil, err
	}

	job, err = t.await(ctx, job)
	if err != nil {
		return nil, err
	}

	if job.Status == StatusFailed {
		t.log.Warn().Str("job", job.Name).Str("reason", job.FailureReason).Msg("transcription job failed")
		return nil, apperr.JobFailed("Transcription job failed")
	}

	loc, err := ParseLocation(kind, job.TranscriptURI, t.outputBucket)
	if err != nil {
		return nil, err
	}
	return t.fetcher.Fetch(ctx, loc)
}

// Submit finds the job for sourceURL or starts it, without waiting.
func (t *Transcriber) Submit(ctx context.Context, kind Kind, sourceURL string) (Job, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return Job{}, apperr.InvalidInput("Missing S3 URL")
	}
	name := JobName(sourceURL, kind)
	log := t.log.With().Str("job", name).Str("kind", kind.String()).Logger()

	job, err := t.provider.Describe(ctx, kind, name)
	if err == nil {
		log.Debug().Str("status", string(job.Status)).Msg("found existing job")
		return job, nil
	}
	if !errors.Is(err, ErrJobNotFound) {
		return Job{}, apperr.Provider(err)
	}

	job, err = t.provider.Submit(ctx, SubmitRequest{
		Kind:         kind,
		Name:         name,
		MediaURI:     sourceURL,
		OutputBucket: t.outputBucket,
	})
	if errors.Is(err, ErrJobExists) {
		// A concurrent request created it between our Describe and Submit.
		log.Debug().Msg("job created concurrently, reusing")
		job, err = t.provider.Describe(ctx, kind, name)
	}
	if err != nil {
		return Job{}, apperr.Provider(err)
	}
	log.Info().Str("media", sourceURL).Msg("submitted transcription job")
	return job, nil
}

func (t *Transcriber) await(ctx context.Context, job Job) (Job, error) {
	if job.Status.Terminal() {
		return job, nil
	}
	err := t.poller.Wait(ctx, func(ctx context.Context) (bool, error) {
		current, err := t.provider.Describe(ctx, job.Kind, job.Name)
		if errors.Is(err, ErrJobNotFound) {
			return false, apperr.NotFound("Transcription job not found")
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				// The wait ran out mid-call; report the deadline, not the SDK error.
				return false, fmt.Errorf("%w: %v", ctxErr, err)
			}
			return false, apperr.Provider(err)
		}
		job = current
		t.log.Debug().Str("job", job.Name).Str("status", string(job.Status)).Msg("polled transcription job")
		return job.Status.Terminal(), nil
	})
	if err != nil {
		return Job{}, fmt.Errorf("transcribe: waiting for %s: %w", job.Name, err)
	}
	return job, nil
}

package transcribe

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
)

// Kind selects the Transcribe API family.
type Kind int

const (
	Generic Kind = iota
	Medical
)

func (k Kind) String() string {
	if k == Medical {
		return "medical"
	}
	return "generic"
}

func (k Kind) jobPrefix() string {
	if k == Medical {
		return "MedicalTranscriptionJob"
	}
	return "TranscriptionJob"
}

// JobName derives the remote job name from the media URL. The same URL and
// kind always give the same name, so resubmitting a URL finds the job that
// is already there instead of starting another.
func JobName(sourceURL string, kind Kind) string {
	return fmt.Sprintf("%s_%x", kind.jobPrefix(), md5.Sum([]byte(sourceURL)))
}

type Status string

const (
	StatusNotFound   Status = "NOT_FOUND"
	StatusQueued     Status = "QUEUED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Job struct {
	Name          string
	Kind          Kind
	Status        Status
	TranscriptURI string
	FailureReason string
}

var (
	ErrJobNotFound = errors.New("transcribe: job not found")
	// ErrJobExists is returned by Submit when another caller created the
	// job first.
	ErrJobExists = errors.New("transcribe: job already exists")
)

type SubmitRequest struct {
	Kind         Kind
	Name         string
	MediaURI     string
	OutputBucket string
}

// Provider is the remote job registry.
type Provider interface {
	// Describe returns ErrJobNotFound when no job has the name.
	Describe(ctx context.Context, kind Kind, name string) (Job, error)
	Submit(ctx context.Context, req SubmitRequest) (Job, error)
}

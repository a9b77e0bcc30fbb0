package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"example.com/mediascribe/internal/apperr"
	"example.com/mediascribe/internal/storage"
)

// ParseLocation turns a completed job's transcript URI into the object to
// read from bucket. Transcribe writes generic transcripts at the bucket root
// and medical ones one directory down, e.g.
//
//	https://s3.us-east-1.amazonaws.com/bucket/TranscriptionJob_x.json
//	https://s3.us-east-1.amazonaws.com/bucket/medical/MedicalTranscriptionJob_x.json
//
// The key is taken from fixed "/" positions (4, and 5 for medical). This
// breaks if the provider changes its URI layout.
func ParseLocation(kind Kind, uri, bucket string) (storage.Location, error) {
	parts := strings.Split(uri, "/")
	need := 5
	if kind == Medical {
		need = 6
	}
	if len(parts) < need {
		return storage.Location{}, apperr.StorageParse(
			"Unexpected transcript location",
			fmt.Errorf("transcribe: %s transcript uri %q has %d segments, want at least %d", kind, uri, len(parts), need))
	}

	key := parts[4]
	if kind == Medical {
		key = parts[4] + "/" + parts[5]
	}
	return storage.Location{Bucket: bucket, Key: key}, nil
}

type ObjectReader interface {
	Get(ctx context.Context, loc storage.Location) ([]byte, error)
}

// Fetcher reads transcript documents out of object storage.
type Fetcher struct {
	objects ObjectReader
}

func NewFetcher(objects ObjectReader) *Fetcher {
	return &Fetcher{objects: objects}
}

func (f *Fetcher) Fetch(ctx context.Context, loc storage.Location) (json.RawMessage, error) {
	data, err := f.objects.Get(ctx, loc)
	if errors.Is(err, storage.ErrNoObject) {
		return nil, apperr.Storage("Transcript not found in storage", err)
	}
	if err != nil {
		return nil, apperr.Storage("Failed to read transcript", err)
	}
	if !json.Valid(data) {
		return nil, apperr.StorageParse("Transcript is not valid JSON",
			fmt.Errorf("transcribe: %s is not valid JSON", loc))
	}
	return json.RawMessage(data), nil
}

// Package storage wraps the S3 calls the service needs: upload, list, read.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

var (
	ErrNoObject = errors.New("storage: no object")
	ErrNoBucket = errors.New("storage: no bucket")
)

type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	return "s3://" + l.Bucket + "/" + l.Key
}

// PublicURL is the virtual-hosted style URL of an object.
func PublicURL(loc Location) string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", loc.Bucket, loc.Key)
}

type Object struct {
	Key          string
	LastModified time.Time
	Size         int64
	ETag         string
}

type S3 struct {
	s3       s3iface.S3API
	uploader s3manageriface.UploaderAPI
}

func NewS3(sess *session.Session) *S3 {
	return &S3{
		s3:       s3.New(sess),
		uploader: s3manager.NewUploader(sess),
	}
}

// NewS3WithClients is used when the caller builds its own clients.
func NewS3WithClients(api s3iface.S3API, uploader s3manageriface.UploaderAPI) *S3 {
	return &S3{s3: api, uploader: uploader}
}

// Put streams r to loc with a multipart upload.
func (s *S3) Put(ctx context.Context, loc Location, r io.Reader, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(loc.Bucket),
		Key:         aws.String(loc.Key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	return translate(err)
}

// List returns every object in bucket, following continuation tokens.
func (s *S3) List(ctx context.Context, bucket string) ([]Object, error) {
	var objects []Object
	err := s.s3.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, o := range page.Contents {
			objects = append(objects, Object{
				Key:          aws.StringValue(o.Key),
				LastModified: aws.TimeValue(o.LastModified),
				Size:         aws.Int64Value(o.Size),
				ETag:         aws.StringValue(o.ETag),
			})
		}
		return true
	})
	if err != nil {
		return nil, translate(err)
	}
	return objects, nil
}

// Get reads the whole object.
func (s *S3) Get(ctx context.Context, loc Location) ([]byte, error) {
	obj, err := s.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, translate(err)
	}
	defer obj.Body.Close()
	return io.ReadAll(obj.Body)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey:
			return fmt.Errorf("%w: %v", ErrNoObject, err)
		case s3.ErrCodeNoSuchBucket:
			return fmt.Errorf("%w: %v", ErrNoBucket, err)
		}
	}
	var rerr awserr.RequestFailure
	if errors.As(err, &rerr) && rerr.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%w: %v", ErrNoObject, err)
	}
	return err
}

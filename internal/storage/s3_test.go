package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
	pages   [][]*s3.Object
	listErr error
	getKeys []string
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	key := aws.StringValue(in.Bucket) + "/" + aws.StringValue(in.Key)
	f.getKeys = append(f.getKeys, key)
	data, ok := f.objects[key]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "The specified key does not exist.", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) ListObjectsV2PagesWithContext(_ aws.Context, _ *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool, _ ...request.Option) error {
	if f.listErr != nil {
		return f.listErr
	}
	for i, p := range f.pages {
		if !fn(&s3.ListObjectsV2Output{Contents: p}, i == len(f.pages)-1) {
			break
		}
	}
	return nil
}

type fakeUploader struct {
	s3manageriface.UploaderAPI
	inputs []*s3manager.UploadInput
	body   []byte
}

func (f *fakeUploader) UploadWithContext(_ aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	f.inputs = append(f.inputs, in)
	f.body, _ = io.ReadAll(in.Body)
	return &s3manager.UploadOutput{}, nil
}

func TestGet(t *testing.T) {
	api := &fakeS3{objects: map[string][]byte{"transcripts/job.json": []byte(`{"ok":true}`)}}
	s := NewS3WithClients(api, nil)

	data, err := s.Get(context.Background(), Location{Bucket: "transcripts", Key: "job.json"})
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("Get() = %s", data)
	}

	_, err = s.Get(context.Background(), Location{Bucket: "transcripts", Key: "missing.json"})
	if !errors.Is(err, ErrNoObject) {
		t.Errorf("Get(missing) error = %v, want ErrNoObject", err)
	}
}

func TestList(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	api := &fakeS3{pages: [][]*s3.Object{
		{{Key: aws.String("a.mp4"), LastModified: aws.Time(ts), Size: aws.Int64(10), ETag: aws.String(`"e1"`)}},
		{{Key: aws.String("b.mp4"), LastModified: aws.Time(ts), Size: aws.Int64(20), ETag: aws.String(`"e2"`)}},
	}}
	s := NewS3WithClients(api, nil)

	objs, err := s.List(context.Background(), "media")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(objs) != 2 || objs[1].Key != "b.mp4" || objs[1].Size != 20 || objs[0].ETag != `"e1"` {
		t.Errorf("List() = %+v", objs)
	}
}

func TestList_NoSuchBucket(t *testing.T) {
	api := &fakeS3{listErr: awserr.New(s3.ErrCodeNoSuchBucket, "The specified bucket does not exist", nil)}
	_, err := NewS3WithClients(api, nil).List(context.Background(), "nope")
	if !errors.Is(err, ErrNoBucket) {
		t.Errorf("List() error = %v, want ErrNoBucket", err)
	}
}

func TestPut(t *testing.T) {
	up := &fakeUploader{}
	s := NewS3WithClients(nil, up)

	err := s.Put(context.Background(), Location{Bucket: "media", Key: "talk.mp4"}, bytes.NewReader([]byte("data")), "video/mp4")
	if err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if len(up.inputs) != 1 {
		t.Fatalf("uploads = %d, want 1", len(up.inputs))
	}
	in := up.inputs[0]
	if aws.StringValue(in.Bucket) != "media" || aws.StringValue(in.Key) != "talk.mp4" || aws.StringValue(in.ContentType) != "video/mp4" {
		t.Errorf("upload input = %+v", in)
	}
	if string(up.body) != "data" {
		t.Errorf("body = %q", up.body)
	}
}

func TestPublicURL(t *testing.T) {
	got := PublicURL(Location{Bucket: "media", Key: "talk.mp4"})
	if got != "https://media.s3.amazonaws.com/talk.mp4" {
		t.Errorf("PublicURL() = %q", got)
	}
}

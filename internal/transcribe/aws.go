package transcribe

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/transcribeservice"
	"github.com/aws/aws-sdk-go/service/transcribeservice/transcribeserviceiface"
)

const (
	mediaFormat      = transcribeservice.MediaFormatMp4
	languageCode     = transcribeservice.LanguageCodeEnUs
	medicalSpecialty = transcribeservice.SpecialtyPrimarycare
	medicalType      = transcribeservice.TypeDictation
)

// AWSProvider runs jobs on AWS Transcribe.
type AWSProvider struct {
	svc transcribeserviceiface.TranscribeServiceAPI
}

func NewAWSProvider(sess *session.Session) *AWSProvider {
	return &AWSProvider{svc: transcribeservice.New(sess)}
}

func NewAWSProviderWithClient(svc transcribeserviceiface.TranscribeServiceAPI) *AWSProvider {
	return &AWSProvider{svc: svc}
}

func (p *AWSProvider) Describe(ctx context.Context, kind Kind, name string) (Job, error) {
	if kind == Medical {
		out, err := p.svc.GetMedicalTranscriptionJobWithContext(ctx, &transcribeservice.GetMedicalTranscriptionJobInput{
			MedicalTranscriptionJobName: aws.String(name),
		})
		if err != nil {
			return Job{}, describeError(name, err)
		}
		return medicalJob(out.MedicalTranscriptionJob), nil
	}

	out, err := p.svc.GetTranscriptionJobWithContext(ctx, &transcribeservice.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(name),
	})
	if err != nil {
		return Job{}, describeError(name, err)
	}
	return genericJob(out.TranscriptionJob), nil
}

func (p *AWSProvider) Submit(ctx context.Context, req SubmitRequest) (Job, error) {
	media := &transcribeservice.Media{MediaFileUri: aws.String(req.MediaURI)}

	if req.Kind == Medical {
		out, err := p.svc.StartMedicalTranscriptionJobWithContext(ctx, &transcribeservice.StartMedicalTranscriptionJobInput{
			MedicalTranscriptionJobName: aws.String(req.Name),
			Media:                       media,
			MediaFormat:                 aws.String(mediaFormat),
			LanguageCode:                aws.String(languageCode),
			OutputBucketName:            aws.String(req.OutputBucket),
			Specialty:                   aws.String(medicalSpecialty),
			Type:                        aws.String(medicalType),
		})
		if err != nil {
			return Job{}, submitError(req.Name, err)
		}
		return medicalJob(out.MedicalTranscriptionJob), nil
	}

	out, err := p.svc.StartTranscriptionJobWithContext(ctx, &transcribeservice.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(req.Name),
		Media:                media,
		MediaFormat:          aws.String(mediaFormat),
		LanguageCode:         aws.String(languageCode),
		OutputBucketName:     aws.String(req.OutputBucket),
	})
	if err != nil {
		return Job{}, submitError(req.Name, err)
	}
	return genericJob(out.TranscriptionJob), nil
}

func genericJob(j *transcribeservice.TranscriptionJob) Job {
	if j == nil {
		return Job{Kind: Generic, Status: StatusNotFound}
	}
	job := Job{
		Name:          aws.StringValue(j.TranscriptionJobName),
		Kind:          Generic,
		Status:        Status(aws.StringValue(j.TranscriptionJobStatus)),
		FailureReason: aws.StringValue(j.FailureReason),
	}
	if j.Transcript != nil {
		job.TranscriptURI = aws.StringValue(j.Transcript.TranscriptFileUri)
	}
	return job
}

func medicalJob(j *transcribeservice.MedicalTranscriptionJob) Job {
	if j == nil {
		return Job{Kind: Medical, Status: StatusNotFound}
	}
	job := Job{
		Name:          aws.StringValue(j.MedicalTranscriptionJobName),
		Kind:          Medical,
		Status:        Status(aws.StringValue(j.TranscriptionJobStatus)),
		FailureReason: aws.StringValue(j.FailureReason),
	}
	if j.Transcript != nil {
		job.TranscriptURI = aws.StringValue(j.Transcript.TranscriptFileUri)
	}
	return job
}

// Transcribe answers Get* for an unknown name with BadRequestException.
func describeError(name string, err error) error {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case transcribeservice.ErrCodeBadRequestException, transcribeservice.ErrCodeNotFoundException:
			return fmt.Errorf("%w: %s", ErrJobNotFound, name)
		}
	}
	return err
}

func submitError(name string, err error) error {
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == transcribeservice.ErrCodeConflictException {
		return fmt.Errorf("%w: %s", ErrJobExists, name)
	}
	return err
}

// Package cloud builds the AWS session shared by every AWS client.
package cloud

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"

	"example.com/mediascribe/internal/config"
)

// NewSession uses the static key pair from cfg when both halves are set and
// the default credential chain (environment, shared config, instance role)
// otherwise.
func NewSession(cfg config.AWSConfig) (*session.Session, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("cloud: new session: %w", err)
	}
	return sess, nil
}

package cloud

import (
	"testing"

	"example.com/mediascribe/internal/config"
)

func TestNewSessionStaticCredentials(t *testing.T) {
	sess, err := NewSession(config.AWSConfig{Region: "eu-west-1", AccessKeyID: "AKID", SecretAccessKey: "SECRET"})
	if err != nil {
		t.Fatal(err)
	}
	if got := *sess.Config.Region; got != "eu-west-1" {
		t.Errorf("region = %q", got)
	}
	v, err := sess.Config.Credentials.Get()
	if err != nil {
		t.Fatal(err)
	}
	if v.AccessKeyID != "AKID" || v.SecretAccessKey != "SECRET" {
		t.Errorf("credentials = %+v", v)
	}
}

func TestNewSessionHalfKeyUsesDefaultChain(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "ENVKEY")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "ENVSECRET")
	sess, err := NewSession(config.AWSConfig{Region: "us-east-1", AccessKeyID: "AKID"})
	if err != nil {
		t.Fatal(err)
	}
	v, err := sess.Config.Credentials.Get()
	if err != nil {
		t.Fatal(err)
	}
	if v.AccessKeyID != "ENVKEY" {
		t.Errorf("access key = %q, want the environment's", v.AccessKeyID)
	}
}

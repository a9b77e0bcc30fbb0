// Package config loads service configuration from an optional config.yml, an
// optional .env file and the environment, in that order of precedence
// (environment wins).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"example.com/mediascribe/internal/poll"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	AWS     AWSConfig     `mapstructure:"aws"`
	Cognito CognitoConfig `mapstructure:"cognito"`
	OpenAI  OpenAIConfig  `mapstructure:"openai"`
	Log     LogConfig     `mapstructure:"log"`

	Summary        SummaryConfig `mapstructure:"summary"`
	TranscribePoll poll.Config   `mapstructure:"transcribe_poll"`
	RunPoll        poll.Config   `mapstructure:"run_poll"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	// UploadDir holds temporary artifacts staged for the assistant path.
	UploadDir string `mapstructure:"upload_dir"`
	// MaxUploadBytes bounds multipart request bodies.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

type AWSConfig struct {
	Region            string `mapstructure:"region"`
	AccessKeyID       string `mapstructure:"access_key_id"`
	SecretAccessKey   string `mapstructure:"secret_access_key"`
	Bucket            string `mapstructure:"bucket"`
	TranscriptsBucket string `mapstructure:"transcripts_bucket"`
}

type CognitoConfig struct {
	UserPoolID string `mapstructure:"user_pool_id"`
	ClientID   string `mapstructure:"client_id"`
	// AutoConfirm confirms new users with AdminConfirmSignUp so they can log
	// in straight after registering.
	AutoConfirm bool `mapstructure:"auto_confirm"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SummaryConfig struct {
	TokenCeiling int    `mapstructure:"token_ceiling"`
	Encoding     string `mapstructure:"encoding"`
}

// defaults doubles as the list of keys bound to environment variables:
// "aws.region" is read from AWS_REGION.
var defaults = map[string]any{
	"server.port":             "8000",
	"server.upload_dir":       "./uploads",
	"server.max_upload_bytes": int64(512 << 20),

	"aws.region":             "us-east-1",
	"aws.access_key_id":      "",
	"aws.secret_access_key":  "",
	"aws.bucket":             "",
	"aws.transcripts_bucket": "",

	"cognito.user_pool_id": "",
	"cognito.client_id":    "",
	"cognito.auto_confirm": false,

	"openai.api_key":  "",
	"openai.base_url": "",
	"openai.model":    "gpt-4o",

	"log.level":  "info",
	"log.format": "json",

	"summary.token_ceiling": 10000,
	"summary.encoding":      "cl100k_base",

	"transcribe_poll.interval":     5 * time.Second,
	"transcribe_poll.multiplier":   1.5,
	"transcribe_poll.max_interval": 30 * time.Second,
	"transcribe_poll.max_attempts": 240,
	"transcribe_poll.timeout":      30 * time.Minute,

	"run_poll.interval":     2 * time.Second,
	"run_poll.multiplier":   1.5,
	"run_poll.max_interval": 10 * time.Second,
	"run_poll.max_attempts": 150,
	"run_poll.timeout":      10 * time.Minute,
}

// Options selects explicit files. Empty paths fall back to ./config.yml and
// ./.env when they exist.
type Options struct {
	ConfigFile string
	EnvFile    string
}

func Load(opts Options) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	configFile := opts.ConfigFile
	if configFile == "" && exists("config.yml") {
		configFile = "config.yml"
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	envFile := opts.EnvFile
	if envFile == "" && exists(".env") {
		envFile = ".env"
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

// Validate reports the required keys that are still empty.
func (c *Config) Validate() error {
	var missing []string
	if c.AWS.Bucket == "" {
		missing = append(missing, "aws.bucket")
	}
	if c.AWS.TranscriptsBucket == "" {
		missing = append(missing, "aws.transcripts_bucket")
	}
	if c.Cognito.UserPoolID == "" {
		missing = append(missing, "cognito.user_pool_id")
	}
	if c.Cognito.ClientID == "" {
		missing = append(missing, "cognito.client_id")
	}
	if c.OpenAI.APIKey == "" {
		missing = append(missing, "openai.api_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required keys: %s", strings.Join(missing, ", "))
	}
	if c.Summary.TokenCeiling <= 0 {
		return fmt.Errorf("config: summary.token_ceiling must be positive (got %d)", c.Summary.TokenCeiling)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

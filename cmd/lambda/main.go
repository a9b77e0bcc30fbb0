package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-lambda-go/lambda"

	"example.com/mediascribe/internal/app"
	"example.com/mediascribe/internal/config"
	"example.com/mediascribe/internal/lambdaproxy"
	"example.com/mediascribe/internal/logging"
)

func main() {
	cfg, err := config.Load(config.Options{})
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if os.Getenv("SERVER_UPLOAD_DIR") == "" {
		// Only /tmp is writable inside the Lambda sandbox.
		cfg.Server.UploadDir = filepath.Join(os.TempDir(), "uploads")
	}
	log := logging.New(cfg.Log, "mediascribe-lambda")

	server, err := app.NewServer(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("wiring failed")
	}
	lambda.Start(lambdaproxy.New(server.Handler()).Handle)
}

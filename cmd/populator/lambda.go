package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"crashloader/internal/config"
	"crashloader/internal/logging"
	"crashloader/internal/populator"
)

// invocation is the optional event shape. Any other payload runs every
// configured dataset.
type invocation struct {
	Datasets []string `json:"datasets"`
}

func startLambda() {
	fs := pflag.NewFlagSet("lambda", pflag.ContinueOnError)
	cfg, err := config.LoadFromArgs(fs, os.Getenv, nil)
	if err != nil {
		fatalf("config: %v", err)
	}
	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fatalf("%v", err)
	}
	if err := checkConfig(cfg, logger); err != nil {
		fatalf("%v", err)
	}
	lambda.Start(newHandler(cfg, logger))
}

// newHandler returns the Lambda handler. The report is the response; a
// failed run is returned as the invocation error.
func newHandler(cfg *config.Config, logger *logrus.Logger) func(context.Context, json.RawMessage) (populator.Report, error) {
	return func(ctx context.Context, event json.RawMessage) (populator.Report, error) {
		var inv invocation
		if err := json.Unmarshal(event, &inv); err != nil {
			logger.WithError(err).Debug("event is not a dataset selection; loading everything")
			inv = invocation{}
		}
		flush := setupMetrics(cfg, logger)
		defer flush()

		return load(ctx, cfg, logger, inv.Datasets)
	}
}

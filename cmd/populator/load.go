package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/sirupsen/logrus"

	"crashloader/internal/config"
	"crashloader/internal/metrics"
	"crashloader/internal/metrics/datadog"
	"crashloader/internal/metrics/prompush"
	"crashloader/internal/objectstore"
	"crashloader/internal/objectstore/s3"
	"crashloader/internal/populator"
	"crashloader/internal/storage"
)

// load runs one populator pass. names restricts the run to those datasets.
// It is a variable so the Lambda handler can be tested without AWS.
var load = func(ctx context.Context, cfg *config.Config, log *logrus.Logger, names []string) (populator.Report, error) {
	opts, err := cfg.Options()
	if err != nil {
		return populator.Report{Status: populator.StatusFailed, Error: err.Error()}, err
	}
	if opts.Sources, err = populator.SelectSources(opts.Sources, names); err != nil {
		return populator.Report{Status: populator.StatusFailed, Error: err.Error()}, err
	}

	objects, err := openObjects(ctx, cfg)
	if err != nil {
		return populator.Report{Status: populator.StatusFailed, Error: err.Error()}, err
	}

	var awsCfg aws.Config
	if cfg.StorageKind == "rdsdata" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			err = fmt.Errorf("load aws config: %w", err)
			return populator.Report{Status: populator.StatusFailed, Error: err.Error()}, err
		}
	}
	backend, err := storage.New(ctx, storage.Config{
		Kind:       cfg.StorageKind,
		ClusterARN: cfg.ClusterARN,
		SecretARN:  cfg.SecretARN,
		AWS:        awsCfg,
		DSN:        cfg.DSN,
		Objects:    objects,
		Logger:     log,
	})
	if err != nil {
		return populator.Report{Status: populator.StatusFailed, Error: err.Error()}, err
	}
	defer backend.Close()

	p, err := populator.New(opts, populator.Deps{
		Objects:  objects,
		Executor: backend,
		Importer: backend,
		Logger:   log,
	})
	if err != nil {
		return populator.Report{Status: populator.StatusFailed, Error: err.Error()}, err
	}
	return p.Run(ctx)
}

// openObjects is a variable so commands can be tested without S3.
var openObjects = func(ctx context.Context, cfg *config.Config) (objectstore.Store, error) {
	return s3.New(ctx, s3.Config{
		Region:    cfg.Region,
		Endpoint:  cfg.S3Endpoint,
		PathStyle: cfg.S3PathStyle,
	})
}

// setupMetrics installs the configured backend and returns its flush.
// Initialization failures leave the nop backend in place.
func setupMetrics(cfg *config.Config, log logrus.FieldLogger) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch cfg.MetricsBackend {
	case "prompush":
		b, err = prompush.NewBackend(cfg.MetricsJob, cfg.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       cfg.DogStatsDAddr,
			Namespace:  "crashloader.",
			GlobalTags: []string{"job:" + cfg.MetricsJob},
		})
	case "", "none":
		return func() {}
	default:
		log.WithField("backend", cfg.MetricsBackend).Warn("metrics: unknown backend; metrics disabled")
		return func() {}
	}
	if err != nil {
		log.WithError(err).Warn("metrics: backend init failed; using nop")
		return func() {}
	}
	log.WithField("backend", cfg.MetricsBackend).Info("metrics enabled")
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.WithError(err).Warn("metrics: flush error")
		}
	}
}

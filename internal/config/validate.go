package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"crashloader/internal/dataset"
	"crashloader/internal/pgsql"
	"crashloader/internal/populator"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path names the flag the
// finding is about, or "sources[i].field" for sources file entries.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static validation of cfg. It never touches the network.
func Validate(cfg *Config) []Issue {
	var issues []Issue
	errorf := func(path, format string, args ...any) {
		issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)})
	}
	warnf := func(path, format string, args ...any) {
		issues = append(issues, Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	// Database
	if strings.TrimSpace(cfg.DatabaseName) == "" {
		errorf("database_name", "database_name must not be empty")
	} else if err := pgsql.ValidateDatabaseName(cfg.DatabaseName); err != nil {
		errorf("database_name", "%v", err)
	} else if cfg.DatabaseName == cfg.AdminDatabase {
		errorf("database_name", "target database must differ from admin_database %q", cfg.AdminDatabase)
	}
	if _, err := populator.ParseStrategy(cfg.PrepareMode); err != nil {
		errorf("prepare_mode", "%v", err)
	}
	if err := pgsql.ValidateExtensions(cfg.Extensions); err != nil {
		errorf("extensions", "%v", err)
	}
	if !slices.Contains(cfg.Extensions, "postgis") {
		warnf("extensions", "postgis is not enabled; geometry columns will fail to create unless it is already installed")
	}

	switch cfg.StorageKind {
	case "rdsdata":
		if cfg.ClusterARN == "" {
			errorf("cluster_arn", "rdsdata storage requires cluster_arn")
		} else if !strings.HasPrefix(cfg.ClusterARN, "arn:") {
			warnf("cluster_arn", "%q does not look like an ARN", cfg.ClusterARN)
		}
		if cfg.SecretARN == "" {
			errorf("secret_arn", "rdsdata storage requires secret_arn")
		} else if !strings.HasPrefix(cfg.SecretARN, "arn:") {
			warnf("secret_arn", "%q does not look like an ARN", cfg.SecretARN)
		}
		if !slices.Contains(cfg.Extensions, "aws_s3") {
			errorf("extensions", "rdsdata storage imports through aws_s3; add it to extensions")
		}
	case "postgres":
		if cfg.DSN == "" {
			errorf("dsn", "postgres storage requires dsn")
		}
	case "":
		errorf("storage_kind", "storage_kind must not be empty")
	default:
		errorf("storage_kind", "unknown storage kind %q (want rdsdata or postgres)", cfg.StorageKind)
	}

	// Sources
	if cfg.SourceBucket != "" && cfg.SourceKey == "" {
		errorf("source_key", "source_key is required when source_bucket is set")
	}
	if cfg.SourceKey != "" && cfg.SourceBucket == "" {
		errorf("source_bucket", "source_bucket is required when source_key is set")
	}
	specs := cfg.AllSources()
	if len(specs) == 0 {
		errorf("sources", "no sources configured; set source_bucket/source_key or sources_file")
	}
	fromFile := 0
	if cfg.SourceBucket != "" || cfg.SourceKey != "" {
		fromFile = 1
	}
	seen := map[string]bool{}
	for i, s := range specs {
		path := "dataset"
		if i >= fromFile {
			path = fmt.Sprintf("sources[%d]", i-fromFile)
		}
		if _, err := dataset.Lookup(s.Dataset); err != nil {
			errorf(path, "%v (known: %s)", err, strings.Join(dataset.Names(), ", "))
		}
		if seen[s.Dataset] {
			errorf(path, "dataset %s configured more than once", s.Dataset)
		}
		seen[s.Dataset] = true
		if s.SourceBucket == "" || s.SourceKey == "" {
			errorf(path, "source bucket and key are required")
		}
		if s.DestinationBucket == "" {
			errorf(path, "destination bucket is required")
		}
		if cfg.DeleteStaged && s.SourceBucket == s.DestinationBucket && s.SourceKey == s.DestinationKey {
			warnf(path, "destination equals source; delete_staged is ignored for this dataset")
		}
	}

	// Object store
	if cfg.S3PathStyle && cfg.S3Endpoint == "" {
		warnf("s3_path_style", "path-style addressing without a custom s3_endpoint")
	}

	// Observability
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		errorf("log_level", "%v", err)
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		errorf("log_format", "unknown log format %q (want json or text)", cfg.LogFormat)
	}
	switch cfg.MetricsBackend {
	case "", "none":
	case "prompush":
		if cfg.PushgatewayURL == "" {
			errorf("pushgateway_url", "prompush metrics require pushgateway_url")
		}
	case "datadog":
		if cfg.DogStatsDAddr == "" {
			errorf("dogstatsd_addr", "datadog metrics require dogstatsd_addr")
		}
	default:
		errorf("metrics_backend", "unknown metrics backend %q", cfg.MetricsBackend)
	}

	return issues
}

// Err joins the error-severity issues into one error, or returns nil.
func Err(issues []Issue) error {
	var errs []error
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			errs = append(errs, iss)
		}
	}
	return errors.Join(errs...)
}

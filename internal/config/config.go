// Package config centralizes populator configuration. Every tunable is a
// command-line flag whose default is seeded from an environment variable, so
// the same binary runs unchanged as a Lambda function (environment only) and
// as a local CLI (flags and .env files).
//
// For tests, prefer LoadFromArgs to keep them hermetic:
//
//	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
//	getenv := func(k string) string { return testEnv[k] }
//	cfg, err := config.LoadFromArgs(fs, getenv, []string{"--verify_copy"})
package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"crashloader/internal/objectstore"
	"crashloader/internal/populator"
)

// Config holds all process configuration derived from flags and environment
// variables. It is a plain value after Resolve.
type Config struct {
	// Single source, the original deployment shape.
	SourceBucket      string
	SourceKey         string
	DestinationBucket string
	DestinationKey    string // defaults to SourceKey
	Dataset           string

	// SourcesFile is an optional YAML file with further sources.
	SourcesFile string
	Sources     []SourceSpec

	// Database target.
	StorageKind   string // "rdsdata" or "postgres"
	ClusterARN    string
	SecretARN     string
	DSN           string
	DatabaseName  string
	AdminDatabase string
	PrepareMode   string
	Extensions    []string

	Region       string
	S3Endpoint   string
	S3PathStyle  bool
	VerifyCopy   bool
	DeleteStaged bool

	LogLevel  string
	LogFormat string

	MetricsBackend string // "", "none", "prompush" or "datadog"
	PushgatewayURL string
	DogStatsDAddr  string
	MetricsJob     string
}

// SourceSpec is one entry of the sources file.
type SourceSpec struct {
	Dataset           string `yaml:"dataset"`
	SourceBucket      string `yaml:"source_bucket"`
	SourceKey         string `yaml:"source_key"`
	DestinationBucket string `yaml:"destination_bucket"`
	DestinationKey    string `yaml:"destination_key"`
}

// Define registers every flag on fs with its environment-seeded default and
// returns the Config the flags write into. Call Resolve after fs is parsed.
func Define(fs *pflag.FlagSet, getenv func(string) string) *Config {
	cfg := &Config{}

	envOrDefault := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	boolEnvOrDefault := func(k string, d bool) bool {
		if v := getenv(k); v != "" {
			if b, ok := parseBool(v); ok {
				return b
			}
		}
		return d
	}

	// Objects
	fs.StringVar(&cfg.SourceBucket, "source_bucket", getenv("SOURCE_DATA_BUCKET"), "Bucket holding the raw dataset file")
	fs.StringVar(&cfg.SourceKey, "source_key", getenv("SOURCE_DATA_KEY"), "Object key of the raw dataset file")
	fs.StringVar(&cfg.DestinationBucket, "destination_bucket", getenv("DESTINATION_BUCKET"), "Project bucket the file is staged into")
	fs.StringVar(&cfg.DestinationKey, "destination_key", getenv("DESTINATION_KEY"), "Staged object key (defaults to the source key)")
	fs.StringVar(&cfg.Dataset, "dataset", envOrDefault("DATASET", "nyc_crashes"), "Dataset of the single configured source")
	fs.StringVar(&cfg.SourcesFile, "sources_file", getenv("SOURCES_FILE"), "YAML file listing further sources")

	// Database
	fs.StringVar(&cfg.StorageKind, "storage_kind", envOrDefault("STORAGE_KIND", "rdsdata"), "Statement backend: 'rdsdata' or 'postgres'")
	fs.StringVar(&cfg.ClusterARN, "cluster_arn", getenv("CLUSTER_ARN"), "Aurora cluster ARN (rdsdata)")
	fs.StringVar(&cfg.SecretARN, "secret_arn", getenv("SECRET_ARN"), "Secrets Manager ARN with database credentials (rdsdata)")
	fs.StringVar(&cfg.DSN, "dsn", getenv("DB_DSN"), "Postgres connection string (postgres)")
	fs.StringVar(&cfg.DatabaseName, "database_name", getenv("DATABASE_NAME"), "Target database")
	fs.StringVar(&cfg.AdminDatabase, "admin_database", envOrDefault("ADMIN_DATABASE", "postgres"), "Database used to create or drop the target")
	fs.StringVar(&cfg.PrepareMode, "prepare_mode", envOrDefault("DB_PREPARE_MODE", string(populator.StrategyCreate)), "Database preparation: 'create' or 'reset'")
	fs.StringSliceVar(&cfg.Extensions, "extensions", splitList(getenv("DB_EXTENSIONS")), "Extensions enabled in the target database (default postgis,aws_s3 for rdsdata, postgis for postgres)")

	// AWS
	fs.StringVar(&cfg.Region, "region", envOrDefault("AWS_REGION", envOrDefault("AWS_DEFAULT_REGION", "us-east-1")), "AWS region")
	fs.StringVar(&cfg.S3Endpoint, "s3_endpoint", getenv("S3_ENDPOINT"), "Custom S3 endpoint (MinIO and friends)")
	fs.BoolVar(&cfg.S3PathStyle, "s3_path_style", boolEnvOrDefault("S3_PATH_STYLE", false), "Use path-style S3 addressing")
	fs.BoolVar(&cfg.VerifyCopy, "verify_copy", boolEnvOrDefault("VERIFY_COPY", false), "Compare digests of source and staged objects")
	fs.BoolVar(&cfg.DeleteStaged, "delete_staged", boolEnvOrDefault("DELETE_DESTINATION_AFTER_LOAD", false), "Delete the staged object after a successful load")

	// Observability
	fs.StringVar(&cfg.LogLevel, "log_level", envOrDefault("LOG_LEVEL", "info"), "Log level")
	fs.StringVar(&cfg.LogFormat, "log_format", envOrDefault("LOG_FORMAT", "json"), "Log format: 'json' or 'text'")
	fs.StringVar(&cfg.MetricsBackend, "metrics_backend", getenv("METRICS_BACKEND"), "Metrics backend: 'prompush', 'datadog' or empty")
	fs.StringVar(&cfg.PushgatewayURL, "pushgateway_url", getenv("PUSHGATEWAY_URL"), "Prometheus Pushgateway URL")
	fs.StringVar(&cfg.DogStatsDAddr, "dogstatsd_addr", envOrDefault("DOGSTATSD_ADDR", "127.0.0.1:8125"), "DogStatsD address")
	fs.StringVar(&cfg.MetricsJob, "metrics_job", envOrDefault("METRICS_JOB", "populator"), "Metrics job label")

	return cfg
}

// LoadFromArgs defines flags on fs, parses args and resolves the result.
//
// Precedence:
//  1. Environment values seed each flag's default.
//  2. Explicit flags in args override the seeded defaults.
func LoadFromArgs(fs *pflag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := Define(fs, getenv)
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Resolve(os.ReadFile); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve fills derived defaults and reads the sources file through
// readFile.
func (c *Config) Resolve(readFile func(string) ([]byte, error)) error {
	if c.DestinationKey == "" {
		c.DestinationKey = c.SourceKey
	}
	if len(c.Extensions) == 0 {
		c.Extensions = []string{"postgis", "aws_s3"}
		if c.StorageKind == "postgres" {
			c.Extensions = []string{"postgis"}
		}
	}
	if c.SourcesFile == "" {
		return nil
	}
	b, err := readFile(c.SourcesFile)
	if err != nil {
		return fmt.Errorf("config: read sources file: %w", err)
	}
	specs, err := ParseSources(b)
	if err != nil {
		return fmt.Errorf("config: %s: %w", c.SourcesFile, err)
	}
	c.Sources = specs
	return nil
}

// ParseSources decodes a sources file. Unknown fields are rejected.
func ParseSources(b []byte) ([]SourceSpec, error) {
	var doc struct {
		Sources []SourceSpec `yaml:"sources"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	return doc.Sources, nil
}

// AllSources returns the environment source, when configured, followed by
// the sources file entries. Blank destinations fall back to the configured
// destination bucket and the entry's source key.
func (c *Config) AllSources() []SourceSpec {
	var out []SourceSpec
	if c.SourceBucket != "" || c.SourceKey != "" {
		out = append(out, SourceSpec{
			Dataset:           c.Dataset,
			SourceBucket:      c.SourceBucket,
			SourceKey:         c.SourceKey,
			DestinationBucket: c.DestinationBucket,
			DestinationKey:    c.DestinationKey,
		})
	}
	for _, s := range c.Sources {
		if s.DestinationBucket == "" {
			s.DestinationBucket = c.DestinationBucket
		}
		if s.DestinationKey == "" {
			s.DestinationKey = s.SourceKey
		}
		out = append(out, s)
	}
	return out
}

// Options maps the configuration onto populator options.
func (c *Config) Options() (populator.Options, error) {
	strategy, err := populator.ParseStrategy(c.PrepareMode)
	if err != nil {
		return populator.Options{}, err
	}
	specs := c.AllSources()
	sources := make([]populator.Source, 0, len(specs))
	for _, s := range specs {
		sources = append(sources, populator.Source{
			Dataset: s.Dataset,
			From:    objectstore.Location{Bucket: s.SourceBucket, Key: s.SourceKey},
			To:      objectstore.Location{Bucket: s.DestinationBucket, Key: s.DestinationKey},
		})
	}
	return populator.Options{
		Database:      c.DatabaseName,
		AdminDatabase: c.AdminDatabase,
		Region:        c.Region,
		Strategy:      strategy,
		Extensions:    c.Extensions,
		Sources:       sources,
		VerifyCopy:    c.VerifyCopy,
		DeleteStaged:  c.DeleteStaged,
		Job:           c.MetricsJob,
	}, nil
}

// parseBool accepts the usual truthy/falsey spellings, case-insensitively.
func parseBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b, true
	}
	return false, false
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

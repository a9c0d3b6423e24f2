package config

import (
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/spf13/pflag"

	"crashloader/internal/objectstore"
	"crashloader/internal/populator"
)

// TestLoadFromArgs_EnvAndFlagPrecedence checks that environment seeds the
// defaults and explicit flags override them.
func TestLoadFromArgs_EnvAndFlagPrecedence(t *testing.T) {
	t.Parallel()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	env := map[string]string{
		"SOURCE_DATA_BUCKET": "nyc-open-data",
		"SOURCE_DATA_KEY":    "crashes.csv",
		"DESTINATION_BUCKET": "project",
		"DATABASE_NAME":      "nycrashes",
		"STORAGE_KIND":       "postgres",
		"DB_EXTENSIONS":      "postgis, aws_s3",
		"VERIFY_COPY":        "yes",
		"AWS_DEFAULT_REGION": "eu-west-1",
	}
	getenv := func(k string) string { return env[k] }

	cfg, err := LoadFromArgs(fs, getenv, []string{"--database_name=other", "--prepare_mode=reset"})
	if err != nil {
		t.Fatalf("LoadFromArgs: %v", err)
	}
	if cfg.SourceBucket != "nyc-open-data" || cfg.StorageKind != "postgres" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.DestinationKey != "crashes.csv" {
		t.Fatalf("destination key should default to source key, got %q", cfg.DestinationKey)
	}
	if cfg.DatabaseName != "other" || cfg.PrepareMode != "reset" {
		t.Fatalf("flag override not applied: %+v", cfg)
	}
	if !cfg.VerifyCopy {
		t.Fatalf("bool env not applied")
	}
	if want := []string{"postgis", "aws_s3"}; !reflect.DeepEqual(cfg.Extensions, want) {
		t.Fatalf("extensions = %v, want %v", cfg.Extensions, want)
	}
	if cfg.Region != "eu-west-1" {
		t.Fatalf("region fallback not applied: %q", cfg.Region)
	}
}

// TestLoadFromArgs_Defaults ensures an empty environment yields the
// documented defaults.
func TestLoadFromArgs_Defaults(t *testing.T) {
	t.Parallel()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg, err := LoadFromArgs(fs, func(string) string { return "" }, nil)
	if err != nil {
		t.Fatalf("LoadFromArgs: %v", err)
	}
	checks := map[string][2]string{
		"dataset":        {cfg.Dataset, "nyc_crashes"},
		"storage_kind":   {cfg.StorageKind, "rdsdata"},
		"admin_database": {cfg.AdminDatabase, "postgres"},
		"prepare_mode":   {cfg.PrepareMode, "create"},
		"region":         {cfg.Region, "us-east-1"},
		"log_format":     {cfg.LogFormat, "json"},
		"metrics_job":    {cfg.MetricsJob, "populator"},
	}
	for name, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s = %q, want %q", name, c[0], c[1])
		}
	}
	if cfg.VerifyCopy || cfg.DeleteStaged || cfg.S3PathStyle {
		t.Errorf("bool defaults should be false: %+v", cfg)
	}
	if want := []string{"postgis", "aws_s3"}; !reflect.DeepEqual(cfg.Extensions, want) {
		t.Errorf("extensions = %v, want %v", cfg.Extensions, want)
	}

	fs = pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg, err = LoadFromArgs(fs, func(k string) string {
		if k == "STORAGE_KIND" {
			return "postgres"
		}
		return ""
	}, nil)
	if err != nil {
		t.Fatalf("LoadFromArgs: %v", err)
	}
	if want := []string{"postgis"}; !reflect.DeepEqual(cfg.Extensions, want) {
		t.Errorf("postgres extensions = %v, want %v", cfg.Extensions, want)
	}
}

func TestLoadFromArgs_BadFlag(t *testing.T) {
	t.Parallel()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.SetOutput(discard{})
	if _, err := LoadFromArgs(fs, func(string) string { return "" }, []string{"--no_such_flag"}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseBool(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"1", "true", "True", "YES", "On", "t"} {
		if b, ok := parseBool(v); !ok || !b {
			t.Errorf("%q should be true", v)
		}
	}
	for _, v := range []string{"0", "false", "False", "no", "OFF", "F"} {
		if b, ok := parseBool(v); !ok || b {
			t.Errorf("%q should be false", v)
		}
	}
	if _, ok := parseBool("maybe"); ok {
		t.Error("maybe should not parse")
	}
}

const sourcesYAML = `
sources:
  - dataset: ca_crashes
    source_bucket: chp-exports
    source_key: 2024/crashes.csv
  - dataset: ca_parties
    source_bucket: chp-exports
    source_key: 2024/parties.csv
    destination_bucket: other
    destination_key: parties.csv
`

func TestResolve_SourcesFile(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		SourceBucket:      "nyc-open-data",
		SourceKey:         "crashes.csv",
		DestinationBucket: "project",
		Dataset:           "nyc_crashes",
		SourcesFile:       "sources.yaml",
	}
	read := func(name string) ([]byte, error) {
		if name != "sources.yaml" {
			return nil, os.ErrNotExist
		}
		return []byte(sourcesYAML), nil
	}
	if err := cfg.Resolve(read); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	got := cfg.AllSources()
	want := []SourceSpec{
		{Dataset: "nyc_crashes", SourceBucket: "nyc-open-data", SourceKey: "crashes.csv", DestinationBucket: "project", DestinationKey: "crashes.csv"},
		{Dataset: "ca_crashes", SourceBucket: "chp-exports", SourceKey: "2024/crashes.csv", DestinationBucket: "project", DestinationKey: "2024/crashes.csv"},
		{Dataset: "ca_parties", SourceBucket: "chp-exports", SourceKey: "2024/parties.csv", DestinationBucket: "other", DestinationKey: "parties.csv"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("AllSources =\n%+v\nwant\n%+v", got, want)
	}

	cfg.SourcesFile = "missing.yaml"
	if err := cfg.Resolve(read); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want ErrNotExist, got %v", err)
	}
}

func TestParseSources_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := ParseSources([]byte("sources:\n  - dataset: ca_crashes\n    bucket: x\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		SourceBucket:      "nyc-open-data",
		SourceKey:         "crashes.csv",
		DestinationBucket: "project",
		DestinationKey:    "nyc.csv",
		Dataset:           "nyc_crashes",
		DatabaseName:      "nycrashes",
		AdminDatabase:     "postgres",
		PrepareMode:       "",
		Extensions:        []string{"postgis"},
		Region:            "us-east-1",
		DeleteStaged:      true,
		MetricsJob:        "populator",
	}
	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if opts.Strategy != populator.StrategyCreate {
		t.Errorf("strategy = %q", opts.Strategy)
	}
	want := []populator.Source{{
		Dataset: "nyc_crashes",
		From:    objectstore.Location{Bucket: "nyc-open-data", Key: "crashes.csv"},
		To:      objectstore.Location{Bucket: "project", Key: "nyc.csv"},
	}}
	if !reflect.DeepEqual(opts.Sources, want) {
		t.Errorf("sources = %+v", opts.Sources)
	}
	if !opts.DeleteStaged || opts.Database != "nycrashes" {
		t.Errorf("options = %+v", opts)
	}

	cfg.PrepareMode = "truncate"
	if _, err := cfg.Options(); err == nil {
		t.Error("expected error for unknown prepare mode")
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

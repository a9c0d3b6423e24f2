package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"crashloader/internal/config"
	"crashloader/internal/dataset"
	"crashloader/internal/populator"
)

type stateFn func() (*config.Config, *logrus.Logger)

var errInvalidConfig = errors.New("configuration is invalid")

// checkConfig logs every issue and fails on error-severity ones.
func checkConfig(cfg *config.Config, log logrus.FieldLogger) error {
	issues := config.Validate(cfg)
	for _, iss := range issues {
		entry := log.WithFields(logrus.Fields{"path": iss.Path, "severity": iss.Severity})
		if iss.Severity == config.SeverityError {
			entry.Error(iss.Message)
		} else {
			entry.Warn(iss.Message)
		}
	}
	if err := config.Err(issues); err != nil {
		return fmt.Errorf("%w: %w", errInvalidConfig, err)
	}
	return nil
}

func newRunCmd(state stateFn) *cobra.Command {
	var datasets []string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Stage, prepare and load the configured datasets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log := state()
			if err := checkConfig(cfg, log); err != nil {
				return err
			}
			flush := setupMetrics(cfg, log)
			defer flush()

			rep, err := load(cmd.Context(), cfg, log, datasets)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(rep); encErr != nil {
				log.WithError(encErr).Warn("unable to write report")
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&datasets, "only", nil, "Load only these datasets")
	return cmd
}

func newValidateCmd(state stateFn) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log := state()
			if err := checkConfig(cfg, log); err != nil {
				return err
			}
			log.Info("configuration is valid")
			return nil
		},
	}
}

func newProbeCmd(state stateFn) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Sample each source header and show how it binds to its dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := state()
			results, err := probeSources(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				err = enc.Encode(results)
			} else {
				err = populator.WriteProbe(cmd.OutOrStdout(), results)
			}
			if err != nil {
				return err
			}
			for _, r := range results {
				if !r.OK() {
					return errProbeFailed
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

var errProbeFailed = errors.New("one or more sources cannot be loaded")

func probeSources(ctx context.Context, cfg *config.Config) ([]populator.ProbeResult, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	objects, err := openObjects(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return populator.Probe(ctx, objects, opts.Sources)
}

func newPlanCmd(state stateFn) *cobra.Command {
	var (
		headers map[string]string
		fetch   bool
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the SQL a run would execute",
		Long: "Print the SQL a run would execute. Without --header or --fetch each\n" +
			"dataset is planned against the header its manifest expects.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := state()
			opts, err := cfg.Options()
			if err != nil {
				return err
			}
			parsed := make(map[string][]string, len(headers))
			if fetch {
				results, err := probeSources(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				parsed = populator.Headers(results)
			}
			for name, path := range headers {
				h, err := readLocalHeader(path)
				if err != nil {
					return fmt.Errorf("header for %s: %w", name, err)
				}
				parsed[name] = h
			}
			stmts, err := populator.Plan(opts, parsed)
			if err != nil {
				return err
			}
			return populator.WritePlan(cmd.OutOrStdout(), stmts)
		},
	}
	cmd.Flags().StringToStringVar(&headers, "header", nil, "dataset=path of a local CSV whose header to plan against")
	cmd.Flags().BoolVar(&fetch, "fetch", false, "Read headers from the source objects")
	return cmd
}

func readLocalHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dataset.ReadHeader(f)
}

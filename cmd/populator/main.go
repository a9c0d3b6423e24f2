// Command populator loads crash datasets from S3 into an Aurora
// PostgreSQL/PostGIS database.
//
// Inside AWS Lambda it serves invocations; everywhere else it is a CLI:
//
//	populator run       # stage, prepare and load (default)
//	populator validate  # check configuration and exit
//	populator probe     # sample source headers against the manifest
//	populator plan      # print the SQL a run would execute
//
// Every flag has an environment-variable twin (see internal/config).
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"crashloader/internal/config"
	"crashloader/internal/logging"

	// register all statement backends with the storage factory.
	_ "crashloader/internal/storage/all"
)

func main() {
	// Local runs only; the files are optional and never override the
	// process environment.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		startLambda()
		return
	}
	if err := newRootCmd(os.Getenv).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd wires the config flags onto a cobra command tree. Flags are
// persistent so every subcommand accepts them.
func newRootCmd(getenv func(string) string) *cobra.Command {
	var (
		cfg    *config.Config
		logger *logrus.Logger
	)

	root := &cobra.Command{
		Use:           "populator",
		Short:         "Load crash datasets from S3 into PostgreSQL/PostGIS",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Resolve(os.ReadFile); err != nil {
				return err
			}
			l, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}
	cfg = config.Define(root.PersistentFlags(), getenv)

	state := func() (*config.Config, *logrus.Logger) { return cfg, logger }
	runCmd := newRunCmd(state)
	root.RunE = runCmd.RunE
	root.AddCommand(runCmd, newValidateCmd(state), newProbeCmd(state), newPlanCmd(state))
	return root
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

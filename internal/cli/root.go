// Package cli wires the drover commands.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/thruflo/drover/internal/config"
	"github.com/thruflo/drover/internal/logging"
)

// Version is stamped at build time.
var Version = "dev"

type rootOptions struct {
	configPath string
	envPath    string
	verbose    bool
}

// NewRootCmd builds the drover command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "drover",
		Short: "Drive an autonomous coding agent against a sandboxed project",
		Long: `drover runs a worker agent against an ephemeral sandbox until the task is
done. Completion claims are checked by a reviewer agent before the run is
approved, and results are synced out of the sandbox whatever happens.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				logging.SetLevel(logging.LevelDebug)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultConfigPath, "path to the config file")
	cmd.PersistentFlags().StringVar(&opts.envPath, "env-file", config.DefaultEnvPath, "path to the sandbox env file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newReportCmd(opts))
	return cmd
}

// Execute runs the CLI under ctx. Cancellation aborts the run; results
// synced so far are still written out.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

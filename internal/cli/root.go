// Package cli holds the open-launcher commands. The default command runs the
// interactive front end; the others are headless variants of the same
// orchestrator operations.
package cli

import (
	"github.com/spf13/cobra"
)

type options struct {
	runID      string
	configPath string
}

// NewRootCmd builds the command tree. runID tags telemetry records.
func NewRootCmd(runID string) *cobra.Command {
	opts := &options{runID: runID}
	cmd := &cobra.Command{
		Use:           "open-launcher",
		Short:         "Game client launcher",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInteractive(cmd, opts)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to launcher config file")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newPlayCmd(opts))
	cmd.AddCommand(newProbeCmd(opts))
	cmd.AddCommand(newCheckCmd(opts))
	cmd.AddCommand(newServersCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the interactive launcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInteractive(cmd, opts)
		},
	}
}

// Package cli wires the organize command: configuration, logging, the tool
// registry and gate, the model adapter, and the loop.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

type options struct {
	dryRun    bool
	yes       bool
	maxSteps  int
	logLevel  string
	logFormat string
}

func NewRootCmd(version string) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "organize <directory>",
		Short:         "Organize a directory's files with a planning model",
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrganize(cmd, args[0], *opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Preview the plan without creating or moving anything")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Approve every action without prompting (live mode only)")
	cmd.Flags().IntVar(&opts.maxSteps, "max-steps", 0, "Override the model turn ceiling (default from ORGANIZE_MAX_STEPS)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.SetVersionTemplate("{{.Version}}\n")

	return cmd
}

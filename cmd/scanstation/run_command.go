package main

import (
	"github.com/spf13/cobra"

	"scanstation/internal/daemonrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts daemonrun.Options
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scanstation daemon in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Diagnostic, "diagnostic", false, "Enable diagnostic mode with separate DEBUG logs")
	cmd.Flags().BoolVar(&opts.Quiet, "quiet", false, "Write logs only to the log file")
	cmd.Flags().BoolVar(&opts.Development, "development", false, "Include source locations in log output")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	return cmd
}

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scanstation/internal/api"
	"scanstation/internal/config"
	"scanstation/internal/ipc"
	"scanstation/internal/logging"
	"scanstation/internal/logstream"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var opts logstream.Options
	var requestID string
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			if requestID = strings.TrimSpace(requestID); requestID != "" {
				opts.Match = requestMatch(ctx.configValue(), requestID)
			}
			apiClient, err := ctx.apiClient()
			if err != nil {
				return err
			}

			var legacy logstream.TailClient
			client, dialErr := ipc.Dial(ctx.socketPath())
			if dialErr == nil {
				defer client.Close()
				legacy = client
			}

			out := cmd.OutOrStdout()
			printed, err := logstream.Stream(cmd.Context(), apiClient, legacy, opts, func(line string) {
				fmt.Fprintln(out, line)
			})
			if errors.Is(err, api.ErrAPIUnavailable) && dialErr != nil {
				return wrapDialError(dialErr, ctx.socketPath())
			}
			if err != nil {
				return err
			}
			if !printed && !opts.Follow {
				fmt.Fprintln(cmd.ErrOrStderr(), "No log lines")
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.Lines, "lines", "n", 50, "Number of trailing lines to show (0 for the whole log)")
	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&requestID, "request", "", "Only show lines for one item handle")
	cmd.Flags().StringVar(&opts.Match, "match", "", "Only show lines containing this text")
	return cmd
}

// requestMatch is the substring a log line carries for requestID in the
// configured log format.
func requestMatch(cfg *config.Config, requestID string) string {
	if cfg != nil && strings.EqualFold(cfg.Logging.Format, "json") {
		return fmt.Sprintf("%q:%q", logging.FieldRequestID, requestID)
	}
	return logging.FieldRequestID + "=" + requestID
}

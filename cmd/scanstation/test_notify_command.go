package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"scanstation/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Ask the daemon to publish a test message to its ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp *ipc.TestNotifyResponse
			err := ctx.withClient(func(client *ipc.Client) error {
				var callErr error
				resp, callErr = client.TestNotification()
				return callErr
			})
			if err != nil {
				return err
			}
			if resp == nil {
				return errors.New("daemon returned no notification result")
			}
			reportTestNotify(cmd.OutOrStdout(), resp.Sent, resp.Message, ctx.ntfyTopic())
			return nil
		},
	}
}

// reportTestNotify prints the daemon's (sent, reason) answer. A skipped send
// is reported, not treated as a failure.
func reportTestNotify(out io.Writer, sent bool, reason, topic string) {
	switch {
	case sent && topic != "":
		fmt.Fprintf(out, "Sent test notification to %s\n", topic)
	case sent:
		fmt.Fprintln(out, "Sent test notification")
	case reason != "":
		fmt.Fprintf(out, "Not sent: %s\n", reason)
	default:
		fmt.Fprintln(out, "Not sent")
	}
}

func (c *commandContext) ntfyTopic() string {
	if cfg := c.configValue(); cfg != nil {
		return cfg.Notifications.NtfyTopic
	}
	return ""
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scanstation/internal/ipc"
	"scanstation/internal/station"
)

func newPresenceCommands(ctx *commandContext) []*cobra.Command {
	var attrPairs []string
	enterCmd := &cobra.Command{
		Use:   "enter [handle]",
		Short: "Report an item arriving in the scan zone",
		Long: "Report an item arriving in the scan zone. Without a handle a new item\n" +
			"is invented with a unique handle and random variant and color.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := parseAttrs(attrPairs)
			if err != nil {
				return err
			}
			var handle string
			if len(args) == 1 {
				handle = args[0]
			} else {
				var spawned map[string]string
				handle, spawned = station.NewSpawner(nil, 0).Next()
				attrs = mergeAttrs(spawned, attrs)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Enter(handle, attrs)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s entered the scan zone\n", resp.Handle)
				return nil
			})
		},
	}
	enterCmd.Flags().StringArrayVarP(&attrPairs, "attr", "a", nil, "Attribute as key=value (repeatable)")

	exitCmd := &cobra.Command{
		Use:   "exit <handle>",
		Short: "Report an item leaving the scan zone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Exit(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s left the scan zone\n", resp.Handle)
				return nil
			})
		},
	}

	var leave bool
	disposeCmd := &cobra.Command{
		Use:   "dispose <handle>",
		Short: "Report an item entering (or with --leave, leaving) the disposal zone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Dispose(args[0], leave)
				if err != nil {
					return err
				}
				verb := "entered"
				if leave {
					verb = "left"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s the disposal zone\n", resp.Handle, verb)
				return nil
			})
		},
	}
	disposeCmd.Flags().BoolVar(&leave, "leave", false, "Report leaving the disposal zone")

	forgetCmd := &cobra.Command{
		Use:   "forget <handle>",
		Short: "Drop a remembered handle so it can be scanned again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Forget(args[0])
				if err != nil {
					return err
				}
				if !resp.Known {
					fmt.Fprintf(cmd.OutOrStdout(), "%s was not known\n", resp.Handle)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s forgotten\n", resp.Handle)
				return nil
			})
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the queue, the scan slot, and every remembered handle",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Reset(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Station reset")
				return nil
			})
		},
	}

	return []*cobra.Command{enterCmd, exitCmd, disposeCmd, forgetCmd, resetCmd}
}

func parseAttrs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	attrs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid attribute %q (want key=value)", pair)
		}
		attrs[key] = strings.TrimSpace(value)
	}
	return attrs, nil
}

// mergeAttrs overlays explicit on top of base.
func mergeAttrs(base, explicit map[string]string) map[string]string {
	if len(explicit) == 0 {
		return base
	}
	out := make(map[string]string, len(base)+len(explicit))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range explicit {
		out[k] = v
	}
	return out
}

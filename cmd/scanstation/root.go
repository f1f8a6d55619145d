package main

import (
	"github.com/spf13/cobra"
)

const (
	groupDaemon  = "daemon"
	groupItems   = "items"
	groupInspect = "inspect"
)

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:           "scanstation",
		Short:         "Single-slot scanning station daemon and CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.socket, "socket", "", "Path to the scanstation daemon socket")
	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Configuration file path")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupDaemon, Title: "Daemon:"},
		&cobra.Group{ID: groupItems, Title: "Items:"},
		&cobra.Group{ID: groupInspect, Title: "Inspect:"},
	)
	addGrouped(rootCmd, groupDaemon, append(newDaemonCommands(ctx), newRunCommand(ctx))...)
	addGrouped(rootCmd, groupItems, newPresenceCommands(ctx)...)
	addGrouped(rootCmd, groupInspect,
		newHistoryCommand(ctx),
		newLogsCommand(ctx),
		newWatchCommand(ctx),
		newOpenCommand(ctx),
		newSimulateCommand(ctx),
	)
	rootCmd.AddCommand(newTestNotifyCommand(ctx), newConfigCommand(ctx))

	return rootCmd
}

func addGrouped(parent *cobra.Command, group string, cmds ...*cobra.Command) {
	for _, cmd := range cmds {
		cmd.GroupID = group
		parent.AddCommand(cmd)
	}
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scanstation/internal/daemonctl"
	"scanstation/internal/ipc"
)

const (
	daemonStartTimeout = 10 * time.Second
	daemonStopGrace    = 5 * time.Second
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newStartCommand(ctx),
		newStopCommand(ctx),
		newRestartCommand(ctx),
		newStatusCommand(ctx),
		newPauseCommand(ctx),
		newResumeCommand(ctx),
	}
}

func newStartCommand(ctx *commandContext) *cobra.Command {
	var diagnostic bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Launch the station daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			launch, err := launchOptions(ctx, diagnostic)
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(ctx.socketPath(), launch.exe, launch.opts, daemonStartTimeout)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.Launched {
				fmt.Fprintln(out, "Daemon not running, launching...")
			}
			printStartState(out, result)
			return nil
		},
	}
	addDiagnosticFlag(cmd, &diagnostic)
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the station and terminate the daemon process",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), daemonStopGrace)
			switch {
			case errors.Is(err, daemonctl.ErrDaemonNotRunning):
				fmt.Fprintln(out, "Daemon is not running")
				return nil
			case err != nil:
				return err
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(out, "Daemon ignored the stop request, killed pid %d\n", result.PID)
			}
			fmt.Fprintln(out, "Daemon stopped")
			return nil
		},
	}
}

func newRestartCommand(ctx *commandContext) *cobra.Command {
	var diagnostic bool
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Stop the daemon if it is running, then launch it again",
		RunE: func(cmd *cobra.Command, args []string) error {
			launch, err := launchOptions(ctx, diagnostic)
			if err != nil {
				return err
			}
			result, err := daemonctl.Restart(ctx.socketPath(), ctx.configValue(), launch.exe, launch.opts,
				daemonStopGrace, daemonStartTimeout)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.WasRunning {
				fmt.Fprintln(out, "Daemon stopped")
			}
			printStartState(out, result.Start)
			return nil
		},
	}
	addDiagnosticFlag(cmd, &diagnostic)
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon health and the station slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), ctx.configValue())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, snapshot.Status)
			}
			out := cmd.OutOrStdout()
			renderStatus(out, snapshot, shouldColorize(out))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw status JSON")
	return cmd
}

func newPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Halt the station loop and presence source; the daemon keeps running",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Stop(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Station paused")
				return nil
			})
		},
	}
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Restart the station loop of a paused daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Start()
				if err != nil {
					return err
				}
				msg := "Station resumed"
				if !resp.Started {
					msg = resp.Message
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}
}

func addDiagnosticFlag(cmd *cobra.Command, target *bool) {
	cmd.Flags().BoolVar(target, "diagnostic", false, "Write a separate DEBUG log alongside the normal one")
}

type daemonLaunch struct {
	exe  string
	opts daemonctl.LaunchOptions
}

func launchOptions(ctx *commandContext, diagnostic bool) (daemonLaunch, error) {
	exe, err := os.Executable()
	if err != nil {
		return daemonLaunch{}, fmt.Errorf("resolve executable: %w", err)
	}
	return daemonLaunch{
		exe: exe,
		opts: daemonctl.LaunchOptions{
			ConfigPath: ctx.configPath(),
			Diagnostic: diagnostic,
		},
	}, nil
}

func printStartState(out io.Writer, result daemonctl.StartResult) {
	var line string
	switch result.State {
	case daemonctl.StartStateStarted:
		line = "Daemon started"
	case daemonctl.StartStateAlreadyRunning:
		line = "Daemon already running"
	case daemonctl.StartStateRequested:
		line = strings.TrimSpace(result.Message)
		if line == "" {
			line = "Start request sent"
		}
	default:
		return
	}
	fmt.Fprintln(out, line)
}

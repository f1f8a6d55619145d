package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/spf13/cobra"

	"scanstation/internal/api"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live view of the scan slot, queue, and progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			fetch, closeFn, err := watchFetcher(cmd.Context(), ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			program := tea.NewProgram(newWatchModel(fetch), tea.WithAltScreen())
			_, err = program.Run()
			return err
		},
	}
}

// watchFetcher prefers the HTTP API and falls back to the IPC socket.
func watchFetcher(cmdCtx context.Context, ctx *commandContext) (statusFetcher, func(), error) {
	apiClient, err := ctx.apiClient()
	if err != nil {
		return nil, nil, err
	}
	if apiClient != nil {
		probeCtx, cancel := context.WithTimeout(cmdCtx, time.Second)
		_, probeErr := apiClient.Status(probeCtx)
		cancel()
		if probeErr == nil || !api.IsAPIUnavailable(probeErr) {
			fetch := func() (api.DaemonStatus, error) {
				reqCtx, cancel := context.WithTimeout(cmdCtx, 2*time.Second)
				defer cancel()
				return apiClient.Status(reqCtx)
			}
			return fetch, func() {}, nil
		}
	}

	client, err := ctx.dialClient()
	if err != nil {
		return nil, nil, err
	}
	fetch := func() (api.DaemonStatus, error) {
		resp, err := client.Status()
		if err != nil {
			return api.DaemonStatus{}, err
		}
		return *resp, nil
	}
	return fetch, func() { _ = client.Close() }, nil
}


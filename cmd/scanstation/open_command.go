package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

// openURL is swapped in tests.
var openURL = browser.OpenURL

func newOpenCommand(ctx *commandContext) *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "open [path]",
		Short: "Open the daemon HTTP API in a browser (defaults to /api/status)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Paths.APIBind) == "" {
				return errors.New("HTTP API is disabled; set paths.api_bind in the configuration")
			}
			path := "/api/status"
			if len(args) == 1 {
				path = "/" + strings.TrimLeft(args[0], "/")
			}
			target := strings.TrimRight(cfg.APIBaseURL(), "/") + path
			if printOnly {
				fmt.Fprintln(cmd.OutOrStdout(), target)
				return nil
			}
			if err := openURL(target); err != nil {
				return fmt.Errorf("open %s: %w", target, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opened %s\n", target)
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the URL instead of launching a browser")
	return cmd
}

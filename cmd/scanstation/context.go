package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"scanstation/internal/api"
	"scanstation/internal/config"
	"scanstation/internal/ipc"
)

// offlineConfig marks commands that must run without a loadable config.
var offlineConfig = map[string]string{"offlineConfig": "true"}

type globalFlags struct {
	socket string
	config string
}

// commandContext carries the persistent flags and the lazily loaded
// station config shared by every subcommand.
type commandContext struct {
	flags      *globalFlags
	loadConfig func() (*config.Config, error)
}

func newCommandContext(flags *globalFlags) *commandContext {
	c := &commandContext{flags: flags}
	c.loadConfig = sync.OnceValues(func() (*config.Config, error) {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			return nil, err
		}
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, err
		}
		return cfg, nil
	})
	return c
}

func (c *commandContext) configPath() string {
	return strings.TrimSpace(c.flags.config)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	return c.loadConfig()
}

// configValue is nil when the config failed to load.
func (c *commandContext) configValue() *config.Config {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil
	}
	return cfg
}

// socketPath prefers --socket, then the loaded config, then the default
// state directory so offline commands still know where to look.
func (c *commandContext) socketPath() string {
	if socket := strings.TrimSpace(c.flags.socket); socket != "" {
		return socket
	}
	if cfg := c.configValue(); cfg != nil {
		return cfg.SocketPath()
	}
	fallback := config.Default()
	if dir, err := config.ExpandPath(fallback.Paths.StateDir); err == nil {
		fallback.Paths.StateDir = dir
	}
	return fallback.SocketPath()
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	client, err := c.dialClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (c *commandContext) dialClient() (*ipc.Client, error) {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err != nil {
		return nil, wrapDialError(err, socket)
	}
	return client, nil
}

// apiClient returns nil when the HTTP API is disabled.
func (c *commandContext) apiClient() (*api.Client, error) {
	cfg := c.configValue()
	if cfg == nil || strings.TrimSpace(cfg.Paths.APIBind) == "" {
		return nil, nil
	}
	return api.NewClient(cfg.APIBaseURL(), cfg.Paths.APIToken)
}

func wrapDialError(err error, socket string) error {
	var hint string
	switch {
	case errors.Is(err, syscall.ENOENT), errors.Is(err, os.ErrNotExist):
		hint = "not found; start the station with `scanstation start`"
	case errors.Is(err, syscall.ECONNREFUSED):
		hint = "refused the connection; the daemon may have exited, check `scanstation logs`"
	default:
		return fmt.Errorf("connect to station daemon: %w", err)
	}
	return fmt.Errorf("connect to station daemon: socket %s %s", socket, hint)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		if cmd.Annotations["offlineConfig"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

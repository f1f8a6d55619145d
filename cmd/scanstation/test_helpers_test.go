package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scanstation/internal/config"
	"scanstation/internal/daemon"
	"scanstation/internal/history"
	"scanstation/internal/ipc"
	"scanstation/internal/logging"
	"scanstation/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *history.Store
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	baseDir    string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t, opts...)
	var store *history.Store
	if cfg.History.Enabled {
		store = testsupport.MustOpenStore(t, cfg)
	}

	logger := logging.NewNop()
	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon start: %v", err)
	}
	// Point CLI API clients at the port the daemon actually bound.
	if addr := d.APIAddress(); addr != "" {
		cfg.Paths.APIBind = addr
	}

	socketPath := filepath.Join(cfg.Paths.LogDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		d.Close()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("unix sockets not permitted: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	configPath := filepath.Join(homeDir, ".config", "scanstation", "config.toml")
	writeTestConfig(t, configPath, cfg)

	env := &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		baseDir:    base,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *cliTestEnv) run(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := runCLI(t, args, e.socketPath, e.configPath)
	if err != nil {
		t.Fatalf("%s: %v (stderr: %s)", strings.Join(args, " "), err, stderr)
	}
	return out
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	if cfg.Paths.APIBind == "" {
		copied := *cfg
		copied.Paths.APIBind = config.APIBindDisabled
		cfg = &copied
	}
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

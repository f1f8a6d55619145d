package preflight

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"scanstation/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckBindAvailable(t *testing.T) {
	result := CheckBindAvailable(context.Background(), "api", "127.0.0.1:0")
	if !result.Passed {
		t.Fatalf("expected ephemeral port to be available, got: %s", result.Detail)
	}
}

func TestCheckBindAvailable_InUse(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen: %v", err)
	}
	defer listener.Close()

	result := CheckBindAvailable(context.Background(), "api", listener.Addr().String())
	if result.Passed {
		t.Fatal("expected failure for occupied address")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatalf("expected nil, got %v", results)
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = cfg.Paths.StateDir
	cfg.Paths.APIBind = ""

	results := RunAll(context.Background(), &cfg)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d: %v", len(results), results)
	}
	if !results[0].Passed {
		t.Fatalf("expected state dir to pass: %s", results[0].Detail)
	}
	if len(Failed(results)) != 0 {
		t.Fatal("expected no failures")
	}
}

func TestRunAll_IncludesNetlinkWhenEnabled(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = filepath.Join(cfg.Paths.StateDir, "missing-logs")
	cfg.Paths.APIBind = ""
	cfg.Presence.Source = config.PresenceNetlink

	results := RunAll(context.Background(), &cfg)
	names := map[string]bool{}
	for _, r := range results {
		names[r.Name] = true
	}
	for _, want := range []string{"State directory", "Log directory", "Presence (netlink)"} {
		if !names[want] {
			t.Fatalf("missing check %q in %v", want, results)
		}
	}
	failed := Failed(results)
	if len(failed) == 0 || failed[0].Name != "Log directory" {
		t.Fatalf("expected missing log dir to fail first, got %v", failed)
	}
}

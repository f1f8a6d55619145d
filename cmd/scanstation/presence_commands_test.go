package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"scanstation/internal/api"
	"scanstation/internal/testsupport"
)

func TestPresenceLifecycleThroughCLI(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	out := env.run(t, "enter", "parcel-1", "-a", "variant=2", "--attr", "color=10,20,30")
	requireContains(t, out, "parcel-1 entered the scan zone")

	waitFor(t, 2*time.Second, func() bool {
		return len(env.daemon.Status(ctx).Station.Served) == 1
	})

	out = env.run(t, "dispose", "parcel-1")
	requireContains(t, out, "parcel-1 entered the disposal zone")
	if !env.daemon.Status(ctx).Station.Disposal.Highlighted {
		t.Fatal("expected disposal zone highlighted")
	}
	out = env.run(t, "dispose", "--leave", "parcel-1")
	requireContains(t, out, "parcel-1 left the disposal zone")

	waitFor(t, 2*time.Second, func() bool {
		out, _, err := runCLI(t, []string{"history", "--outcome", "served"}, env.socketPath, env.configPath)
		return err == nil && strings.Contains(out, "parcel-1")
	})
	out = env.run(t, "history", "--outcome", "served")
	requireContains(t, out, "Served")
	requireContains(t, out, "color=10,20,30 variant=2")

	out = env.run(t, "forget", "parcel-1")
	requireContains(t, out, "parcel-1 forgotten")
	out = env.run(t, "forget", "parcel-1")
	requireContains(t, out, "parcel-1 was not known")

	out = env.run(t, "reset")
	requireContains(t, out, "Station reset")
}

func TestEnterWithoutHandleSpawnsItem(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithScanTiming(time.Hour, time.Second))

	out := env.run(t, "enter")
	requireContains(t, out, "item-")

	st := env.daemon.Status(context.Background()).Station
	if !strings.HasPrefix(st.Active, "item-") {
		t.Fatalf("active = %q, want spawned item", st.Active)
	}
	if st.ActiveAttrs["color"] == "" || st.ActiveAttrs["variant"] == "" {
		t.Fatalf("spawned attrs = %v", st.ActiveAttrs)
	}
}

func TestExitPreemptsAndStatusReportsIt(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithScanTiming(time.Hour, time.Second))

	env.run(t, "enter", "a")
	env.run(t, "enter", "b")
	out := env.run(t, "exit", "a")
	requireContains(t, out, "a left the scan zone")

	out = env.run(t, "status", "--json")
	var status api.DaemonStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if status.Station.Active != "b" {
		t.Fatalf("active = %q, want b", status.Station.Active)
	}
	if status.Station.Counters.Preempted != 1 {
		t.Fatalf("preempted = %d, want 1", status.Station.Counters.Preempted)
	}

	out = env.run(t, "status")
	requireContains(t, out, "Station test-station")
	requireContains(t, out, "Scanning b")
	requireContains(t, out, "Preempted")
}

func TestPauseRejectsPresenceUntilResume(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutAPI())

	requireContains(t, env.run(t, "pause"), "Station paused")

	_, _, err := runCLI(t, []string{"enter", "a"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "daemon not running") {
		t.Fatalf("enter while paused: err = %v", err)
	}

	requireContains(t, env.run(t, "resume"), "Station resumed")
	requireContains(t, env.run(t, "enter", "a"), "a entered the scan zone")
}

func TestPresenceCommandsNeedDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := t.TempDir() + "/config.toml"
	writeTestConfig(t, configPath, cfg)

	_, _, err := runCLI(t, []string{"enter", "a"}, cfg.SocketPath(), configPath)
	if err == nil {
		t.Fatal("expected error without daemon")
	}
	requireContains(t, err.Error(), "scanstation start")
}

func TestParseAttrs(t *testing.T) {
	attrs, err := parseAttrs([]string{"variant=1", " color = 1,2,3 ", "empty="})
	if err != nil {
		t.Fatalf("parseAttrs: %v", err)
	}
	if attrs["variant"] != "1" || attrs["color"] != "1,2,3" || attrs["empty"] != "" {
		t.Fatalf("attrs = %v", attrs)
	}

	if _, err := parseAttrs([]string{"novalue"}); err == nil {
		t.Fatal("expected error for missing '='")
	}
	if _, err := parseAttrs([]string{"=x"}); err == nil {
		t.Fatal("expected error for empty key")
	}
	if attrs, err := parseAttrs(nil); err != nil || attrs != nil {
		t.Fatalf("parseAttrs(nil) = %v, %v", attrs, err)
	}

	merged := mergeAttrs(map[string]string{"variant": "0", "color": "1,1,1"}, map[string]string{"variant": "3"})
	if merged["variant"] != "3" || merged["color"] != "1,1,1" {
		t.Fatalf("merged = %v", merged)
	}
}

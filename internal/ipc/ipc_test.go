package ipc_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scanstation/internal/daemon"
	"scanstation/internal/ipc"
	"scanstation/internal/logging"
	"scanstation/internal/testsupport"
)

func startServer(t *testing.T, d *daemon.Daemon, socket string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := ipc.NewServer(ctx, socket, d, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
}

func dial(t *testing.T, socket string) *ipc.Client {
	t.Helper()
	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})
	return client
}

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutAPI())
	store := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	socket := cfg.SocketPath()
	startServer(t, d, socket)
	client := dial(t, socket)

	if _, err := client.Enter("early", nil); err == nil || !strings.Contains(err.Error(), daemon.ErrNotRunning.Error()) {
		t.Fatalf("expected not running error before start, got %v", err)
	}

	startResp, err := client.Start()
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if !startResp.Started {
		t.Fatalf("expected Started=true, message=%s", startResp.Message)
	}

	again, err := client.Start()
	if err != nil {
		t.Fatalf("second Start RPC failed: %v", err)
	}
	if again.Started || again.Message == "" {
		t.Fatalf("expected second start to report a message, got %+v", again)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon running")
	}
	if status.Station.Name != "test-station" {
		t.Fatalf("unexpected station name %q", status.Station.Name)
	}
	if status.HistoryDBPath != cfg.HistoryPath() {
		t.Fatalf("unexpected history path %q", status.HistoryDBPath)
	}

	resp, err := client.Enter(" a ", map[string]string{"variant": "2"})
	if err != nil {
		t.Fatalf("Enter RPC failed: %v", err)
	}
	if resp.Handle != "a" || resp.Action != "enter" {
		t.Fatalf("unexpected enter response %+v", resp)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		status, err = client.Status()
		if err != nil {
			t.Fatalf("Status RPC failed: %v", err)
		}
		if len(status.Station.Served) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("item never served: %+v", status.Station)
		}
		time.Sleep(10 * time.Millisecond)
	}

	var hist *ipc.HistoryResponse
	deadline = time.Now().Add(2 * time.Second)
	for {
		hist, err = client.History(ipc.HistoryRequest{Outcome: "served"})
		if err != nil {
			t.Fatalf("History RPC failed: %v", err)
		}
		if len(hist.Entries) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("served entry never recorded: %+v", hist)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if hist.Entries[0].Attrs["variant"] != "2" {
		t.Fatalf("expected attrs carried into history, got %+v", hist.Entries[0])
	}

	if _, err := client.History(ipc.HistoryRequest{Outcome: "exploded"}); err == nil {
		t.Fatal("expected invalid outcome error")
	}

	forget, err := client.Forget("a")
	if err != nil {
		t.Fatalf("Forget RPC failed: %v", err)
	}
	if !forget.Known {
		t.Fatal("expected a to be known")
	}
	forget, err = client.Forget("a")
	if err != nil {
		t.Fatalf("Forget RPC failed: %v", err)
	}
	if forget.Known || forget.Message == "" {
		t.Fatalf("expected unknown handle message, got %+v", forget)
	}

	if _, err := client.Reset(); err != nil {
		t.Fatalf("Reset RPC failed: %v", err)
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected Stopped=true")
	}
	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status.Running {
		t.Fatal("expected daemon stopped")
	}
}

func TestIPCDisposeAndExit(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithoutAPI(),
		testsupport.WithHistory(false),
		testsupport.WithScanTiming(time.Hour, time.Millisecond),
	)
	d, err := daemon.New(cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	socket := filepath.Join(t.TempDir(), "station.sock")
	startServer(t, d, socket)
	client := dial(t, socket)

	if _, err := client.Enter("a", nil); err != nil {
		t.Fatalf("Enter RPC failed: %v", err)
	}
	if _, err := client.Exit("a"); err != nil {
		t.Fatalf("Exit RPC failed: %v", err)
	}
	if _, err := client.Enter("  ", nil); err == nil {
		t.Fatal("expected blank handle error")
	}

	resp, err := client.Dispose("a", false)
	if err != nil {
		t.Fatalf("Dispose RPC failed: %v", err)
	}
	if resp.Action != "disposal_enter" {
		t.Fatalf("unexpected dispose action %q", resp.Action)
	}
	resp, err = client.Dispose("a", true)
	if err != nil {
		t.Fatalf("Dispose leave RPC failed: %v", err)
	}
	if resp.Action != "disposal_exit" {
		t.Fatalf("unexpected dispose action %q", resp.Action)
	}

	if _, err := client.History(ipc.HistoryRequest{}); err == nil || !strings.Contains(err.Error(), daemon.ErrHistoryDisabled.Error()) {
		t.Fatalf("expected history disabled error, got %v", err)
	}
}

func TestIPCLogTail(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutAPI(), testsupport.WithHistory(false))
	d, err := daemon.New(cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	testsupport.WriteFile(t, cfg.Paths.LogDir, "scanstation.log", "one\ntwo request_id=x\nthree\n")

	socket := cfg.SocketPath()
	startServer(t, d, socket)
	client := dial(t, socket)

	resp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("LogTail RPC failed: %v", err)
	}
	if len(resp.Lines) != 2 || resp.Lines[1] != "three" {
		t.Fatalf("unexpected lines %v", resp.Lines)
	}

	resp, err = client.LogTail(ipc.LogTailRequest{Offset: 0, Limit: 10, Match: "request_id=x"})
	if err != nil {
		t.Fatalf("LogTail RPC failed: %v", err)
	}
	if len(resp.Lines) != 1 || resp.Lines[0] != "two request_id=x" {
		t.Fatalf("unexpected filtered lines %v", resp.Lines)
	}
}

func TestIPCTestNotificationDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutAPI(), testsupport.WithHistory(false))
	d, err := daemon.New(cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	socket := filepath.Join(cfg.Paths.StateDir, "notify.sock")
	startServer(t, d, socket)
	client := dial(t, socket)

	resp, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification RPC failed: %v", err)
	}
	if resp.Sent {
		t.Fatalf("expected Sent=false without a topic")
	}
	if !strings.Contains(resp.Message, "notifications disabled") {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

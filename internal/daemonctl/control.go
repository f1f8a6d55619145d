package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"scanstation/internal/api"
	"scanstation/internal/config"
	"scanstation/internal/history"
	"scanstation/internal/ipc"
)

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	Diagnostic bool
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
	StartStateRequested      StartState = "start_requested"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
	Message  string
}

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Launch starts a detached daemon process running `<exe> run --quiet`.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"run", "--quiet"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if opts.Diagnostic {
		args = append(args, "--diagnostic")
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

const socketPollInterval = 100 * time.Millisecond

// waitForSocket polls socketPath until a dial succeeds (up) or the socket is
// gone (down). On success with up it returns the connected client.
func waitForSocket(socketPath string, up bool, timeout time.Duration) (*ipc.Client, error) {
	ticker := time.NewTicker(socketPollInterval)
	defer ticker.Stop()
	deadline := time.After(timeout)

	var lastErr error
	for {
		client, err := ipc.Dial(socketPath)
		switch {
		case up && err == nil:
			return client, nil
		case !up && err != nil && isDaemonUnavailable(err):
			return nil, nil
		case err == nil:
			_ = client.Close()
		default:
			lastErr = err
		}

		select {
		case <-ticker.C:
		case <-deadline:
			if !up {
				return nil, fmt.Errorf("daemon did not stop within %s", timeout)
			}
			if lastErr == nil {
				lastErr = errors.New("timeout waiting for daemon")
			}
			return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
		}
	}
}

// EnsureStarted launches the daemon process if needed, then makes sure its
// station is running.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	client, err := ipc.Dial(socketPath)
	launched := false
	if err != nil {
		if launchErr := Launch(executablePath, opts); launchErr != nil {
			return StartResult{}, launchErr
		}
		client, err = waitForSocket(socketPath, true, waitTimeout)
		if err != nil {
			return StartResult{}, err
		}
		launched = true
	}
	defer client.Close()

	statusResp, statusErr := client.Status()
	if statusErr == nil && statusResp != nil && statusResp.Running {
		if launched {
			return StartResult{State: StartStateStarted, Launched: true}, nil
		}
		return StartResult{State: StartStateAlreadyRunning}, nil
	}

	resp, err := client.Start()
	if err != nil {
		return StartResult{}, err
	}
	message := strings.TrimSpace(resp.Message)
	if resp.Started {
		return StartResult{State: StartStateStarted, Launched: launched, Message: message}, nil
	}
	if message == "" {
		message = "start request sent"
	}
	return StartResult{State: StartStateRequested, Launched: launched, Message: message}, nil
}

// ReadPID returns the pid in pidPath, or fallback when the file is missing.
func ReadPID(pidPath string, fallback int) (int, error) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fallback, nil
		}
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	pidStr := strings.TrimSpace(string(data))
	if pidStr == "" {
		return fallback, nil
	}
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return fallback, nil
	}
	return pid, nil
}

// signalProcess delivers sig to pid, refusing to signal the current process.
func signalProcess(pid int, sig os.Signal) error {
	if pid <= 0 {
		return fmt.Errorf("invalid daemon pid %d", pid)
	}
	if pid == os.Getpid() {
		return fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Signal(sig); err != nil {
		return fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	return nil
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// RestartResult captures stop/start outcomes for daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// StopAndTerminate stops the station over IPC, asks the process to exit with
// SIGTERM, and kills it if the socket is still up after gracePeriod.
func StopAndTerminate(socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	fallbackPID := 0
	if status, statusErr := client.Status(); statusErr == nil {
		fallbackPID = status.PID
	}
	resp, err := client.Stop()
	_ = client.Close()
	if err != nil {
		return StopResult{}, err
	}
	result := StopResult{StopAcknowledged: resp.Stopped}

	pid, err := ReadPID(cfg.PIDPath(), fallbackPID)
	if err != nil {
		return result, err
	}
	result.PID = pid
	if err := signalProcess(pid, syscall.SIGTERM); err != nil {
		return result, err
	}
	if _, err := waitForSocket(socketPath, false, gracePeriod); err == nil {
		return result, nil
	}

	if err := signalProcess(pid, syscall.SIGKILL); err != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", err)
	}
	_ = os.Remove(cfg.PIDPath())
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	return result, nil
}

// Restart stops the daemon if running, then ensures it is started.
func Restart(socketPath string, cfg *config.Config, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	stopResult, stopErr := StopAndTerminate(socketPath, cfg, stopGracePeriod)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}

	startResult, err := EnsureStarted(socketPath, executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}

	return RestartResult{
		WasRunning: stopErr == nil,
		Stop:       stopResult,
		Start:      startResult,
	}, nil
}

// StatusSnapshot is what `scanstation status` renders.
type StatusSnapshot struct {
	Reachable bool
	Status    api.DaemonStatus
	// OfflineCounts holds per-outcome history totals read straight from the
	// database when the daemon is not reachable.
	OfflineCounts map[string]int
}

// BuildStatusSnapshot asks the daemon for status, falling back to the history
// database for outcome totals when it is offline.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (StatusSnapshot, error) {
	if cfg == nil {
		return StatusSnapshot{}, errors.New("configuration not available")
	}

	client, err := ipc.Dial(socketPath)
	if err == nil {
		defer client.Close()
		status, statusErr := client.Status()
		if statusErr != nil {
			return StatusSnapshot{}, statusErr
		}
		return StatusSnapshot{Reachable: true, Status: *status}, nil
	}
	if !isDaemonUnavailable(err) {
		return StatusSnapshot{}, err
	}

	snapshot := StatusSnapshot{Status: api.DaemonStatus{LockFilePath: cfg.LockPath()}}
	if !cfg.History.Enabled {
		return snapshot, nil
	}
	if _, statErr := os.Stat(cfg.HistoryPath()); statErr != nil {
		return snapshot, nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	store, openErr := history.Open(cfg.HistoryPath())
	if openErr != nil {
		return snapshot, nil
	}
	defer store.Close()
	if stats, statsErr := store.Stats(queryCtx); statsErr == nil {
		snapshot.Status.HistoryDBPath = store.Path()
		snapshot.OfflineCounts = api.FromHistoryStats(stats)
	}
	return snapshot, nil
}

func isDaemonUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

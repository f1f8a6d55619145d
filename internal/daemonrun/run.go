package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"scanstation/internal/config"
	"scanstation/internal/daemon"
	"scanstation/internal/history"
	"scanstation/internal/ipc"
	"scanstation/internal/logging"
	"scanstation/internal/preflight"
)

const currentLogName = "scanstation.log"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Diagnostic  bool
	// Quiet drops stdout logging; the run log file is still written.
	Quiet bool
}

// Run starts the scanstation daemon and blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("scanstation-%s.log", runID))
	sessionID := uuid.NewString()

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	outputs := []string{"stdout", logPath}
	if opts.Quiet {
		outputs = []string{logPath}
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		Outputs:     outputs,
		Development: opts.Development,
		SessionID:   sessionID,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	debugDir := filepath.Join(cfg.Paths.LogDir, "debug")
	if opts.Diagnostic {
		logger = withDiagnosticLog(logger, debugDir, runID, sessionID)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", currentLogName, err)
	}
	logging.CleanupOldLogs(logger, time.Now(), cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "scanstation-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: debugDir, Pattern: "scanstation-*.log"},
	)

	runPreflight(signalCtx, logger, cfg)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.HistoryPath())
		if err != nil {
			logger.Error("open history store", logging.Error(err))
			return err
		}
	}

	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logging.WarnWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check for another scanstation daemon and the api_bind address"),
			logging.String(logging.FieldImpact, "presence events are rejected until `scanstation start` succeeds"),
		)
	}

	logger.Info("scanstation daemon ready",
		logging.EventType("daemon_ready"),
		logging.String("socket", cfg.SocketPath()),
		logging.String("api", d.APIAddress()),
		logging.String("log_path", logPath),
	)

	<-signalCtx.Done()
	logger.Info("scanstation daemon shutting down", logging.EventType("daemon_shutdown"))
	return nil
}

func withDiagnosticLog(logger *slog.Logger, debugDir, runID, sessionID string) *slog.Logger {
	if err := os.MkdirAll(debugDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to create debug log directory: %v\n", err)
		return logger
	}
	debugLogPath := filepath.Join(debugDir, fmt.Sprintf("scanstation-%s.log", runID))
	debugLogger, err := logging.New(logging.Options{
		Level:       "debug",
		Format:      "json",
		Outputs:     []string{debugLogPath},
		Development: true,
		SessionID:   sessionID,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to initialize debug logger: %v\n", err)
		return logger
	}
	logger = logging.TeeLogger(logger, debugLogger.Handler())
	if err := ensureCurrentLogPointer(debugDir, debugLogPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update debug/%s link: %v\n", currentLogName, err)
	}
	logger.Info("diagnostic mode enabled",
		logging.EventType("diagnostic_mode_enabled"),
		logging.String(logging.FieldSessionID, sessionID),
		logging.String("debug_log_path", debugLogPath),
	)
	return logger
}

func runPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	results := preflight.RunAll(ctx, cfg)
	for _, result := range preflight.Failed(results) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "the daemon may fail to start or lose features"),
		)
	}
	logger.Debug("preflight complete",
		logging.Int("checks", len(results)),
		logging.Int("failed", len(preflight.Failed(results))),
	)
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, currentLogName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// ReadPID returns the pid recorded by a running daemon, or 0 when no pid
// file exists.
func ReadPID(cfg *config.Config) (int, error) {
	data, err := os.ReadFile(cfg.PIDPath())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file %s: %w", cfg.PIDPath(), err)
	}
	return pid, nil
}

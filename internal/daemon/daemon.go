package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"scanstation/internal/config"
	"scanstation/internal/history"
	"scanstation/internal/logging"
	"scanstation/internal/notifications"
	"scanstation/internal/presence"
	"scanstation/internal/station"
)

// ErrNotRunning is returned by presence and control calls while the daemon is stopped.
var ErrNotRunning = errors.New("daemon not running")

// ErrHistoryDisabled is returned by History when no store is configured.
var ErrHistoryDisabled = errors.New("history disabled")

// ErrHandleRequired rejects presence calls with a blank handle.
var ErrHandleRequired = errors.New("handle is required")

const pruneInterval = time.Hour

// Daemon coordinates the station, history, presence source, and HTTP API,
// and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	station  *station.Station
	store    *history.Store
	recorder *history.Recorder
	notify   notifications.Service
	notifier *notifications.Notifier
	presence *presence.NetlinkSource
	api      *apiServer
	proc     *processSampler

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running         bool
	PID             int
	HistoryDBPath   string
	LockFilePath    string
	PresenceSource  string
	PresenceRunning bool
	HistoryWritten  int64
	HistoryDropped  int64
	NotifyEnabled   bool
	NotifyDropped   int64
	Process         *ProcessStats
	Station         station.Status
}

// New constructs a daemon with initialized dependencies. store may be nil
// when history is disabled.
func New(cfg *config.Config, store *history.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
		proc:     newProcessSampler(),
		notify:   notifications.NewService(cfg),
	}

	opts := []station.Option{
		station.WithName(cfg.Station.Name),
		station.WithTickInterval(cfg.TickInterval()),
		station.WithLogger(logger),
		station.WithDisposal(cfg.Disposal.Enabled),
	}
	if store != nil {
		d.recorder = history.NewRecorder(store,
			history.WithLogger(logging.NewComponentLogger(logger, "history")))
		opts = append(opts,
			station.WithObserver(d.recorder),
			station.WithDisposalRecorder(d.recorder),
		)
	}
	d.notifier = notifications.NewNotifier(d.notify, cfg.Station.Name, logger)
	if d.notifier != nil {
		opts = append(opts,
			station.WithObserver(d.notifier),
			station.WithDisposalRecorder(d.notifier),
		)
	}
	d.station = station.New(cfg.ScanQueue(), opts...)

	if cfg.Presence.Source == config.PresenceNetlink {
		d.presence = presence.NewNetlinkSource(presence.NetlinkConfig{
			Subsystem: cfg.Presence.Subsystem,
			MatchEnv:  cfg.Presence.MatchEnv,
			HandleKey: cfg.Presence.HandleKey,
		}, d.station, logger)
	}

	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and launches the station loop, presence
// source, history pruning, and HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scanstation daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}
	d.cancel = cancel
	d.recorder.Start()
	d.notifier.Start()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = d.station.Run(runCtx)
	}()

	if err := d.presence.Start(runCtx); err != nil {
		logging.WarnWithContext(d.logger, "presence source unavailable", "presence_start_failed",
			logging.Error(err),
			logging.String(logging.FieldSource, d.cfg.Presence.Source),
			logging.String(logging.FieldErrorHint, "check udev permissions or set presence.source = \"manual\""),
			logging.String(logging.FieldImpact, "only manual enter/exit triggers will reach the station"),
		)
		d.notifier.Notify(notifications.EventError, notifications.Payload{
			"context": "presence source",
			"error":   err.Error(),
		})
	}

	if d.store != nil && d.cfg.History.RetentionDays > 0 {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.pruneLoop(runCtx)
		}()
	}

	d.running.Store(true)
	d.notifier.Notify(notifications.EventDaemonStarted, nil)
	d.logger.Info("scanstation daemon started",
		logging.EventType("daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("station", d.station.Name()),
		logging.String(logging.FieldSource, d.cfg.Presence.Source),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock. Station
// state survives a stop.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.presence.Stop()
	d.api.stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("scanstation daemon stopped", logging.EventType("daemon_stopped"))
}

// Close releases resources held by the daemon. Pending history entries are
// flushed before the store is closed.
func (d *Daemon) Close() error {
	d.Stop()
	d.recorder.Close()
	d.notifier.Close()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start has succeeded without a matching Stop.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddress is the bound HTTP API address, or "" when the API is disabled
// or the daemon is stopped.
func (d *Daemon) APIAddress() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.api.addr()
}

// Station exposes the underlying station for in-process callers.
func (d *Daemon) Station() *station.Station {
	return d.station
}

// Enter reports an item arriving in the scan zone.
func (d *Daemon) Enter(handle string, attrs map[string]string) error {
	handle, err := d.checkHandle(handle)
	if err != nil {
		return err
	}
	d.station.Enter(handle, attrs)
	return nil
}

// Exit reports an item leaving the scan zone.
func (d *Daemon) Exit(handle string) error {
	handle, err := d.checkHandle(handle)
	if err != nil {
		return err
	}
	d.station.Exit(handle)
	return nil
}

// Dispose reports an item entering the disposal zone, or leaving it when
// leave is true.
func (d *Daemon) Dispose(handle string, leave bool) error {
	handle, err := d.checkHandle(handle)
	if err != nil {
		return err
	}
	if leave {
		d.station.DisposalExit(handle)
	} else {
		d.station.DisposalEnter(handle)
	}
	return nil
}

// Forget drops a remembered handle, reporting whether it was known.
func (d *Daemon) Forget(handle string) (bool, error) {
	handle, err := d.checkHandle(handle)
	if err != nil {
		return false, err
	}
	return d.station.Forget(handle), nil
}

// Reset clears the queue, the slot, and every remembered handle.
func (d *Daemon) Reset() error {
	if !d.running.Load() {
		return ErrNotRunning
	}
	d.station.Reset()
	d.logger.Info("station reset", logging.EventType("station_reset_requested"))
	return nil
}

// TestNotification sends a test message through the configured topic. It
// reports false with a reason when notifications are disabled.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if !d.notify.Enabled() {
		return false, "notifications disabled (set notifications.ntfy_topic)", nil
	}
	if err := d.notify.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "", err
	}
	return true, "", nil
}

// History lists recorded scan outcomes together with per-outcome totals.
func (d *Daemon) History(ctx context.Context, filter history.Filter) ([]history.Entry, history.Stats, error) {
	if d.store == nil {
		return nil, history.Stats{}, ErrHistoryDisabled
	}
	entries, err := d.store.List(ctx, filter)
	if err != nil {
		return nil, history.Stats{}, err
	}
	stats, err := d.store.Stats(ctx)
	if err != nil {
		return nil, history.Stats{}, err
	}
	return entries, stats, nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:         d.running.Load(),
		PID:             os.Getpid(),
		LockFilePath:    d.lockPath,
		PresenceSource:  d.cfg.Presence.Source,
		PresenceRunning: d.presence.Running(),
		HistoryWritten:  d.recorder.Written(),
		HistoryDropped:  d.recorder.Dropped(),
		NotifyEnabled:   d.notify.Enabled(),
		NotifyDropped:   d.notifier.Dropped(),
		Station:         d.station.Status(),
	}
	if d.store != nil {
		status.HistoryDBPath = d.store.Path()
	}
	if stats, err := d.proc.sample(ctx); err == nil {
		status.Process = &stats
	} else {
		d.logger.Debug("process stats unavailable", logging.Error(err))
	}
	return status
}

func (d *Daemon) checkHandle(handle string) (string, error) {
	if !d.running.Load() {
		return "", ErrNotRunning
	}
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return "", ErrHandleRequired
	}
	return handle, nil
}

func (d *Daemon) pruneLoop(ctx context.Context) {
	d.prune(ctx)
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.prune(ctx)
		}
	}
}

func (d *Daemon) prune(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -d.cfg.History.RetentionDays)
	removed, err := d.store.Prune(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			logging.WarnWithContext(d.logger, "history prune failed", "history_prune_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "old scan history is kept until the next attempt"),
			)
		}
		return
	}
	if removed > 0 {
		d.logger.Info("history pruned",
			logging.EventType("history_pruned"),
			logging.Int64("removed", removed),
			logging.Int("retention_days", d.cfg.History.RetentionDays),
		)
	}
}

package station

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"scanstation/internal/clock"
	"scanstation/internal/logging"
	"scanstation/internal/scanqueue"
)

const defaultTickInterval = 16 * time.Millisecond

// DisposalRecorder is told about served items dropped into the disposal zone.
type DisposalRecorder interface {
	Disposed(req *scanqueue.Request)
}

// Station owns the engine and the handle registry.
type Station struct {
	name     string
	engine   *scanqueue.Engine
	clock    clock.Clock
	tick     time.Duration
	logger   *slog.Logger
	sampler  *logging.ProgressSampler
	disposed []DisposalRecorder

	observers []scanqueue.Observer
	counters  counters
	attempt   atomic.Uint64

	// mu guards registry, departed and disposal. Lock order: mu before the
	// engine lock.
	mu       sync.Mutex
	registry map[string]*scanqueue.Request
	departed *departedServed
	disposal *Disposal
	backlog  int
}

// Option customizes a Station.
type Option func(*Station)

// WithName labels the station in logs and status.
func WithName(name string) Option {
	return func(s *Station) {
		if name != "" {
			s.name = name
		}
	}
}

// WithClock sets the time source used by Run.
func WithClock(c clock.Clock) Option {
	return func(s *Station) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithTickInterval sets the Run loop period.
func WithTickInterval(d time.Duration) Option {
	return func(s *Station) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithLogger sets the station logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Station) {
		s.logger = logging.NewComponentLogger(logger, "station")
	}
}

// WithObserver adds an engine observer. Observers run under the engine lock.
func WithObserver(obs scanqueue.Observer) Option {
	return func(s *Station) {
		if obs != nil {
			s.observers = append(s.observers, obs)
		}
	}
}

// WithDisposalRecorder forwards disposals to r. Recorders are called in the
// order they were added.
func WithDisposalRecorder(r DisposalRecorder) Option {
	return func(s *Station) {
		if r != nil {
			s.disposed = append(s.disposed, r)
		}
	}
}

// WithDisposal enables or disables the disposal zone.
func WithDisposal(enabled bool) Option {
	return func(s *Station) {
		s.disposal = NewDisposal(enabled)
	}
}

// WithDisposalBacklog caps how many served items that left the scan zone
// are remembered for a later disposal arrival.
func WithDisposalBacklog(n int) Option {
	return func(s *Station) {
		if n >= 0 {
			s.backlog = n
		}
	}
}

// New builds a station with an idle engine and an empty registry.
func New(cfg scanqueue.Config, opts ...Option) *Station {
	s := &Station{
		name:     "station",
		clock:    clock.NewSystem(),
		tick:     defaultTickInterval,
		logger:   logging.NewComponentLogger(nil, "station"),
		sampler:  logging.NewProgressSampler(4),
		registry: make(map[string]*scanqueue.Request),
		disposal: NewDisposal(true),
		backlog:  defaultDisposalBacklog,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.disposal.enabled {
		s.backlog = 0
	}
	s.departed = newDepartedServed(s.backlog)

	observers := scanqueue.Observers{scanqueue.ObserverFunc(s.observe)}
	observers = append(observers, s.observers...)
	s.engine = scanqueue.NewEngine(cfg, scanqueue.WithObserver(observers))
	return s
}

// Name returns the station label.
func (s *Station) Name() string {
	return s.name
}

// Enter reports that the item named handle is in the scan zone. A handle
// not currently present becomes a new request, even if an earlier item with
// the same handle was served; attrs are only used for new requests.
func (s *Station) Enter(handle string, attrs map[string]string) {
	if handle == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.registry[handle]
	switch {
	case !ok:
		s.departed.drop(handle)
		req = scanqueue.NewRequest(handle, scanqueue.WithAttrs(attrs), scanqueue.WithOnScanned(s.onScanned))
		s.registry[handle] = req
	case req.Served():
		s.logger.Debug("served item still present; ignoring",
			logging.EventType("served_reentry_ignored"),
			logging.RequestID(handle),
		)
	}
	s.engine.OnEnter(req)
}

// Exit reports that the item named handle left the scan zone. The request
// is forgotten; a served one is held back for the disposal zone while it is
// enabled.
func (s *Station) Exit(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.registry[handle]
	if !ok {
		return
	}
	s.engine.OnExit(req)
	delete(s.registry, handle)
	if req.Served() {
		s.departed.put(handle, req)
	}
}

// lookup finds the request a handle currently names. mu must be held.
func (s *Station) lookup(handle string) *scanqueue.Request {
	if req, ok := s.registry[handle]; ok {
		return req
	}
	req, _ := s.departed.get(handle)
	return req
}

// DisposalEnter reports an item arriving in the disposal zone. Only served
// items count; a counted item that already left the scan zone is forgotten.
func (s *Station) DisposalEnter(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := s.lookup(handle)
	if !s.disposal.Enter(handle, req.Served()) {
		return
	}
	s.departed.drop(handle)
	s.counters.disposed.Add(1)
	for _, r := range s.disposed {
		r.Disposed(req)
	}
	s.logger.Info("served item disposed",
		logging.EventType("item_disposed"),
		logging.RequestID(handle),
	)
}

// DisposalExit reports an item leaving the disposal zone.
func (s *Station) DisposalExit(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposal.Exit(handle)
}

// Forget drops handle from the registry, leaving both zones first. It
// reports whether the handle was known.
func (s *Station) Forget(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, present := s.registry[handle]
	departed := s.departed.drop(handle)
	if !present && !departed {
		return false
	}
	if present {
		s.engine.OnExit(req)
		delete(s.registry, handle)
	}
	s.disposal.Exit(handle)
	return true
}

// Reset empties the queue, the slot, the registry, and the disposal zone.
// Lifetime counters are kept.
func (s *Station) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.Reset()
	clear(s.registry)
	s.departed.clear()
	s.disposal.Clear()
	s.sampler.Reset()
}

// Advance moves station time forward by dt.
func (s *Station) Advance(dt time.Duration) {
	s.engine.Tick(dt)

	snap := s.engine.Snapshot()
	if snap.Phase != scanqueue.PhaseScanning || snap.Active == nil {
		return
	}
	key := snap.Active.ID() + "#" + strconv.FormatUint(s.attempt.Load(), 10)
	if s.sampler.ShouldLog(key, snap.Progress) {
		s.logger.Debug("scan progress",
			logging.EventType("scan_progress"),
			logging.RequestID(snap.Active.ID()),
			logging.Progress(snap.Progress),
		)
	}
}

// Run ticks the station until ctx is cancelled. dt is measured with the
// station clock rather than assumed from the ticker period.
func (s *Station) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.logger.Info("station loop started",
		logging.EventType("station_started"),
		logging.Duration("tick", s.tick),
	)
	last := s.clock.Now()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("station loop stopped", logging.EventType("station_stopped"))
			return nil
		case <-ticker.C:
			now := s.clock.Now()
			s.Advance(now.Sub(last))
			last = now
		}
	}
}

// Status captures the engine, registry, and counters.
func (s *Station) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.engine.Snapshot()
	status := Status{
		Name:           s.name,
		Phase:          snap.Phase,
		ActiveDeparted: snap.ActiveDeparted,
		Elapsed:        snap.Elapsed,
		Progress:       snap.Progress,
		Known:          len(s.registry) + s.departed.len(),
		Counters:       s.counters.snapshot(),
		Disposal:       s.disposal.Status(),
		Config:         s.engine.Config(),
	}
	if snap.Active != nil {
		status.Active = snap.Active.ID()
		status.ActiveAttrs = snap.Active.Attrs()
	}
	for _, req := range snap.Queued {
		status.Queued = append(status.Queued, req.ID())
	}
	for handle, req := range s.registry {
		if req.Served() {
			status.Served = append(status.Served, handle)
		}
	}
	status.Served = append(status.Served, s.departed.handles()...)
	sort.Strings(status.Served)
	return status
}

func (s *Station) onScanned(req *scanqueue.Request) {
	s.logger.Info("item scanned",
		logging.EventType("item_scanned"),
		logging.RequestID(req.ID()),
	)
}

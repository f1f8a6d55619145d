package scanqueue

import (
	"sync"
	"time"
)

// Config holds the phase durations. Durations at or below zero complete on
// the next tick.
type Config struct {
	ScanDuration     time.Duration
	CooldownDuration time.Duration
}

// session is the single scan slot. active is set in Scanning and Cooling
// and nil in Idle. Transitions read only phase, active and elapsed.
type session struct {
	phase   Phase
	active  *Request
	elapsed time.Duration
	// departureReported is set once the cooling item's exit was announced.
	// It is reporting state only and is cleared with the session.
	departureReported bool
}

// Engine owns the ledger and the scan slot.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	ledger   *Ledger
	session  session
	observer Observer
}

// Option customizes an Engine.
type Option func(*Engine)

// WithObserver attaches an observer for lifecycle events.
func WithObserver(obs Observer) Option {
	return func(e *Engine) {
		e.observer = obs
	}
}

// NewEngine builds an idle engine with an empty ledger.
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		ledger: NewLedger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the configured durations.
func (e *Engine) Config() Config {
	return e.cfg
}

// OnEnter handles an arrival. Served requests and the request already
// holding the slot are ignored, as are repeated arrivals of a waiting
// request. When the slot is idle the head starts scanning at once.
func (e *Engine) OnEnter(r *Request) {
	if r == nil || r.Served() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if r == e.session.active {
		return
	}
	if e.ledger.Enqueue(r) {
		e.emit(EventEnqueued, r, 0)
	}
	e.startNextLocked()
}

// OnExit handles a departure. A waiting request is dropped from the ledger.
// The active request is preempted if it is still scanning; if it is cooling
// the cooldown runs to completion anyway.
func (e *Engine) OnExit(r *Request) {
	if r == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ledger.Remove(r) {
		e.emit(EventRemoved, r, 0)
	}
	if r != e.session.active {
		return
	}
	switch e.session.phase {
	case PhaseScanning:
		elapsed := e.session.elapsed
		e.session = session{phase: PhaseIdle}
		e.emit(EventPreempted, r, elapsed)
		e.startNextLocked()
	case PhaseCooling:
		if !e.session.departureReported {
			e.session.departureReported = true
			e.emit(EventDepartedCooling, r, e.session.elapsed)
		}
	}
}

// Tick advances the current phase by dt. Negative dt counts as zero. Time
// left over after a phase boundary is dropped; every phase starts at zero.
func (e *Engine) Tick(dt time.Duration) {
	if dt < 0 {
		dt = 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.session.phase {
	case PhaseIdle:
		e.startNextLocked()
	case PhaseScanning:
		e.session.elapsed += dt
		if e.session.elapsed >= e.cfg.ScanDuration {
			e.completeScanLocked()
		}
	case PhaseCooling:
		e.session.elapsed += dt
		if e.session.elapsed >= e.cfg.CooldownDuration {
			e.finishCooldownLocked()
		}
	}
}

// Reset empties the ledger and releases the slot without serving anyone.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	active := e.session.active
	elapsed := e.session.elapsed
	e.ledger.Clear()
	e.session = session{phase: PhaseIdle}
	e.emit(EventReset, active, elapsed)
}

// CurrentProgress returns the scan progress of the active request in [0,1].
// It is zero while idle or cooling.
func (e *Engine) CurrentProgress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Progress(e.session.phase, e.session.elapsed, e.cfg.ScanDuration)
}

// CurrentPhase returns the slot phase.
func (e *Engine) CurrentPhase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.phase
}

// ActiveRequest returns the request holding the slot, or nil.
func (e *Engine) ActiveRequest() *Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.active
}

// Snapshot is a consistent view of the engine for presentation.
type Snapshot struct {
	Phase          Phase
	Active         *Request
	ActiveDeparted bool
	Elapsed        time.Duration
	Progress       float64
	Queued         []*Request
}

// Snapshot captures phase, slot, and ledger in one lock.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Phase:          e.session.phase,
		Active:         e.session.active,
		ActiveDeparted: e.session.departureReported,
		Elapsed:        e.session.elapsed,
		Progress:       Progress(e.session.phase, e.session.elapsed, e.cfg.ScanDuration),
		Queued:         e.ledger.Snapshot(),
	}
}

// Progress derives the normalized scan progress from the phase, the time
// spent in it, and the scan duration.
func Progress(phase Phase, elapsed, scanDuration time.Duration) float64 {
	if phase != PhaseScanning {
		return 0
	}
	if scanDuration <= 0 {
		if elapsed > 0 {
			return 1
		}
		return 0
	}
	return clamp01(float64(elapsed) / float64(scanDuration))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func (e *Engine) startNextLocked() {
	if e.session.phase != PhaseIdle {
		return
	}
	head := e.ledger.PopHead()
	if head == nil {
		return
	}
	e.session = session{phase: PhaseScanning, active: head}
	e.emit(EventScanStarted, head, 0)
}

func (e *Engine) completeScanLocked() {
	r := e.session.active
	elapsed := e.session.elapsed
	r.markScanned()
	e.session = session{phase: PhaseCooling, active: r}
	e.emit(EventServed, r, elapsed)
}

func (e *Engine) finishCooldownLocked() {
	r := e.session.active
	elapsed := e.session.elapsed
	e.session = session{phase: PhaseIdle}
	e.emit(EventCooldownDone, r, elapsed)
	e.startNextLocked()
}

func (e *Engine) emit(kind EventKind, r *Request, elapsed time.Duration) {
	if e.observer == nil {
		return
	}
	e.observer.OnEvent(Event{
		Kind:    kind,
		Request: r,
		Phase:   e.session.phase,
		Elapsed: elapsed,
		Queued:  e.ledger.Len(),
	})
}

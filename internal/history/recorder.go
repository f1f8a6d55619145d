package history

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"scanstation/internal/clock"
	"scanstation/internal/logging"
	"scanstation/internal/scanqueue"
)

// Writer is the subset of Store the Recorder needs.
type Writer interface {
	Record(ctx context.Context, entry Entry) (int64, error)
}

const (
	defaultRecorderBuffer = 256
	recordTimeout         = 5 * time.Second
)

type attempt struct {
	scanID    string
	startedAt time.Time
}

// Recorder turns engine events into history entries. OnEvent runs under the
// engine lock, so it only does map bookkeeping and a non-blocking send; a
// background goroutine performs the writes. Entries are dropped (and counted)
// when the buffer is full.
type Recorder struct {
	writer Writer
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.Mutex
	attempts map[*scanqueue.Request]attempt
	entries  chan Entry
	closed   bool

	dropped atomic.Int64
	written atomic.Int64

	startOnce sync.Once
	started   atomic.Bool
	done      chan struct{}
}

// RecorderOption customizes a Recorder.
type RecorderOption func(*Recorder)

// WithClock overrides the time source used for entry timestamps.
func WithClock(c clock.Clock) RecorderOption {
	return func(r *Recorder) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithLogger sets the logger for write failures.
func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logging.NewComponentLogger(logger, "history")
	}
}

// WithBuffer sets how many entries may wait for the writer.
func WithBuffer(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.entries = make(chan Entry, n)
		}
	}
}

// NewRecorder builds a recorder writing to w. Call Start before events flow
// and Close to flush.
func NewRecorder(w Writer, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		writer:   w,
		clock:    clock.NewSystem(),
		logger:   logging.NewNop(),
		attempts: make(map[*scanqueue.Request]attempt),
		entries:  make(chan Entry, defaultRecorderBuffer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the background writer. Calling it more than once is a no-op.
func (r *Recorder) Start() {
	if r == nil {
		return
	}
	r.startOnce.Do(func() {
		r.started.Store(true)
		go r.run()
	})
}

// Close stops accepting entries and waits for the buffered ones to be written.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.entries)
	}
	r.mu.Unlock()
	if r.started.Load() {
		<-r.done
	}
}

// Dropped reports how many entries were discarded because the buffer was full.
func (r *Recorder) Dropped() int64 {
	if r == nil {
		return 0
	}
	return r.dropped.Load()
}

// Written reports how many entries reached the store.
func (r *Recorder) Written() int64 {
	if r == nil {
		return 0
	}
	return r.written.Load()
}

// OnEvent implements scanqueue.Observer.
func (r *Recorder) OnEvent(evt scanqueue.Event) {
	if r == nil || evt.Request == nil {
		return
	}
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	switch evt.Kind {
	case scanqueue.EventScanStarted:
		r.attempts[evt.Request] = attempt{scanID: uuid.NewString(), startedAt: now}
	case scanqueue.EventPreempted:
		r.finishLocked(evt.Request, OutcomePreempted, evt.Elapsed, now, true)
	case scanqueue.EventServed:
		r.finishLocked(evt.Request, OutcomeServed, evt.Elapsed, now, false)
	case scanqueue.EventDepartedCooling:
		r.finishLocked(evt.Request, OutcomeDepartedCooling, evt.Elapsed, now, false)
	case scanqueue.EventReset:
		// A reset during cooldown ends an attempt already logged as served.
		if evt.Request.Served() {
			delete(r.attempts, evt.Request)
			return
		}
		r.finishLocked(evt.Request, OutcomeReset, evt.Elapsed, now, true)
	case scanqueue.EventCooldownDone:
		delete(r.attempts, evt.Request)
	}
}

// Disposed records a served request dropped into the disposal zone.
func (r *Recorder) Disposed(req *scanqueue.Request) {
	if r == nil || req == nil {
		return
	}
	now := r.clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishLocked(req, OutcomeDisposed, 0, now, false)
}

func (r *Recorder) finishLocked(req *scanqueue.Request, outcome Outcome, elapsed time.Duration, now time.Time, forget bool) {
	a, ok := r.attempts[req]
	if !ok {
		a = attempt{scanID: uuid.NewString(), startedAt: now.Add(-elapsed)}
	}
	if forget {
		delete(r.attempts, req)
	}
	r.sendLocked(Entry{
		ScanID:    a.scanID,
		RequestID: req.ID(),
		Outcome:   outcome,
		StartedAt: a.startedAt,
		EndedAt:   now,
		Elapsed:   elapsed,
		Attrs:     req.Attrs(),
	})
}

func (r *Recorder) sendLocked(entry Entry) {
	if r.closed {
		r.dropped.Add(1)
		return
	}
	select {
	case r.entries <- entry:
	default:
		r.dropped.Add(1)
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for entry := range r.entries {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		_, err := r.writer.Record(ctx, entry)
		cancel()
		if err != nil {
			logging.WarnWithContext(r.logger, "history write failed", "history_write_failed",
				logging.RequestID(entry.RequestID),
				logging.String("outcome", string(entry.Outcome)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check state_dir permissions and free space"),
				logging.String(logging.FieldImpact, "scan outcome missing from history"),
			)
			continue
		}
		r.written.Add(1)
	}
}

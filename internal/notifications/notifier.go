package notifications

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"scanstation/internal/logging"
	"scanstation/internal/scanqueue"
)

const (
	notifierBuffer  = 64
	publishDeadline = 15 * time.Second
)

type pending struct {
	event   Event
	payload Payload
}

// Notifier forwards station milestones to a Service. Callbacks only enqueue;
// a background goroutine publishes. Events are dropped when the queue is full.
type Notifier struct {
	svc     Service
	station string
	logger  *slog.Logger

	mu     sync.Mutex
	queue  chan pending
	closed bool

	startOnce sync.Once
	started   atomic.Bool
	done      chan struct{}
	dropped   atomic.Int64
}

// NewNotifier returns nil when svc cannot deliver anything, so callers can
// skip wiring it.
func NewNotifier(svc Service, station string, logger *slog.Logger) *Notifier {
	if svc == nil || !svc.Enabled() {
		return nil
	}
	return &Notifier{
		svc:     svc,
		station: station,
		logger:  logging.NewComponentLogger(logger, "notifications"),
		queue:   make(chan pending, notifierBuffer),
		done:    make(chan struct{}),
	}
}

// Start launches the publisher. Calling it more than once is a no-op.
func (n *Notifier) Start() {
	if n == nil {
		return
	}
	n.startOnce.Do(func() {
		n.started.Store(true)
		go n.run()
	})
}

// Close stops accepting events and waits for queued ones to be published.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	if n.started.Load() {
		<-n.done
	}
}

// Dropped reports events discarded because the queue was full.
func (n *Notifier) Dropped() int64 {
	if n == nil {
		return 0
	}
	return n.dropped.Load()
}

// Notify queues an arbitrary event.
func (n *Notifier) Notify(event Event, payload Payload) {
	if n == nil {
		return
	}
	if payload == nil {
		payload = Payload{}
	}
	if _, ok := payload["station"]; !ok {
		payload["station"] = n.station
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		n.dropped.Add(1)
		return
	}
	select {
	case n.queue <- pending{event: event, payload: payload}:
	default:
		n.dropped.Add(1)
	}
}

// OnEvent implements scanqueue.Observer.
func (n *Notifier) OnEvent(evt scanqueue.Event) {
	if n == nil || evt.Request == nil {
		return
	}
	switch evt.Kind {
	case scanqueue.EventServed:
		n.Notify(EventItemServed, Payload{
			"handle":  evt.Request.ID(),
			"elapsed": evt.Elapsed.Round(10 * time.Millisecond).String(),
		})
	case scanqueue.EventPreempted:
		n.Notify(EventItemPreempted, Payload{"handle": evt.Request.ID()})
	}
}

// Disposed implements station.DisposalRecorder.
func (n *Notifier) Disposed(req *scanqueue.Request) {
	if n == nil || req == nil {
		return
	}
	n.Notify(EventItemDisposed, Payload{"handle": req.ID()})
}

func (n *Notifier) run() {
	defer close(n.done)
	for item := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishDeadline)
		err := n.svc.Publish(ctx, item.event, item.payload)
		cancel()
		if err != nil {
			logging.WarnWithContext(n.logger, "notification failed", "notification_failed",
				logging.String("event", string(item.event)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
				logging.String(logging.FieldImpact, "station keeps running; this notification is lost"),
			)
		}
	}
}

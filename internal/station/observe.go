package station

import (
	"context"
	"log/slog"
	"sync/atomic"

	"scanstation/internal/logging"
	"scanstation/internal/scanqueue"
)

type counters struct {
	enqueued        atomic.Uint64
	started         atomic.Uint64
	served          atomic.Uint64
	preempted       atomic.Uint64
	departedCooling atomic.Uint64
	disposed        atomic.Uint64
	resets          atomic.Uint64
}

// Counters are lifetime totals for one station.
type Counters struct {
	Enqueued        uint64
	Started         uint64
	Served          uint64
	Preempted       uint64
	DepartedCooling uint64
	Disposed        uint64
	Resets          uint64
}

func (c *counters) snapshot() Counters {
	return Counters{
		Enqueued:        c.enqueued.Load(),
		Started:         c.started.Load(),
		Served:          c.served.Load(),
		Preempted:       c.preempted.Load(),
		DepartedCooling: c.departedCooling.Load(),
		Disposed:        c.disposed.Load(),
		Resets:          c.resets.Load(),
	}
}

// observe runs under the engine lock. It must not touch s.mu: callers of the
// engine already hold it.
func (s *Station) observe(evt scanqueue.Event) {
	attrs := []logging.Attr{
		logging.EventType(evt.Kind.String()),
		logging.Phase(evt.Phase),
		logging.Queued(evt.Queued),
	}
	if evt.Request != nil {
		attrs = append(attrs, logging.RequestID(evt.Request.ID()))
	}
	log := func(level slog.Level, msg string) {
		s.logger.LogAttrs(context.Background(), level, msg, attrs...)
	}

	switch evt.Kind {
	case scanqueue.EventEnqueued:
		s.counters.enqueued.Add(1)
		log(slog.LevelDebug, "item queued")
	case scanqueue.EventRemoved:
		log(slog.LevelDebug, "waiting item left")
	case scanqueue.EventScanStarted:
		s.counters.started.Add(1)
		s.attempt.Add(1)
		log(slog.LevelInfo, "scan started")
	case scanqueue.EventPreempted:
		s.counters.preempted.Add(1)
		attrs = append(attrs, logging.Duration("elapsed", evt.Elapsed))
		log(slog.LevelInfo, "scan preempted")
	case scanqueue.EventServed:
		s.counters.served.Add(1)
		attrs = append(attrs, logging.Duration("elapsed", evt.Elapsed))
		log(slog.LevelInfo, "scan complete")
	case scanqueue.EventDepartedCooling:
		s.counters.departedCooling.Add(1)
		log(slog.LevelInfo, "served item left during cooldown")
	case scanqueue.EventCooldownDone:
		log(slog.LevelDebug, "cooldown finished")
	case scanqueue.EventReset:
		s.counters.resets.Add(1)
		log(slog.LevelInfo, "station reset")
	}
}

package scanqueue

import "time"

// EventKind identifies a point in the request lifecycle.
type EventKind int

const (
	// EventEnqueued fires when a request joins the ledger.
	EventEnqueued EventKind = iota
	// EventRemoved fires when a waiting request leaves the ledger before
	// reaching the slot.
	EventRemoved
	// EventScanStarted fires when a request takes the slot.
	EventScanStarted
	// EventPreempted fires when the active request leaves mid-scan.
	EventPreempted
	// EventServed fires after the active request is marked served.
	EventServed
	// EventDepartedCooling fires when the served request leaves while the
	// slot is still cooling down.
	EventDepartedCooling
	// EventCooldownDone fires when the slot is released after cooling.
	EventCooldownDone
	// EventReset fires once per Reset, with the request that held the slot
	// (if any).
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventEnqueued:
		return "enqueued"
	case EventRemoved:
		return "removed"
	case EventScanStarted:
		return "scan_started"
	case EventPreempted:
		return "preempted"
	case EventServed:
		return "served"
	case EventDepartedCooling:
		return "departed_cooling"
	case EventCooldownDone:
		return "cooldown_done"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Event describes a transition. Elapsed is the time accumulated in the phase
// that just ended, or zero for ledger-only events. Phase and Queued describe
// the engine after the transition.
type Event struct {
	Kind    EventKind
	Request *Request
	Phase   Phase
	Elapsed time.Duration
	Queued  int
}

// Observer receives engine events. Observers run synchronously while the
// engine lock is held and must not call back into the engine.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f(evt).
func (f ObserverFunc) OnEvent(evt Event) {
	f(evt)
}

// Observers fans one event out to several observers in order.
type Observers []Observer

// OnEvent forwards evt to every non-nil observer.
func (o Observers) OnEvent(evt Event) {
	for _, obs := range o {
		if obs != nil {
			obs.OnEvent(evt)
		}
	}
}

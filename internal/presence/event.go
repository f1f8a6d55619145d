// Package presence turns outside signals into enter/exit calls on a station.
//
// Sources are the udev netlink monitor (physical devices appearing and
// disappearing) and TOML scripts used for offline simulation. Both reduce to
// Event values dispatched to a Sink.
package presence

import (
	"fmt"
	"strings"
	"time"
)

// Kind says whether an item arrived or left.
type Kind int

const (
	KindEnter Kind = iota
	KindExit
)

func (k Kind) String() string {
	switch k {
	case KindEnter:
		return "enter"
	case KindExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Zone names the detection area an event belongs to.
type Zone string

const (
	ZoneScan     Zone = "scan"
	ZoneDisposal Zone = "disposal"
)

// Event is one presence change.
type Event struct {
	Kind   Kind
	Zone   Zone
	Handle string
	Attrs  map[string]string
	At     time.Time
}

// Sink receives scan-zone presence changes.
type Sink interface {
	Enter(handle string, attrs map[string]string)
	Exit(handle string)
}

// DisposalSink receives disposal-zone presence changes.
type DisposalSink interface {
	DisposalEnter(handle string)
	DisposalExit(handle string)
}

// Dispatch delivers evt to sink. Disposal events require sink to also
// implement DisposalSink.
func Dispatch(sink Sink, evt Event) error {
	if sink == nil {
		return fmt.Errorf("dispatch %s %s: no sink", evt.Kind, evt.Handle)
	}
	handle := strings.TrimSpace(evt.Handle)
	if handle == "" {
		return fmt.Errorf("dispatch %s: empty handle", evt.Kind)
	}

	switch evt.Zone {
	case "", ZoneScan:
		if evt.Kind == KindEnter {
			sink.Enter(handle, evt.Attrs)
		} else {
			sink.Exit(handle)
		}
		return nil
	case ZoneDisposal:
		ds, ok := sink.(DisposalSink)
		if !ok {
			return fmt.Errorf("dispatch %s %s: sink has no disposal zone", evt.Kind, handle)
		}
		if evt.Kind == KindEnter {
			ds.DisposalEnter(handle)
		} else {
			ds.DisposalExit(handle)
		}
		return nil
	default:
		return fmt.Errorf("dispatch %s %s: unknown zone %q", evt.Kind, handle, evt.Zone)
	}
}

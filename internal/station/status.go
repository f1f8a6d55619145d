package station

import (
	"time"

	"scanstation/internal/scanqueue"
)

// Status is a point-in-time view of a station.
type Status struct {
	Name           string
	Phase          scanqueue.Phase
	Active         string
	ActiveAttrs    map[string]string
	ActiveDeparted bool
	Elapsed        time.Duration
	Progress       float64
	Queued         []string
	Served         []string
	Known          int
	Counters       Counters
	Disposal       DisposalStatus
	Config         scanqueue.Config
}

// Remaining is the time left in the current phase, or zero when idle.
func (s Status) Remaining() time.Duration {
	var total time.Duration
	switch s.Phase {
	case scanqueue.PhaseScanning:
		total = s.Config.ScanDuration
	case scanqueue.PhaseCooling:
		total = s.Config.CooldownDuration
	default:
		return 0
	}
	return max(total-s.Elapsed, 0)
}

package history

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is how a scan attempt ended.
type Outcome string

const (
	// OutcomeServed marks a scan that ran its full duration.
	OutcomeServed Outcome = "served"
	// OutcomePreempted marks a scan aborted because the item left.
	OutcomePreempted Outcome = "preempted"
	// OutcomeDepartedCooling marks a served item that left before cooldown ended.
	OutcomeDepartedCooling Outcome = "departed_cooling"
	// OutcomeReset marks an attempt discarded by a station reset.
	OutcomeReset Outcome = "reset"
	// OutcomeDisposed marks a served item dropped into the disposal zone.
	OutcomeDisposed Outcome = "disposed"
)

// Outcomes lists every outcome in display order.
func Outcomes() []Outcome {
	return []Outcome{OutcomeServed, OutcomePreempted, OutcomeDepartedCooling, OutcomeReset, OutcomeDisposed}
}

// ParseOutcome normalizes s into a known outcome.
func ParseOutcome(s string) (Outcome, error) {
	normalized := Outcome(strings.ToLower(strings.TrimSpace(s)))
	for _, o := range Outcomes() {
		if o == normalized {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown outcome %q", s)
}

// Entry is one row of scan history.
type Entry struct {
	ID        int64
	ScanID    string
	RequestID string
	Outcome   Outcome
	StartedAt time.Time
	EndedAt   time.Time
	Elapsed   time.Duration
	Attrs     map[string]string
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Outcome   Outcome
	RequestID string
	Since     time.Time
	Limit     int
}

// Stats summarizes the history table.
type Stats struct {
	Total  int
	Counts map[Outcome]int
}

// Package simulation replays presence scripts against a station on a manual
// clock, producing a deterministic timeline without a daemon or real time.
package simulation

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"scanstation/internal/clock"
	"scanstation/internal/logging"
	"scanstation/internal/presence"
	"scanstation/internal/scanqueue"
	"scanstation/internal/station"
)

const (
	defaultStep = 10 * time.Millisecond
	// drainLimit bounds how long the run continues after the last step while
	// waiting for the slot to go idle.
	drainLimit = time.Hour
)

// Options controls a simulation run.
type Options struct {
	Name     string
	Step     time.Duration
	Disposal bool
	Logger   *slog.Logger
	// Start is the wall time the timeline is anchored to. Zero uses a fixed
	// epoch so output is reproducible.
	Start time.Time
}

// Entry is one line of the timeline.
type Entry struct {
	At     time.Duration
	Kind   string
	Handle string
	Phase  string
	Queued int
}

// Result is the full timeline and the station state after the run.
type Result struct {
	Timeline []Entry
	Final    station.Status
	Duration time.Duration
}

// Run plays script against a fresh station configured with cfg.
func Run(cfg scanqueue.Config, script *presence.Script, opts Options) (Result, error) {
	if script == nil || len(script.Steps) == 0 {
		return Result{}, errors.New("simulation script has no steps")
	}
	step := opts.Step
	if step <= 0 {
		step = defaultStep
	}
	start := opts.Start
	if start.IsZero() {
		start = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	manual := clock.NewManual(start)
	var result Result
	record := scanqueue.ObserverFunc(func(evt scanqueue.Event) {
		entry := Entry{
			At:     manual.Now().Sub(start),
			Kind:   evt.Kind.String(),
			Phase:  evt.Phase.String(),
			Queued: evt.Queued,
		}
		if evt.Request != nil {
			entry.Handle = evt.Request.ID()
		}
		result.Timeline = append(result.Timeline, entry)
	})

	name := opts.Name
	if name == "" {
		name = "simulation"
	}
	st := station.New(cfg,
		station.WithName(name),
		station.WithClock(manual),
		station.WithLogger(logger),
		station.WithDisposal(opts.Disposal),
		station.WithObserver(record),
	)

	cursor := presence.NewCursor(script)
	var offset time.Duration
	deadline := script.Duration() + drainLimit
	for {
		for _, s := range cursor.Due(offset) {
			evt, err := s.Event(start)
			if err != nil {
				return result, err
			}
			if err := presence.Dispatch(st, evt); err != nil {
				return result, fmt.Errorf("at %s: %w", offset, err)
			}
			if evt.Zone == presence.ZoneDisposal {
				// Disposal changes never reach the engine observers.
				status := st.Status()
				result.Timeline = append(result.Timeline, Entry{
					At:     offset,
					Kind:   "disposal_" + evt.Kind.String(),
					Handle: evt.Handle,
					Phase:  status.Phase.String(),
					Queued: len(status.Queued),
				})
			}
		}

		status := st.Status()
		if cursor.Done() && status.Phase == scanqueue.PhaseIdle && len(status.Queued) == 0 {
			break
		}
		if offset >= deadline {
			return result, fmt.Errorf("simulation did not settle within %s after the last step", drainLimit)
		}

		manual.Advance(step)
		st.Advance(step)
		offset += step
	}

	result.Final = st.Status()
	result.Duration = offset
	return result, nil
}

// SpawnScript invents n arrivals, one every interval. When dwell > 0 each
// item leaves dwell after it arrived; otherwise items linger until served.
func SpawnScript(spawner *station.Spawner, n int, interval, dwell time.Duration) *presence.Script {
	if spawner == nil {
		spawner = station.NewSpawner(nil, 0)
	}
	script := &presence.Script{}
	for i := range n {
		handle, attrs := spawner.Next()
		at := time.Duration(i) * interval
		script.Steps = append(script.Steps, presence.Step{
			At:     at.Seconds(),
			Action: "enter",
			Handle: handle,
			Attrs:  attrs,
		})
		if dwell > 0 {
			script.Steps = append(script.Steps, presence.Step{
				At:     (at + dwell).Seconds(),
				Action: "exit",
				Handle: handle,
			})
		}
	}
	slices.SortStableFunc(script.Steps, func(a, b presence.Step) int {
		return cmp.Compare(a.At, b.At)
	})
	return script
}

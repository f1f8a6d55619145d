package presence

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Step is one scripted presence change, at seconds since the script started.
//
//	[[step]]
//	at = 0.5
//	action = "enter"
//	handle = "parcel-1"
//	zone = "scan"        # optional, or "disposal"
type Step struct {
	At     float64           `toml:"at"`
	Action string            `toml:"action"`
	Handle string            `toml:"handle"`
	Zone   string            `toml:"zone,omitempty"`
	Attrs  map[string]string `toml:"attrs,omitempty"`
}

// Offset is the step time as a duration.
func (s Step) Offset() time.Duration {
	return time.Duration(s.At * float64(time.Second))
}

// Event converts the step into a presence event stamped at start+Offset.
func (s Step) Event(start time.Time) (Event, error) {
	evt := Event{Handle: strings.TrimSpace(s.Handle), Attrs: s.Attrs, At: start.Add(s.Offset())}
	switch strings.ToLower(strings.TrimSpace(s.Action)) {
	case "enter":
		evt.Kind = KindEnter
	case "exit", "leave":
		evt.Kind = KindExit
	default:
		return Event{}, fmt.Errorf("step at %gs: unknown action %q", s.At, s.Action)
	}
	switch Zone(strings.ToLower(strings.TrimSpace(s.Zone))) {
	case "", ZoneScan:
		evt.Zone = ZoneScan
	case ZoneDisposal:
		evt.Zone = ZoneDisposal
	default:
		return Event{}, fmt.Errorf("step at %gs: unknown zone %q", s.At, s.Zone)
	}
	return evt, nil
}

// Script is an ordered list of presence changes for offline runs.
type Script struct {
	Steps []Step `toml:"step"`
}

// LoadScript reads and validates a TOML script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript decodes a TOML script, validates every step, and orders steps
// by time. Steps sharing a time keep their file order.
func ParseScript(data []byte) (*Script, error) {
	var script Script
	if err := toml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	for i, step := range script.Steps {
		if step.At < 0 {
			return nil, fmt.Errorf("step %d: at must be >= 0", i+1)
		}
		if strings.TrimSpace(step.Handle) == "" {
			return nil, fmt.Errorf("step %d: handle is required", i+1)
		}
		if _, err := step.Event(time.Time{}); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	slices.SortStableFunc(script.Steps, func(a, b Step) int {
		switch {
		case a.At < b.At:
			return -1
		case a.At > b.At:
			return 1
		default:
			return 0
		}
	})
	return &script, nil
}

// Duration is the offset of the last step.
func (s *Script) Duration() time.Duration {
	if s == nil || len(s.Steps) == 0 {
		return 0
	}
	return s.Steps[len(s.Steps)-1].Offset()
}

// Cursor walks a script in time order.
type Cursor struct {
	steps []Step
	next  int
}

// NewCursor starts at the first step.
func NewCursor(s *Script) *Cursor {
	if s == nil {
		return &Cursor{}
	}
	return &Cursor{steps: s.Steps}
}

// Due returns the steps at or before offset that have not been returned yet.
func (c *Cursor) Due(offset time.Duration) []Step {
	start := c.next
	for c.next < len(c.steps) && c.steps[c.next].Offset() <= offset {
		c.next++
	}
	return c.steps[start:c.next]
}

// Done reports whether every step has been returned.
func (c *Cursor) Done() bool {
	return c.next >= len(c.steps)
}

package scanqueue

import "fmt"

// Phase is the state of the scan slot.
type Phase int

const (
	// PhaseIdle means no request holds the slot.
	PhaseIdle Phase = iota
	// PhaseScanning means the active request is accumulating scan time.
	PhaseScanning
	// PhaseCooling means the active request finished and the slot is
	// recovering before the next scan.
	PhaseCooling
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseScanning:
		return "scanning"
	case PhaseCooling:
		return "cooling"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name produced by MarshalText.
func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePhase converts a phase name back to a Phase.
func ParsePhase(value string) (Phase, error) {
	switch value {
	case "idle":
		return PhaseIdle, nil
	case "scanning":
		return PhaseScanning, nil
	case "cooling":
		return PhaseCooling, nil
	default:
		return PhaseIdle, fmt.Errorf("unknown phase %q", value)
	}
}

package station

import "sort"

// Disposal tracks served items sitting in the disposal zone. The zone is
// highlighted while at least one is inside.
type Disposal struct {
	enabled bool
	inside  map[string]struct{}
}

// DisposalStatus reports the zone state.
type DisposalStatus struct {
	Enabled     bool
	Highlighted bool
	Occupants   []string
}

// NewDisposal returns an empty zone. A disabled zone ignores every arrival.
func NewDisposal(enabled bool) *Disposal {
	return &Disposal{enabled: enabled, inside: make(map[string]struct{})}
}

// Enter records handle if it is served, reporting whether it was newly added.
func (d *Disposal) Enter(handle string, served bool) bool {
	if !d.enabled || !served || handle == "" {
		return false
	}
	if _, ok := d.inside[handle]; ok {
		return false
	}
	d.inside[handle] = struct{}{}
	return true
}

// Exit removes handle if present.
func (d *Disposal) Exit(handle string) {
	delete(d.inside, handle)
}

// Clear empties the zone.
func (d *Disposal) Clear() {
	clear(d.inside)
}

// Highlighted reports whether any served item is inside.
func (d *Disposal) Highlighted() bool {
	return len(d.inside) > 0
}

// Status snapshots the zone.
func (d *Disposal) Status() DisposalStatus {
	status := DisposalStatus{Enabled: d.enabled, Highlighted: d.Highlighted()}
	for handle := range d.inside {
		status.Occupants = append(status.Occupants, handle)
	}
	sort.Strings(status.Occupants)
	return status
}

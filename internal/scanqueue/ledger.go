package scanqueue

// Ledger is the FIFO of requests waiting for the scan slot. It accepts each
// request at most once, refuses served requests, and allows removal from any
// position. A Ledger is not safe for concurrent use on its own; the Engine
// guards it.
type Ledger struct {
	elements []*Request
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Enqueue appends r to the tail. It reports false when r is nil, already
// served, or already waiting.
func (l *Ledger) Enqueue(r *Request) bool {
	if r == nil || r.Served() || l.Contains(r) {
		return false
	}
	l.elements = append(l.elements, r)
	return true
}

// Remove drops r wherever it sits, keeping the order of the others. It
// reports whether r was present.
func (l *Ledger) Remove(r *Request) bool {
	if r == nil {
		return false
	}
	kept := l.elements[:0]
	removed := false
	for _, e := range l.elements {
		if e == r {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	if removed {
		clear(l.elements[len(kept):])
	}
	l.elements = kept
	return removed
}

// PeekHead returns the earliest arrival without removing it.
func (l *Ledger) PeekHead() *Request {
	if len(l.elements) == 0 {
		return nil
	}
	return l.elements[0]
}

// PopHead removes and returns the earliest arrival.
func (l *Ledger) PopHead() *Request {
	if len(l.elements) == 0 {
		return nil
	}
	head := l.elements[0]
	l.elements[0] = nil
	l.elements = l.elements[1:]
	return head
}

// Contains reports whether r is waiting.
func (l *Ledger) Contains(r *Request) bool {
	for _, e := range l.elements {
		if e == r {
			return true
		}
	}
	return false
}

// Len returns the number of waiting requests.
func (l *Ledger) Len() int {
	return len(l.elements)
}

// Snapshot returns the waiting requests in arrival order.
func (l *Ledger) Snapshot() []*Request {
	if len(l.elements) == 0 {
		return nil
	}
	out := make([]*Request, len(l.elements))
	copy(out, l.elements)
	return out
}

// Clear removes every waiting request.
func (l *Ledger) Clear() {
	clear(l.elements)
	l.elements = nil
}

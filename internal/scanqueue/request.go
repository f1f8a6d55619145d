package scanqueue

import (
	"maps"
	"sync/atomic"
)

// Request is one item eligible for the scan slot. Identity is the pointer:
// two requests with the same ID are still different requests.
type Request struct {
	id        string
	attrs     map[string]string
	served    atomic.Bool
	onScanned func(*Request)
}

// RequestOption customizes a Request at construction time.
type RequestOption func(*Request)

// WithOnScanned registers the one-shot notification fired when the request
// finishes scanning, before the station starts cooling down. fn runs under
// the engine lock and must not call back into the Engine.
func WithOnScanned(fn func(*Request)) RequestOption {
	return func(r *Request) {
		r.onScanned = fn
	}
}

// WithAttrs attaches descriptive metadata (variant, color, device info).
func WithAttrs(attrs map[string]string) RequestOption {
	return func(r *Request) {
		if len(attrs) == 0 {
			return
		}
		r.attrs = maps.Clone(attrs)
	}
}

// NewRequest builds a request labelled with id.
func NewRequest(id string, opts ...RequestOption) *Request {
	r := &Request{id: id}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID returns the label the request was created with.
func (r *Request) ID() string {
	if r == nil {
		return ""
	}
	return r.id
}

// Attrs returns a copy of the request metadata.
func (r *Request) Attrs() map[string]string {
	if r == nil || len(r.attrs) == 0 {
		return nil
	}
	return maps.Clone(r.attrs)
}

// Served reports whether the request completed its scan.
func (r *Request) Served() bool {
	if r == nil {
		return false
	}
	return r.served.Load()
}

// markScanned flips the served flag and fires the notification exactly once.
func (r *Request) markScanned() bool {
	if !r.served.CompareAndSwap(false, true) {
		return false
	}
	if r.onScanned != nil {
		r.onScanned(r)
	}
	return true
}

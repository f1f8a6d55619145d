package station

import (
	"slices"

	"scanstation/internal/scanqueue"
)

const defaultDisposalBacklog = 64

// departedServed holds served requests that left the scan zone and may still
// arrive at the disposal zone. Past limit the oldest departure is dropped.
type departedServed struct {
	limit    int
	byHandle map[string]*scanqueue.Request
	order    []string
}

func newDepartedServed(limit int) *departedServed {
	return &departedServed{limit: limit, byHandle: make(map[string]*scanqueue.Request)}
}

func (d *departedServed) put(handle string, req *scanqueue.Request) {
	if d.limit <= 0 {
		return
	}
	d.drop(handle)
	d.byHandle[handle] = req
	d.order = append(d.order, handle)
	for len(d.order) > d.limit {
		delete(d.byHandle, d.order[0])
		d.order = d.order[1:]
	}
}

func (d *departedServed) get(handle string) (*scanqueue.Request, bool) {
	req, ok := d.byHandle[handle]
	return req, ok
}

func (d *departedServed) drop(handle string) bool {
	if _, ok := d.byHandle[handle]; !ok {
		return false
	}
	delete(d.byHandle, handle)
	d.order = slices.DeleteFunc(d.order, func(h string) bool { return h == handle })
	return true
}

func (d *departedServed) clear() {
	clear(d.byHandle)
	d.order = d.order[:0]
}

func (d *departedServed) len() int {
	return len(d.byHandle)
}

func (d *departedServed) handles() []string {
	return slices.Clone(d.order)
}

// Package station runs one scan slot against named items.
//
// A Station wraps the scan queue engine with everything a real deployment
// needs around it: a registry mapping presence handles to requests, a
// disposal zone for served items, the tick loop, engine event logging, and
// lifetime counters. Presence sources and the daemon talk to it in terms of
// handles; only this package deals in *scanqueue.Request values.
package station

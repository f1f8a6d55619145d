// Package daemon coordinates the long-running scanstation process and its
// system integration points.
//
// It wires configuration, the station, the history store and recorder, the
// optional netlink presence source, and the HTTP API into a single lifecycle
// with flock-based locking to prevent multiple instances. Presence and
// control actions (enter, exit, dispose, forget, reset) are exposed as
// methods so the IPC server and the HTTP API share one code path.
//
// Keep orchestration logic here: scan timing lives in scanqueue and registry
// rules in station, while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon

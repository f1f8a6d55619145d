// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates station snapshots and history rows into
// transport-friendly DTOs that the CLI and other consumers can render without
// coupling to internal types.
//
// # Key Types
//
// StationStatus: phase, active request, elapsed/remaining time, queue order,
// served handles, lifetime counters, and disposal zone state.
//
// DaemonStatus: daemon running state, lock and database paths, presence
// source, recorder totals, and process resource usage.
//
// HistoryEntry/HistoryListResponse: finished scan attempts with outcome
// totals.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Durations are exposed as integer
// milliseconds and phases and outcomes as lowercase strings. Timestamps use
// RFC3339 with milliseconds. Empty handle lists encode as [] rather than null.
package api

// Package logging assembles structured slog loggers and formatting helpers used
// across scanstation services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers so station code tags every line with
// the same keys (component, event_type, request_id, phase). The package also
// provides a no-op logger for tests and wiring code that cannot fail, a
// progress sampler that keeps per-tick scan progress from flooding the log,
// and retention cleanup for rotated log files.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the system.
package logging

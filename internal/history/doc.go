// Package history persists the outcome of every scan attempt in SQLite.
//
// The store records one row per finished attempt (served, preempted,
// departed during cooldown, reset, disposed). Queue state itself is never
// persisted: a restarted daemon always begins with an empty ledger. The
// Recorder bridges engine events into rows without ever blocking the engine.
package history

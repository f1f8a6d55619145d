// Package config loads, normalizes, and validates scanstation configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, loads an optional .env file, and applies SCANSTATION_* overrides
// from the environment. The Config type gathers every knob the daemon and CLI
// need so station timing, presence wiring, and storage locations are resolved
// in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and validation errors that name the
// offending TOML key.
package config

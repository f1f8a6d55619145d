// Package logstream feeds `scanstation logs`, reading the daemon log through
// the HTTP API and falling back to the IPC socket when the API is disabled or
// unreachable.
package logstream

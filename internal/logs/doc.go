// Package logs tails the daemon log file for the CLI, the IPC server, and the
// HTTP API.
//
// Tail reads with bounded memory, treats a negative offset as "last N
// lines", and in follow mode polls until new lines arrive or the wait
// expires. An optional substring match narrows output to one request handle
// or event type. Callers supply context deadlines so polling stops when the
// CLI exits.
package logs

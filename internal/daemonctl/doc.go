// Package daemonctl launches, stops, and inspects the background daemon
// process on behalf of the CLI. It talks to the daemon only through the IPC
// socket and its pid file.
package daemonctl

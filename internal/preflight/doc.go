// Package preflight provides readiness checks for the filesystem paths and
// endpoints scanstation depends on.
//
// These checks run in two contexts:
//   - daemonrun calls RunAll before opening the history store and logs every
//     failure. A failed check is reported, not fatal, so a misconfigured
//     presence source never blocks manual triggers.
//   - The CLI "scanstation status" command renders the same results when the
//     daemon is offline.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight

// Package notifications delivers station milestones via ntfy.
//
// Service.Publish formats an Event and its Payload into an ntfy message and
// degrades to a no-op when no topic is configured or the event is switched
// off. Notifier adapts station callbacks (scans served, items disposed) onto
// a Service from a background goroutine so engine observers never block on
// the network.
package notifications

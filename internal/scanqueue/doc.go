// Package scanqueue decides which waiting item occupies the single scan slot
// of a station.
//
// Items arrive and leave through OnEnter/OnExit as the presence layer reports
// them. Waiting items sit in a FIFO Ledger; the Engine pops the head into a
// two-phase session (Scanning, then Cooling) that advances on Tick. A request
// that leaves while it is being scanned is preempted and loses all progress;
// a request that finishes scanning is marked served and is never queued
// again. The cooldown that follows every completed scan always runs to the
// end, even when the finished item has already left.
//
// The Engine is safe for concurrent use. A single mutex serializes ticks and
// presence events, and no operation blocks or returns an error: duplicate
// arrivals, unknown departures and idle ticks are silent no-ops.
package scanqueue

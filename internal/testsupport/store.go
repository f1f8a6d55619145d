package testsupport

import (
	"context"
	"testing"
	"time"

	"scanstation/internal/config"
	"scanstation/internal/history"
)

// MustOpenStore opens the history store for cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedEntry writes one finished attempt ending at endedAt.
func SeedEntry(t testing.TB, store *history.Store, requestID string, outcome history.Outcome, endedAt time.Time, elapsed time.Duration) history.Entry {
	t.Helper()

	entry := history.Entry{
		ScanID:    requestID + "-" + string(outcome),
		RequestID: requestID,
		Outcome:   outcome,
		StartedAt: endedAt.Add(-elapsed),
		EndedAt:   endedAt,
		Elapsed:   elapsed,
	}
	id, err := store.Record(context.Background(), entry)
	if err != nil {
		t.Fatalf("store.Record: %v", err)
	}
	entry.ID = id
	return entry
}

// Eventually polls cond until it holds or timeout elapses.
func Eventually(t testing.TB, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s: %s", timeout, msg)
}

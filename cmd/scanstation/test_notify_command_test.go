package main

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"scanstation/internal/testsupport"
)

func TestTestNotifyDisabled(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.run(t, "test-notify")
	requireContains(t, out, "Not sent: notifications disabled")
}

func TestTestNotifySends(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Title") == "Scanstation - Test" {
			hits.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	env := setupCLITestEnv(t, testsupport.WithNtfyTopic(server.URL))

	out := env.run(t, "test-notify")
	requireContains(t, out, "Sent test notification to "+server.URL)
	if hits.Load() != 1 {
		t.Fatalf("expected one test notification, got %d", hits.Load())
	}
}

package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"scanstation/internal/config"
	"scanstation/internal/logging"
	"scanstation/internal/notifications"
	"scanstation/internal/scanqueue"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if svc.Enabled() {
		t.Fatal("expected noop service without a topic")
	}
	if err := svc.Publish(context.Background(), notifications.EventItemServed, notifications.Payload{"handle": "a"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if n := notifications.NewNotifier(svc, "station", logging.NewNop()); n != nil {
		t.Fatal("expected nil notifier for a disabled service")
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "served",
			event:         notifications.EventItemServed,
			payload:       notifications.Payload{"handle": "parcel-1", "elapsed": "2s"},
			expectTitle:   "Scanstation - Item Scanned",
			expectMessage: "✅ Scanned: parcel-1 in 2s",
			expectTags:    "scanstation,scan,served",
		},
		{
			name:          "disposed",
			event:         notifications.EventItemDisposed,
			payload:       notifications.Payload{"handle": "parcel-1"},
			expectTitle:   "Scanstation - Item Disposed",
			expectMessage: "🗑️ Disposed: parcel-1",
			expectTags:    "scanstation,disposal",
		},
		{
			name:          "daemon started",
			event:         notifications.EventDaemonStarted,
			expectTitle:   "Scanstation - Online",
			expectMessage: "Station dock is accepting items",
			expectTags:    "scanstation,daemon,started",
		},
		{
			name:           "error",
			event:          notifications.EventError,
			payload:        notifications.Payload{"context": "presence", "error": "netlink closed"},
			expectTitle:    "Scanstation - Error",
			expectMessage:  "❌ Error with presence: netlink closed",
			expectTags:     "scanstation,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "Scanstation - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "scanstation,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Station.Name = "dock"
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeoutSeconds = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresSuppressedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Served = false
	cfg.Notifications.Disposed = false

	svc := notifications.NewService(&cfg)
	suppressed := []notifications.Event{
		notifications.EventItemServed,
		notifications.EventItemDisposed,
		notifications.EventItemPreempted,
		notifications.Event("unknown"),
	}
	for _, event := range suppressed {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"handle": "ignored"}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic locked", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
}

type fakeService struct {
	mu     sync.Mutex
	events []notifications.Event
	last   notifications.Payload
}

func (f *fakeService) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	f.last = payload
	return nil
}

func (f *fakeService) Enabled() bool { return true }

func (f *fakeService) snapshot() ([]notifications.Event, notifications.Payload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notifications.Event(nil), f.events...), f.last
}

func TestNotifierForwardsStationEvents(t *testing.T) {
	svc := &fakeService{}
	n := notifications.NewNotifier(svc, "dock", logging.NewNop())
	n.Start()

	req := scanqueue.NewRequest("parcel-1")
	n.OnEvent(scanqueue.Event{Kind: scanqueue.EventScanStarted, Request: req})
	n.OnEvent(scanqueue.Event{Kind: scanqueue.EventServed, Request: req, Elapsed: 2 * time.Second})
	n.Disposed(req)
	n.OnEvent(scanqueue.Event{Kind: scanqueue.EventPreempted, Request: scanqueue.NewRequest("b")})
	n.OnEvent(scanqueue.Event{Kind: scanqueue.EventReset})
	n.Close()

	events, last := svc.snapshot()
	want := []notifications.Event{
		notifications.EventItemServed,
		notifications.EventItemDisposed,
		notifications.EventItemPreempted,
	}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events = %v, want %v", events, want)
		}
	}
	if last["handle"] != "b" || last["station"] != "dock" {
		t.Fatalf("last payload = %v", last)
	}

	n.Notify(notifications.EventTest, nil)
	if n.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1 after close", n.Dropped())
	}
}

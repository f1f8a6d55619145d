package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"scanstation/internal/config"
)

const userAgent = "scanstation/0.1"

// Event identifies a notification kind.
type Event string

const (
	EventItemServed    Event = "item_served"
	EventItemDisposed  Event = "item_disposed"
	EventItemPreempted Event = "item_preempted"
	EventDaemonStarted Event = "daemon_started"
	EventError         Event = "error"
	EventTest          Event = "test"
)

// Payload carries event-specific values such as "handle" or "station".
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
	// Enabled reports whether events can reach a topic at all.
	Enabled() bool
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: cfg.NotifyTimeout()},
		station:  cfg.Station.Name,
		enabled: map[Event]bool{
			EventItemServed:    cfg.Notifications.Served,
			EventItemDisposed:  cfg.Notifications.Disposed,
			EventItemPreempted: cfg.Notifications.Preempted,
			EventDaemonStarted: true,
			EventError:         true,
			EventTest:          true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	station  string
	enabled  map[Event]bool
}

func (n *ntfyService) Enabled() bool { return n != nil }

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	handle := payload.text("handle")
	station := payload.text("station")
	if station == "" {
		station = n.station
	}

	switch event {
	case EventItemServed:
		body := fmt.Sprintf("✅ Scanned: %s", handle)
		if elapsed := payload.text("elapsed"); elapsed != "" {
			body += fmt.Sprintf(" in %s", elapsed)
		}
		return message{
			title: "Scanstation - Item Scanned",
			body:  body,
			tags:  []string{"scanstation", "scan", "served"},
		}, true
	case EventItemDisposed:
		return message{
			title: "Scanstation - Item Disposed",
			body:  fmt.Sprintf("🗑️ Disposed: %s", handle),
			tags:  []string{"scanstation", "disposal"},
		}, true
	case EventItemPreempted:
		return message{
			title: "Scanstation - Scan Interrupted",
			body:  fmt.Sprintf("%s left before its scan finished", handle),
			tags:  []string{"scanstation", "scan", "preempted"},
		}, true
	case EventDaemonStarted:
		return message{
			title: "Scanstation - Online",
			body:  fmt.Sprintf("Station %s is accepting items", station),
			tags:  []string{"scanstation", "daemon", "started"},
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("❌ Error")
		if label := payload.text("context"); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		if text := payload.text("error"); text != "" {
			b.WriteString(text)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "Scanstation - Error",
			body:     b.String(),
			tags:     []string{"scanstation", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Scanstation - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"scanstation", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
func (noopService) Enabled() bool                                 { return false }

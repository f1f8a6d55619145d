package logging

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// Standardized structured logging keys.
const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldImpact    = "impact"
	FieldRequestID = "request_id"
	FieldPhase     = "phase"
	FieldProgress  = "progress"
	FieldQueued    = "queued"
	FieldSource    = "source"
	FieldSessionID = "session_id"
)

type Attr = slog.Attr

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// RequestID tags a record with an item handle. `scanstation logs --request`
// filters on this key.
func RequestID(handle string) Attr { return slog.String(FieldRequestID, handle) }

// Phase records the station phase at the time of the event.
func Phase(phase fmt.Stringer) Attr { return slog.String(FieldPhase, phase.String()) }

// Queued records how many items were waiting.
func Queued(n int) Attr { return slog.Int(FieldQueued, n) }

// Progress records scan progress in [0,1].
func Progress(p float64) Attr { return slog.Float64(FieldProgress, p) }

// EventType names the milestone a record describes.
func EventType(kind string) Attr { return slog.String(FieldEventType, kind) }

func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NewComponentLogger creates a logger with a standardized component attribute.
// If logger is nil, a no-op logger is used as the base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact, filling in generic values for any the caller left out.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefault(attrs, EventType(eventType))
	attrs = withDefault(attrs, String(FieldErrorHint, "check logs for details"))
	attrs = withDefault(attrs, String(FieldImpact, "station continues with reduced functionality"))
	logger.LogAttrs(context.Background(), slog.LevelWarn, msg, attrs...)
}

func withDefault(attrs []Attr, fallback Attr) []Attr {
	if slices.ContainsFunc(attrs, func(a Attr) bool { return a.Key == fallback.Key }) {
		return attrs
	}
	return append(attrs, fallback)
}

// NoopHandler discards all log output.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }

func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler { return NoopHandler{} }

func (NoopHandler) WithGroup(string) slog.Handler { return NoopHandler{} }

package logging

import (
	"context"
	"log/slog"
)

// teeHandler forwards each record to every wrapped handler that accepts its level.
type teeHandler struct {
	handlers []slog.Handler
}

// TeeHandler combines handlers. Nil entries are dropped; a single survivor is
// returned as-is.
func TeeHandler(handlers ...slog.Handler) slog.Handler {
	kept := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			kept = append(kept, h)
		}
	}
	switch len(kept) {
	case 0:
		return NoopHandler{}
	case 1:
		return kept[0]
	default:
		return &teeHandler{handlers: kept}
	}
}

// TeeLogger duplicates output from base into the extra handlers.
func TeeLogger(base *slog.Logger, extra ...slog.Handler) *slog.Logger {
	if base == nil {
		return slog.New(TeeHandler(extra...))
	}
	return slog.New(TeeHandler(append([]slog.Handler{base.Handler()}, extra...)...))
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	last := len(h.handlers) - 1
	for idx, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		rec := record
		if idx < last {
			rec = record.Clone()
		}
		if err := handler.Handle(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithAttrs(attrs) })
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithGroup(name) })
}

func (h *teeHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = fn(handler)
	}
	return &teeHandler{handlers: next}
}

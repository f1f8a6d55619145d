package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders one human readable line per record. request_id is
// always the first field so per-item lines align:
//
//	2026-01-02 15:04:05.000 INFO [station] scan started request_id=abc phase=scanning
type consoleHandler struct {
	out    *lockedWriter
	level  slog.Leveler
	source bool

	group     string
	component string
	requestID *slog.Value
	bound     []field
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) write(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := io.WriteString(l.w, line)
	return err
}

type field struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, level slog.Leveler, source bool) slog.Handler {
	return &consoleHandler{out: &lockedWriter{w: w}, level: level, source: source}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	line := consoleLine{
		component: h.component,
		requestID: h.requestID,
		fields:    make([]field, 0, len(h.bound)+record.NumAttrs()),
	}
	line.fields = append(line.fields, h.bound...)
	record.Attrs(func(attr slog.Attr) bool {
		line.add(h.group, attr)
		return true
	})

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(formatTimestamp(ts))
	b.WriteByte(' ')
	b.WriteString(levelLabel(record.Level))
	if line.component != "" {
		fmt.Fprintf(&b, " [%s]", line.component)
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	b.WriteByte(' ')
	b.WriteString(msg)
	if h.source {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&b, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	if line.requestID != nil {
		writeField(&b, FieldRequestID, *line.requestID)
	}
	for _, f := range line.fields {
		writeField(&b, f.key, f.value)
	}
	b.WriteByte('\n')
	return h.out.write(b.String())
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	line := consoleLine{component: h.component, requestID: h.requestID}
	line.fields = append([]field(nil), h.bound...)
	for _, attr := range attrs {
		line.add(h.group, attr)
	}
	clone := *h
	clone.component = line.component
	clone.requestID = line.requestID
	clone.bound = line.fields
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = joinKey(h.group, name)
	return &clone
}

// consoleLine collects the pieces of a record. component and the first
// request_id are pulled out of the field list; repeats stay as plain fields.
type consoleLine struct {
	component string
	requestID *slog.Value
	fields    []field
}

func (l *consoleLine) add(group string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		inner := group
		if attr.Key != "" {
			inner = joinKey(group, attr.Key)
		}
		for _, member := range value.Group() {
			l.add(inner, member)
		}
		return
	}
	if group == "" {
		switch {
		case attr.Key == FieldComponent && l.component == "":
			l.component = rawText(value)
			return
		case attr.Key == FieldRequestID && l.requestID == nil:
			l.requestID = &value
			return
		}
	}
	if attr.Key == "" {
		return
	}
	l.fields = append(l.fields, field{key: joinKey(group, attr.Key), value: value})
}

func joinKey(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}

func writeField(b *strings.Builder, key string, value slog.Value) {
	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(consoleValue(value))
}

func levelLabel(level slog.Level) string {
	for _, threshold := range []slog.Level{slog.LevelError, slog.LevelWarn, slog.LevelInfo} {
		if level >= threshold {
			return threshold.String()
		}
	}
	return slog.LevelDebug.String()
}

package logging

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"
)

const logTimestampLayout = "2006-01-02 15:04:05.000"

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(logTimestampLayout)
}

// rawText renders v without quoting, for header fields such as the component.
func rawText(v slog.Value) string {
	v = v.Resolve()
	if v.Kind() == slog.KindString {
		return v.String()
	}
	return anyText(v)
}

// consoleValue renders v for a key=value pair. Floats keep three decimals so
// per-tick progress stays readable; durations are rounded to milliseconds.
func consoleValue(v slog.Value) string {
	v = v.Resolve()
	var s string
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		f := v.Float64()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return strconv.FormatFloat(math.Round(f*1000)/1000, 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return strconv.Quote(formatTimestamp(v.Time()))
	case slog.KindString:
		s = v.String()
	default:
		s = anyText(v)
	}
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func anyText(v slog.Value) string {
	switch x := v.Any().(type) {
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	default:
		return v.String()
	}
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}

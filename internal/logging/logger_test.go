package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scanstation/internal/config"
	"scanstation/internal/logging"
)

func TestNewFromConfigConsole(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("station ready")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "scanstation.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "station ready") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{
		Format:  "console",
		Level:   "info",
		Outputs: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "station").Info("scan started",
		logging.String(logging.FieldRequestID, "item-1"),
		logging.String("note", "two words"),
		logging.Duration("elapsed", 1500*time.Millisecond),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, want := range []string{" INFO [station] scan started", "request_id=item-1", `note="two words"`, "elapsed=1.5s"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be rendered as a prefix, got %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information at info level, got %q", line)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{
		Format:  "console",
		Level:   "debug",
		Outputs: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("tick")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestJSONLoggerWritesSessionID(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{
		Format:    "json",
		Level:     "info",
		Outputs:   []string{logPath},
		SessionID: "sess-1",
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("history write dropped", logging.Error(errors.New("buffer full")))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("decode json line %q: %v", content, err)
	}
	if record["level"] != "warn" || record["msg"] != "history write dropped" {
		t.Fatalf("unexpected record %v", record)
	}
	if record[logging.FieldSessionID] != "sess-1" {
		t.Fatalf("expected session id, got %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slogJSON(&buf)
	logging.WarnWithContext(logger, "netlink unavailable", "presence_unavailable",
		logging.String(logging.FieldImpact, "only manual triggers work"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record[logging.FieldEventType] != "presence_unavailable" {
		t.Fatalf("event_type missing: %v", record)
	}
	if record[logging.FieldErrorHint] == nil {
		t.Fatalf("error_hint default missing: %v", record)
	}
	if record[logging.FieldImpact] != "only manual triggers work" {
		t.Fatalf("caller impact overwritten: %v", record)
	}
}

func TestTeeLoggerDuplicatesRecords(t *testing.T) {
	var first, second bytes.Buffer
	logger := logging.TeeLogger(slogJSON(&first), logging.NewJSONHandler(&second, "info"))
	logger.Info("served", logging.String(logging.FieldRequestID, "a"))

	if !strings.Contains(first.String(), `"served"`) || !strings.Contains(second.String(), `"served"`) {
		t.Fatalf("expected both sinks to receive the record: %q / %q", first.String(), second.String())
	}
	if logging.TeeHandler(nil, nil) == nil {
		t.Fatal("TeeHandler should never return nil")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(t.Context(), 12) {
		t.Fatal("nop logger should not be enabled")
	}
	logging.NewComponentLogger(nil, "x").Info("ignored")
}

func TestConsoleLoggerPutsRequestIDFirst(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "order.log")
	logger, err := logging.New(logging.Options{Outputs: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("scan complete",
		logging.Phase(stringer("cooling")),
		logging.Progress(0.33333),
		logging.RequestID("parcel-9"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "scan complete request_id=parcel-9 phase=cooling progress=0.333") {
		t.Fatalf("unexpected field order or formatting: %q", content)
	}
}

type stringer string

func (s stringer) String() string { return string(s) }

func TestConsoleLoggerBoundRequestIDAndGroups(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Outputs: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	item := logger.With(logging.RequestID("tote-4"))
	item.WithGroup("attrs").Info("presence entered", logging.String("color", "red"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(content))
	if !strings.HasSuffix(line, "presence entered request_id=tote-4 attrs.color=red") {
		t.Fatalf("unexpected line %q", line)
	}
}

package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(4)
	steps := []struct {
		key      string
		progress float64
		want     bool
	}{
		{"a", 0, true},
		{"a", 0.1, false},
		{"a", 0.25, true},
		{"a", 0.3, false},
		{"a", 0.2, false},
		{"a", 1, true},
		{"a", 1.5, false},
		{"b", 0.6, true},
		{"b", 0.7, false},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.key, step.progress); got != step.want {
			t.Fatalf("step %d (%s %.2f): got %v want %v", i, step.key, step.progress, got, step.want)
		}
	}

	s.Reset()
	if !s.ShouldLog("b", 0.7) {
		t.Fatal("expected emit after reset")
	}

	var nilSampler *ProgressSampler
	if !nilSampler.ShouldLog("x", 0.5) {
		t.Fatal("nil sampler should always log")
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	old := filepath.Join(dir, "scanstation-old.log")
	fresh := filepath.Join(dir, "scanstation-new.log")
	active := filepath.Join(dir, "scanstation.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, fresh, active, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := now.AddDate(0, 0, -10)
	for _, path := range []string{old, active, other} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	if err := os.Chtimes(fresh, now, now); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	removed := CleanupOldLogs(nil, now, 7, RetentionTarget{Dir: dir, Pattern: "scanstation*.log", Exclude: []string{active}})
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expected stale log to be removed")
	}
	for _, path := range []string{fresh, active, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to survive: %v", path, err)
		}
	}
	if CleanupOldLogs(nil, now, 0, RetentionTarget{Dir: dir}) != 0 {
		t.Fatal("retention 0 must disable pruning")
	}
}

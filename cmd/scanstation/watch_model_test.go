package main

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea/v2"

	"scanstation/internal/api"
)

func TestWatchModelRenderStates(t *testing.T) {
	m := newWatchModel(nil)
	requireContains(t, m.render(), "connecting")

	next, _ := m.Update(statusMsg{err: errors.New("socket gone")})
	requireContains(t, next.(watchModel).render(), "status unavailable: socket gone")

	next, _ = m.Update(statusMsg{status: api.DaemonStatus{Running: false}})
	requireContains(t, next.(watchModel).render(), "daemon paused")
}

func TestWatchModelRendersStation(t *testing.T) {
	m := newWatchModel(nil)
	next, cmd := m.Update(statusMsg{status: api.DaemonStatus{
		Running: true,
		Station: api.StationStatus{
			Name:        "dock",
			Phase:       "scanning",
			Active:      "parcel-1",
			Progress:    0.5,
			RemainingMS: 1000,
			Queued:      []string{"parcel-2"},
			Disposal:    api.DisposalStatus{Enabled: true, Highlighted: true, Occupants: []string{"parcel-0"}},
			Counters:    api.StationCounters{Served: 3, Preempted: 1},
		},
	}})
	if cmd == nil {
		t.Fatal("expected a poll tick after a status update")
	}

	out := next.(watchModel).render()
	requireContains(t, out, "scanstation · dock")
	requireContains(t, out, "Scanning")
	requireContains(t, out, "parcel-1")
	requireContains(t, out, " 50%")
	requireContains(t, out, "parcel-2")
	requireContains(t, out, "parcel-0")
	requireContains(t, out, "served 3 · preempted 1")
}

func TestWatchModelPollFetches(t *testing.T) {
	calls := 0
	m := newWatchModel(func() (api.DaemonStatus, error) {
		calls++
		return api.DaemonStatus{Running: true}, nil
	})

	_, cmd := m.Update(pollMsg{})
	if cmd == nil {
		t.Fatal("expected fetch command")
	}
	msg, ok := cmd().(statusMsg)
	if !ok {
		t.Fatalf("poll produced %T, want statusMsg", cmd())
	}
	if calls != 1 || !msg.status.Running {
		t.Fatalf("calls = %d, status = %+v", calls, msg.status)
	}
}

func TestWatchModelQuitKey(t *testing.T) {
	m := newWatchModel(nil)
	_, cmd := m.Update(tea.KeyPressMsg{Code: 'q', Text: "q"})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestProgressBar(t *testing.T) {
	bar := progressBar(0.25, "scanning", 8)
	if got := strings.Count(bar, "█"); got != 2 {
		t.Fatalf("filled cells = %d, want 2", got)
	}
	if got := strings.Count(bar, "░"); got != 6 {
		t.Fatalf("empty cells = %d, want 6", got)
	}
	if got := strings.Count(progressBar(3, "scanning", 4), "█"); got != 4 {
		t.Fatalf("overflow filled = %d, want 4", got)
	}
	if got := strings.Count(progressBar(-1, "cooling", 4), "░"); got != 4 {
		t.Fatalf("negative empty = %d, want 4", got)
	}
}

package api

import (
	"maps"
	"time"

	"scanstation/internal/history"
	"scanstation/internal/station"
)

// FromStationStatus converts a station snapshot to its API representation.
func FromStationStatus(status station.Status) StationStatus {
	dto := StationStatus{
		Name:           status.Name,
		Phase:          status.Phase.String(),
		Active:         status.Active,
		ActiveDeparted: status.ActiveDeparted,
		ElapsedMS:      status.Elapsed.Milliseconds(),
		RemainingMS:    status.Remaining().Milliseconds(),
		Progress:       status.Progress,
		Queued:         nonNil(status.Queued),
		Served:         nonNil(status.Served),
		Known:          status.Known,
		ScanMS:         status.Config.ScanDuration.Milliseconds(),
		CooldownMS:     status.Config.CooldownDuration.Milliseconds(),
		Counters: StationCounters{
			Enqueued:        status.Counters.Enqueued,
			Started:         status.Counters.Started,
			Served:          status.Counters.Served,
			Preempted:       status.Counters.Preempted,
			DepartedCooling: status.Counters.DepartedCooling,
			Disposed:        status.Counters.Disposed,
			Resets:          status.Counters.Resets,
		},
		Disposal: DisposalStatus{
			Enabled:     status.Disposal.Enabled,
			Highlighted: status.Disposal.Highlighted,
			Occupants:   nonNil(status.Disposal.Occupants),
		},
	}
	if len(status.ActiveAttrs) > 0 {
		dto.ActiveAttrs = maps.Clone(status.ActiveAttrs)
	}
	return dto
}

// FromHistoryEntry converts a history row to its API representation.
func FromHistoryEntry(entry history.Entry) HistoryEntry {
	dto := HistoryEntry{
		ID:        entry.ID,
		ScanID:    entry.ScanID,
		RequestID: entry.RequestID,
		Outcome:   string(entry.Outcome),
		ElapsedMS: entry.Elapsed.Milliseconds(),
		StartedAt: formatTime(entry.StartedAt),
		EndedAt:   formatTime(entry.EndedAt),
	}
	if len(entry.Attrs) > 0 {
		dto.Attrs = maps.Clone(entry.Attrs)
	}
	return dto
}

// FromHistoryEntries converts rows in order.
func FromHistoryEntries(entries []history.Entry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromHistoryEntry(entry))
	}
	return out
}

// FromHistoryStats flattens per-outcome counts into string keys.
func FromHistoryStats(stats history.Stats) map[string]int {
	if len(stats.Counts) == 0 {
		return nil
	}
	out := make(map[string]int, len(stats.Counts))
	for outcome, count := range stats.Counts {
		out[string(outcome)] = count
	}
	return out
}

// ParseTime reverses the timestamp format used in payloads. Empty input
// yields the zero time.
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateTimeFormat, value)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

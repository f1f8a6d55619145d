package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// StationStatus describes the scan slot and queue in a transport-friendly format.
type StationStatus struct {
	Name           string            `json:"name"`
	Phase          string            `json:"phase"`
	Active         string            `json:"active,omitempty"`
	ActiveAttrs    map[string]string `json:"activeAttrs,omitempty"`
	ActiveDeparted bool              `json:"activeDeparted"`
	ElapsedMS      int64             `json:"elapsedMs"`
	RemainingMS    int64             `json:"remainingMs"`
	Progress       float64           `json:"progress"`
	Queued         []string          `json:"queued"`
	Served         []string          `json:"served"`
	Known          int               `json:"known"`
	ScanMS         int64             `json:"scanMs"`
	CooldownMS     int64             `json:"cooldownMs"`
	Counters       StationCounters   `json:"counters"`
	Disposal       DisposalStatus    `json:"disposal"`
}

// StationCounters mirrors lifetime station totals.
type StationCounters struct {
	Enqueued        uint64 `json:"enqueued"`
	Started         uint64 `json:"started"`
	Served          uint64 `json:"served"`
	Preempted       uint64 `json:"preempted"`
	DepartedCooling uint64 `json:"departedCooling"`
	Disposed        uint64 `json:"disposed"`
	Resets          uint64 `json:"resets"`
}

// DisposalStatus reports the disposal zone.
type DisposalStatus struct {
	Enabled     bool     `json:"enabled"`
	Highlighted bool     `json:"highlighted"`
	Occupants   []string `json:"occupants"`
}

// ProcessStats captures daemon resource usage.
type ProcessStats struct {
	RSSBytes   uint64  `json:"rssBytes"`
	CPUPercent float64 `json:"cpuPercent"`
	Threads    int32   `json:"threads"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running         bool          `json:"running"`
	PID             int           `json:"pid"`
	HistoryDBPath   string        `json:"historyDbPath,omitempty"`
	LockFilePath    string        `json:"lockFilePath"`
	PresenceSource  string        `json:"presenceSource"`
	PresenceRunning bool          `json:"presenceRunning"`
	HistoryWritten  int64         `json:"historyWritten"`
	HistoryDropped  int64         `json:"historyDropped"`
	NotifyEnabled   bool          `json:"notifyEnabled"`
	NotifyDropped   int64         `json:"notifyDropped"`
	Process         *ProcessStats `json:"process,omitempty"`
	Station         StationStatus `json:"station"`
}

// HistoryEntry describes one finished scan attempt.
type HistoryEntry struct {
	ID        int64             `json:"id"`
	ScanID    string            `json:"scanId"`
	RequestID string            `json:"requestId"`
	Outcome   string            `json:"outcome"`
	StartedAt string            `json:"startedAt,omitempty"`
	EndedAt   string            `json:"endedAt,omitempty"`
	ElapsedMS int64             `json:"elapsedMs"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// HistoryListResponse wraps history rows and per-outcome totals.
type HistoryListResponse struct {
	Entries []HistoryEntry `json:"entries"`
	Counts  map[string]int `json:"counts,omitempty"`
	Total   int            `json:"total"`
}

// PresenceRequest carries optional attributes for an arrival.
type PresenceRequest struct {
	Attrs map[string]string `json:"attrs,omitempty"`
}

// ActionResponse acknowledges a presence or control action.
type ActionResponse struct {
	Handle  string `json:"handle,omitempty"`
	Action  string `json:"action"`
	Known   bool   `json:"known"`
	Message string `json:"message,omitempty"`
}

// LogTailResponse returns daemon log lines and the offset to resume from.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

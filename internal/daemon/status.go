package daemon

import "scanstation/internal/api"

// API converts the status into its wire representation.
func (s Status) API() api.DaemonStatus {
	payload := api.DaemonStatus{
		Running:         s.Running,
		PID:             s.PID,
		HistoryDBPath:   s.HistoryDBPath,
		LockFilePath:    s.LockFilePath,
		PresenceSource:  s.PresenceSource,
		PresenceRunning: s.PresenceRunning,
		HistoryWritten:  s.HistoryWritten,
		HistoryDropped:  s.HistoryDropped,
		NotifyEnabled:   s.NotifyEnabled,
		NotifyDropped:   s.NotifyDropped,
		Station:         api.FromStationStatus(s.Station),
	}
	if s.Process != nil {
		payload.Process = &api.ProcessStats{
			RSSBytes:   s.Process.RSSBytes,
			CPUPercent: s.Process.CPUPercent,
			Threads:    s.Process.Threads,
		}
	}
	return payload
}

package ipc

import "scanstation/internal/api"

// StartRequest resumes the station after a Stop.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest pauses the station loop and presence source.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse mirrors the HTTP status payload.
type StatusResponse = api.DaemonStatus

// EnterRequest reports an arrival in the scan zone.
type EnterRequest struct {
	Handle string            `json:"handle"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

// ExitRequest reports a departure from the scan zone.
type ExitRequest struct {
	Handle string `json:"handle"`
}

// DisposeRequest reports a disposal zone arrival, or a departure when Leave is set.
type DisposeRequest struct {
	Handle string `json:"handle"`
	Leave  bool   `json:"leave"`
}

// ForgetRequest drops a remembered handle.
type ForgetRequest struct {
	Handle string `json:"handle"`
}

// ResetRequest clears the station.
type ResetRequest struct{}

// ActionResponse acknowledges presence and control calls.
type ActionResponse = api.ActionResponse

// HistoryRequest filters history listing.
type HistoryRequest struct {
	Outcome   string `json:"outcome"`
	RequestID string `json:"request_id"`
	Limit     int    `json:"limit"`
}

// HistoryResponse contains history rows and per-outcome totals.
type HistoryResponse = api.HistoryListResponse

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64  `json:"offset"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"wait_millis"`
	Match      string `json:"match"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse = api.LogTailResponse

// TestNotifyRequest asks the daemon to publish a test notification.
type TestNotifyRequest struct{}

// TestNotifyResponse reports whether the test notification was sent.
type TestNotifyResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

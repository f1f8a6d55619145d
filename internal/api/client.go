package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ErrAPIUnavailable reports that no HTTP API is configured or reachable.
var ErrAPIUnavailable = errors.New("station API unavailable")

// Client reads the daemon's HTTP API.
type Client struct {
	base  *url.URL
	http  *http.Client
	token string
}

// HistoryQuery narrows a history fetch.
type HistoryQuery struct {
	Outcome   string
	RequestID string
	Limit     int
}

// LogQuery selects daemon log lines. A negative Offset asks for the last
// Limit lines.
type LogQuery struct {
	Offset     int64
	Limit      int
	Follow     bool
	WaitMillis int
	Match      string
}

// NewClient builds a client for baseURL. An empty baseURL yields a nil
// client whose calls return ErrAPIUnavailable.
func NewClient(baseURL, token string) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, nil
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base: base,
		// No timeout - follow mode blocks until lines arrive or the caller cancels.
		http:  &http.Client{},
		token: strings.TrimSpace(token),
	}, nil
}

// BaseURL is the API root.
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.base.String()
}

// Status fetches /api/status.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var payload DaemonStatus
	err := c.get(ctx, "/api/status", nil, &payload)
	return payload, err
}

// History fetches /api/history.
func (c *Client) History(ctx context.Context, q HistoryQuery) (HistoryListResponse, error) {
	values := url.Values{}
	if strings.TrimSpace(q.Outcome) != "" {
		values.Set("outcome", q.Outcome)
	}
	if strings.TrimSpace(q.RequestID) != "" {
		values.Set("request", q.RequestID)
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	var payload HistoryListResponse
	err := c.get(ctx, "/api/history", values, &payload)
	return payload, err
}

// Logs fetches /api/logs.
func (c *Client) Logs(ctx context.Context, q LogQuery) (LogTailResponse, error) {
	values := url.Values{}
	values.Set("offset", strconv.FormatInt(q.Offset, 10))
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Follow {
		values.Set("follow", "1")
	}
	if q.WaitMillis > 0 {
		values.Set("wait_ms", strconv.Itoa(q.WaitMillis))
	}
	if strings.TrimSpace(q.Match) != "" {
		values.Set("match", q.Match)
	}
	var payload LogTailResponse
	err := c.get(ctx, "/api/logs", values, &payload)
	return payload, err
}

func (c *Client) get(ctx context.Context, path string, values url.Values, dst any) error {
	if c == nil {
		return ErrAPIUnavailable
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: values.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("api %s returned status %d: %s", path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("api %s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// IsAPIUnavailable reports whether err means the API could not be reached,
// as opposed to the API answering with an error.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}

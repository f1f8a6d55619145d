package logstream

import (
	"context"
	"errors"
	"fmt"

	"scanstation/internal/api"
	"scanstation/internal/ipc"
)

const (
	followLimit = 200
	waitMillis  = 1000
)

// TailClient captures the IPC log tail contract used for fallback streaming.
type TailClient interface {
	LogTail(req ipc.LogTailRequest) (*ipc.LogTailResponse, error)
}

// Options controls stream behavior. Lines <= 0 replays the whole log.
// Match keeps only lines containing it, e.g. "request_id=a".
type Options struct {
	Lines  int
	Follow bool
	Match  string
}

type fetchFunc func(ctx context.Context, offset int64, limit int) ([]string, int64, error)

// Stream emits log lines from the HTTP API when available, falling back to
// IPC tailing. It returns true when at least one line was emitted.
func Stream(
	ctx context.Context,
	apiClient *api.Client,
	legacy TailClient,
	opts Options,
	onLine func(string),
) (bool, error) {
	printed, err := pump(ctx, apiFetch(apiClient, opts), opts, onLine)
	if err == nil {
		return printed, nil
	}
	if !api.IsAPIUnavailable(err) || printed {
		return printed, err
	}
	if legacy == nil {
		return false, api.ErrAPIUnavailable
	}
	return pump(ctx, ipcFetch(legacy, opts), opts, onLine)
}

func apiFetch(client *api.Client, opts Options) fetchFunc {
	return func(ctx context.Context, offset int64, limit int) ([]string, int64, error) {
		resp, err := client.Logs(ctx, api.LogQuery{
			Offset:     offset,
			Limit:      limit,
			Follow:     opts.Follow,
			WaitMillis: waitMillis,
			Match:      opts.Match,
		})
		if err != nil {
			return nil, 0, err
		}
		return resp.Lines, resp.Offset, nil
	}
}

func ipcFetch(client TailClient, opts Options) fetchFunc {
	return func(_ context.Context, offset int64, limit int) ([]string, int64, error) {
		resp, err := client.LogTail(ipc.LogTailRequest{
			Offset:     offset,
			Limit:      limit,
			Follow:     opts.Follow,
			WaitMillis: waitMillis,
			Match:      opts.Match,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("tail logs: %w", err)
		}
		if resp == nil {
			return nil, 0, errors.New("log tail response missing")
		}
		return resp.Lines, resp.Offset, nil
	}
}

func pump(ctx context.Context, fetch fetchFunc, opts Options, onLine func(string)) (bool, error) {
	offset := int64(-1)
	limit := opts.Lines
	if limit <= 0 {
		offset, limit = 0, 0
	}

	printed := false
	for {
		lines, next, err := fetch(ctx, offset, limit)
		if err != nil {
			if ctx.Err() != nil {
				return printed, nil
			}
			return printed, err
		}
		for _, line := range lines {
			if onLine != nil {
				onLine(line)
			}
			printed = true
		}
		if !opts.Follow {
			return printed, nil
		}
		offset, limit = next, followLimit
		select {
		case <-ctx.Done():
			return printed, nil
		default:
		}
	}
}

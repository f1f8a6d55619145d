package daemon

import (
	"context"
	"errors"
	"time"

	"scanstation/internal/logs"
)

const (
	defaultFollowWait = time.Second
	maxFollowWait     = 30 * time.Second
)

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.cfg.LogPath()
}

// TailLog reads daemon log lines. Follow waits are capped so a client cannot
// pin a handler indefinitely; a cancelled wait returns what was read so far.
func (d *Daemon) TailLog(ctx context.Context, opts logs.TailOptions) (logs.TailResult, error) {
	if opts.Follow {
		if opts.Wait <= 0 {
			opts.Wait = defaultFollowWait
		}
		opts.Wait = min(opts.Wait, maxFollowWait)
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, d.LogPath(), opts)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return result, nil
	}
	return result, err
}

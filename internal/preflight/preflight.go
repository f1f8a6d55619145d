package preflight

import (
	"context"

	"scanstation/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// State and log directories (always checked)
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	if cfg.Paths.LogDir != cfg.Paths.StateDir {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	if cfg.Paths.APIBind != "" {
		results = append(results, CheckBindAvailable(ctx, "HTTP API", cfg.Paths.APIBind))
	}

	if cfg.Presence.Source == config.PresenceNetlink {
		results = append(results, CheckNetlink())
	}

	return results
}

// Failed filters results down to the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

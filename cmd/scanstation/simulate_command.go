package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scanstation/internal/presence"
	"scanstation/internal/simulation"
	"scanstation/internal/station"
)

type simulateOptions struct {
	script   string
	spawn    int
	interval time.Duration
	dwell    time.Duration
	step     time.Duration
	seed     int64
	scan     time.Duration
	cooldown time.Duration
	asJSON   bool
}

type simulateEntry struct {
	AtMS   int64  `json:"atMs"`
	Event  string `json:"event"`
	Handle string `json:"handle,omitempty"`
	Phase  string `json:"phase"`
	Queued int    `json:"queued"`
}

type simulateReport struct {
	DurationMS int64           `json:"durationMs"`
	Served     []string        `json:"served"`
	Preempted  uint64          `json:"preempted"`
	Disposed   uint64          `json:"disposed"`
	Timeline   []simulateEntry `json:"timeline"`
}

func newSimulateCommand(ctx *commandContext) *cobra.Command {
	var opts simulateOptions
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a presence script against an offline station",
		Long: "Replay a presence script against an in-process station on a simulated clock.\n\n" +
			"Use --script to load a TOML file of [[step]] entries, or --spawn to invent\n" +
			"arrivals at a fixed interval. No daemon is needed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			script, err := opts.buildScript()
			if err != nil {
				return err
			}

			queueCfg := cfg.ScanQueue()
			if opts.scan > 0 {
				queueCfg.ScanDuration = opts.scan
			}
			if opts.cooldown > 0 {
				queueCfg.CooldownDuration = opts.cooldown
			}

			result, err := simulation.Run(queueCfg, script, simulation.Options{
				Name:     cfg.Station.Name,
				Step:     opts.step,
				Disposal: cfg.Disposal.Enabled,
			})
			if err != nil {
				return err
			}

			report := buildSimulateReport(result)
			if opts.asJSON {
				return writeJSON(cmd, report)
			}
			renderSimulateReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.script, "script", "", "TOML presence script to replay")
	cmd.Flags().IntVar(&opts.spawn, "spawn", 0, "Invent this many arrivals instead of loading a script")
	cmd.Flags().DurationVar(&opts.interval, "interval", time.Second, "Time between spawned arrivals")
	cmd.Flags().DurationVar(&opts.dwell, "dwell", 0, "How long spawned items stay before leaving (0 stays until served)")
	cmd.Flags().DurationVar(&opts.step, "step", 10*time.Millisecond, "Simulated tick size")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "Random seed for spawned item attributes")
	cmd.Flags().DurationVar(&opts.scan, "scan", 0, "Override the configured scan duration")
	cmd.Flags().DurationVar(&opts.cooldown, "cooldown", 0, "Override the configured cooldown duration")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the timeline as JSON")
	cmd.MarkFlagsMutuallyExclusive("script", "spawn")
	return cmd
}

func (o simulateOptions) buildScript() (*presence.Script, error) {
	switch {
	case strings.TrimSpace(o.script) != "":
		return presence.LoadScript(o.script)
	case o.spawn > 0:
		if o.interval < 0 {
			return nil, errors.New("--interval must not be negative")
		}
		spawner := station.NewSpawner(rand.New(rand.NewSource(o.seed)), 0)
		return simulation.SpawnScript(spawner, o.spawn, o.interval, o.dwell), nil
	default:
		return nil, errors.New("provide --script or --spawn")
	}
}

func buildSimulateReport(result simulation.Result) simulateReport {
	report := simulateReport{
		DurationMS: result.Duration.Milliseconds(),
		Served:     result.Final.Served,
		Preempted:  result.Final.Counters.Preempted,
		Disposed:   result.Final.Counters.Disposed,
		Timeline:   make([]simulateEntry, 0, len(result.Timeline)),
	}
	for _, entry := range result.Timeline {
		report.Timeline = append(report.Timeline, simulateEntry{
			AtMS:   entry.At.Milliseconds(),
			Event:  entry.Kind,
			Handle: entry.Handle,
			Phase:  entry.Phase,
			Queued: entry.Queued,
		})
	}
	return report
}

func renderSimulateReport(out io.Writer, report simulateReport) {
	rows := make([][]string, 0, len(report.Timeline))
	for _, entry := range report.Timeline {
		rows = append(rows, []string{
			formatMillis(entry.AtMS),
			displayLabel(entry.Event),
			entry.Handle,
			displayLabel(entry.Phase),
			strconv.Itoa(entry.Queued),
		})
	}
	fmt.Fprint(out, renderTable([]column{
		numericColumn("Time"),
		textColumn("Event"),
		textColumn("Handle"),
		textColumn("Phase"),
		numericColumn("Queued"),
	}, rows))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Simulated %s: %d served, %d preempted, %d disposed\n",
		formatMillis(report.DurationMS), len(report.Served), report.Preempted, report.Disposed)
}

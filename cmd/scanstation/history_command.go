package main

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scanstation/internal/api"
	"scanstation/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var req ipc.HistoryRequest
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded scan outcomes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(req)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(resp.Entries) == 0 {
					fmt.Fprintln(out, "No scan history")
					return nil
				}
				fmt.Fprint(out, renderHistoryTable(resp.Entries))
				fmt.Fprintln(out)
				fmt.Fprintf(out, "Showing %d of %d recorded outcomes", len(resp.Entries), resp.Total)
				if len(resp.Counts) > 0 {
					fmt.Fprintf(out, " (%s)", summarizeCounts(resp.Counts))
				}
				fmt.Fprintln(out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Outcome, "outcome", "", "Only show one outcome (served, preempted, departed_cooling, reset, disposed)")
	cmd.Flags().StringVar(&req.RequestID, "request", "", "Only show one item handle")
	cmd.Flags().IntVarP(&req.Limit, "limit", "n", 20, "Maximum rows to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON")
	return cmd
}

func renderHistoryTable(entries []api.HistoryEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		ended := entry.EndedAt
		if t, err := api.ParseTime(entry.EndedAt); err == nil && !t.IsZero() {
			ended = t.Local().Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []string{
			strconv.FormatInt(entry.ID, 10),
			entry.RequestID,
			displayLabel(entry.Outcome),
			formatMillis(entry.ElapsedMS),
			ended,
			formatAttrs(entry.Attrs),
		})
	}
	return renderTable([]column{
		numericColumn("ID"),
		textColumn("Handle"),
		textColumn("Outcome"),
		numericColumn("Elapsed"),
		textColumn("Ended"),
		textColumn("Attrs"),
	}, rows)
}

func formatAttrs(attrs map[string]string) string {
	parts := make([]string, 0, len(attrs))
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		parts = append(parts, k+"="+attrs[k])
	}
	return strings.Join(parts, " ")
}

func summarizeCounts(counts map[string]int) string {
	rows := countRows(counts)
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, strings.ToLower(row[0])+" "+row[1])
	}
	return strings.Join(parts, ", ")
}

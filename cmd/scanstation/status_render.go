package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"scanstation/internal/api"
	"scanstation/internal/daemonctl"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

var titleCaser = cases.Title(language.Und)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// displayLabel turns identifiers like "departed_cooling" into "Departed Cooling".
func displayLabel(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "_", " "))
	if value == "" {
		return ""
	}
	return titleCaser.String(value)
}

func phaseKind(phase string) statusKind {
	switch phase {
	case "scanning":
		return statusOK
	case "cooling":
		return statusWarn
	default:
		return statusInfo
	}
}

func formatMillis(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	if d < time.Second {
		return d.String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatUint(n, 10) + " B"
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func handleList(handles []string) string {
	if len(handles) == 0 {
		return "-"
	}
	return strings.Join(handles, ", ")
}

func renderStatus(out io.Writer, snapshot daemonctl.StatusSnapshot, colorize bool) {
	status := snapshot.Status

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	switch {
	case !snapshot.Reachable:
		fmt.Fprintln(out, renderStatusLine("Daemon", statusError, "not running", colorize))
	case !status.Running:
		fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, fmt.Sprintf("paused (pid %d)", status.PID), colorize))
	default:
		fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
	}
	if snapshot.Reachable {
		presenceKind := statusInfo
		presenceDetail := status.PresenceSource
		if status.PresenceSource != "manual" {
			presenceKind = statusWarn
			if status.PresenceRunning {
				presenceKind = statusOK
			}
			presenceDetail = fmt.Sprintf("%s (listening: %s)", status.PresenceSource, yesNo(status.PresenceRunning))
		}
		fmt.Fprintln(out, renderStatusLine("Presence", presenceKind, presenceDetail, colorize))
		if status.Process != nil {
			fmt.Fprintln(out, renderStatusLine("Process", statusInfo, fmt.Sprintf("rss %s, cpu %.1f%%, %d threads",
				formatBytes(status.Process.RSSBytes), status.Process.CPUPercent, status.Process.Threads), colorize))
		}
	}
	if snapshot.Reachable {
		switch {
		case !status.NotifyEnabled:
			fmt.Fprintln(out, renderStatusLine("Notifications", statusInfo, "disabled", colorize))
		case status.NotifyDropped > 0:
			fmt.Fprintln(out, renderStatusLine("Notifications", statusWarn,
				fmt.Sprintf("ntfy (%d dropped)", status.NotifyDropped), colorize))
		default:
			fmt.Fprintln(out, renderStatusLine("Notifications", statusOK, "ntfy", colorize))
		}
	}
	if status.HistoryDBPath != "" {
		detail := status.HistoryDBPath
		if status.HistoryDropped > 0 {
			fmt.Fprintln(out, renderStatusLine("History", statusWarn,
				fmt.Sprintf("%s (%d dropped)", detail, status.HistoryDropped), colorize))
		} else {
			fmt.Fprintln(out, renderStatusLine("History", statusOK, detail, colorize))
		}
	} else {
		fmt.Fprintln(out, renderStatusLine("History", statusInfo, "disabled", colorize))
	}

	if !snapshot.Reachable {
		renderOfflineCounts(out, snapshot.OfflineCounts)
		return
	}

	fmt.Fprintln(out)
	renderStation(out, status.Station, colorize)
}

func renderStation(out io.Writer, st api.StationStatus, colorize bool) {
	for _, line := range renderSectionHeader("Station "+st.Name, colorize) {
		fmt.Fprintln(out, line)
	}
	phaseDetail := displayLabel(st.Phase)
	if st.Active != "" {
		phaseDetail = fmt.Sprintf("%s %s (%.0f%%, %s left)", phaseDetail, st.Active, st.Progress*100, formatMillis(st.RemainingMS))
		if st.ActiveDeparted {
			phaseDetail += ", departed"
		}
	}
	fmt.Fprintln(out, renderStatusLine("Phase", phaseKind(st.Phase), phaseDetail, colorize))
	fmt.Fprintln(out, renderStatusLine("Timing", statusInfo,
		fmt.Sprintf("scan %s, cooldown %s", formatMillis(st.ScanMS), formatMillis(st.CooldownMS)), colorize))
	fmt.Fprintln(out, renderStatusLine("Queued", statusInfo, handleList(st.Queued), colorize))
	fmt.Fprintln(out, renderStatusLine("Served", statusInfo, handleList(st.Served), colorize))
	if st.Disposal.Enabled {
		kind := statusInfo
		if st.Disposal.Highlighted {
			kind = statusOK
		}
		fmt.Fprintln(out, renderStatusLine("Disposal", kind, handleList(st.Disposal.Occupants), colorize))
	}

	fmt.Fprintln(out)
	c := st.Counters
	rows := [][]string{
		{"Enqueued", strconv.FormatUint(c.Enqueued, 10)},
		{"Started", strconv.FormatUint(c.Started, 10)},
		{"Served", strconv.FormatUint(c.Served, 10)},
		{"Preempted", strconv.FormatUint(c.Preempted, 10)},
		{"Departed Cooling", strconv.FormatUint(c.DepartedCooling, 10)},
		{"Disposed", strconv.FormatUint(c.Disposed, 10)},
		{"Resets", strconv.FormatUint(c.Resets, 10)},
	}
	fmt.Fprintln(out, renderTable([]column{textColumn("Counter"), numericColumn("Total")}, rows))
}

func renderOfflineCounts(out io.Writer, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable([]column{textColumn("Outcome"), numericColumn("Count")}, countRows(counts)))
}

func countRows(counts map[string]int) [][]string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{displayLabel(k), strconv.Itoa(counts[k])})
	}
	return rows
}

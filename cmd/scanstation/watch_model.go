package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/v2/spinner"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"scanstation/internal/api"
)

const (
	watchPollInterval = 200 * time.Millisecond
	watchBarWidth     = 40
)

var (
	watchTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)
	watchLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(10)
	watchHelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
	watchErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	watchFillStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	watchCoolStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	watchEmptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	watchPhaseStyles = map[string]lipgloss.Style{
		"idle":     lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		"scanning": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		"cooling":  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
)

type statusFetcher func() (api.DaemonStatus, error)

type statusMsg struct {
	status api.DaemonStatus
	err    error
}

type pollMsg time.Time

type watchModel struct {
	fetch   statusFetcher
	spinner spinner.Model
	status  api.DaemonStatus
	err     error
	loaded  bool
	width   int
}

func newWatchModel(fetch statusFetcher) watchModel {
	return watchModel{
		fetch:   fetch,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

func (m watchModel) poll() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		status, err := fetch()
		return statusMsg{status: status, err: err}
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case statusMsg:
		m.status, m.err, m.loaded = msg.status, msg.err, true
		return m, tea.Tick(watchPollInterval, func(t time.Time) tea.Msg { return pollMsg(t) })
	case pollMsg:
		return m, m.poll()
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m watchModel) View() tea.View {
	return tea.NewView(m.render())
}

func (m watchModel) render() string {
	var b strings.Builder
	st := m.status.Station
	title := "scanstation"
	if st.Name != "" {
		title += " · " + st.Name
	}
	b.WriteString(watchTitleStyle.Render(title))
	b.WriteString("\n")

	switch {
	case !m.loaded:
		b.WriteString(m.spinner.View() + " connecting...\n")
	case m.err != nil:
		b.WriteString(watchErrorStyle.Render("status unavailable: "+m.err.Error()) + "\n")
	case !m.status.Running:
		b.WriteString(watchErrorStyle.Render("daemon paused") + "\n")
	default:
		b.WriteString(m.renderStation(st))
	}

	b.WriteString(watchHelpStyle.Render("q quit"))
	return b.String()
}

func (m watchModel) renderStation(st api.StationStatus) string {
	var b strings.Builder
	phaseStyle, ok := watchPhaseStyles[st.Phase]
	if !ok {
		phaseStyle = lipgloss.NewStyle()
	}
	phase := phaseStyle.Render(displayLabel(st.Phase))
	if st.Phase != "idle" {
		phase = m.spinner.View() + " " + phase
	}
	row(&b, "Phase", phase)

	if st.Active != "" {
		active := st.Active
		if st.ActiveDeparted {
			active += " (departed)"
		}
		row(&b, "Active", active)
		row(&b, "Progress", fmt.Sprintf("%s %3.0f%%  %s left",
			progressBar(st.Progress, st.Phase, watchBarWidth), st.Progress*100, formatMillis(st.RemainingMS)))
	}
	row(&b, "Queued", handleList(st.Queued))
	row(&b, "Served", handleList(st.Served))
	if st.Disposal.Enabled {
		disposal := handleList(st.Disposal.Occupants)
		if st.Disposal.Highlighted {
			disposal = watchFillStyle.Render(disposal)
		}
		row(&b, "Disposal", disposal)
	}
	c := st.Counters
	row(&b, "Totals", fmt.Sprintf("served %d · preempted %d · departed %d · disposed %d",
		c.Served, c.Preempted, c.DepartedCooling, c.Disposed))
	return b.String()
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(watchLabelStyle.Render(label))
	b.WriteString(value)
	b.WriteString("\n")
}

// progressBar draws a width-cell bar. Cooling drains instead of filling.
func progressBar(progress float64, phase string, width int) string {
	progress = min(max(progress, 0), 1)
	filled := int(float64(width) * progress)
	style := watchFillStyle
	if phase == "cooling" {
		style = watchCoolStyle
	}
	return style.Render(strings.Repeat("█", filled)) + watchEmptyStyle.Render(strings.Repeat("░", width-filled))
}

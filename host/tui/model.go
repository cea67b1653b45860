// Package tui renders a live status dashboard for an attached bridge.
//
// The dashboard is a bubbletea program that polls the bridge's Status
// command every RefreshInterval and shows the link state, signal
// strength, and rate. Pressing j sends Connect with the configured
// auth mode; r forces a refresh.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/picowifi/picowifi/control"
	"github.com/picowifi/picowifi/wifi"
)

// RefreshInterval is the default status polling period.
const RefreshInterval = time.Second

// historyLen is the number of RSSI samples kept for the sparkline.
const historyLen = 32

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Width(10)

	upStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10")).
		Bold(true)

	downStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingLeft(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")).
			Bold(true).
			PaddingLeft(1)
)

// Source is the subset of host.Client the dashboard drives.
type Source interface {
	Status(ctx context.Context) (control.Status, error)
	Connect(ctx context.Context, auth wifi.AuthMode) error
}

// Options configures a Model.
type Options struct {
	Device   string        // Shown in the title bar
	Auth     wifi.AuthMode // Sent by the join key
	Interval time.Duration // Zero means RefreshInterval
	Timeout  time.Duration // Per-request timeout; zero means Interval
}

type tickMsg time.Time

type statusMsg struct {
	status control.Status
	at     time.Time
}

type connectMsg struct{}

type errMsg struct{ err error }

// Model is the bubbletea model for the dashboard.
type Model struct {
	src     Source
	opts    Options
	status  control.Status
	have    bool
	history []int32
	err     error
	notice  string
	loading bool
	last    time.Time
	width   int
}

// New returns a Model polling src.
func New(src Source, opts Options) Model {
	if opts.Interval <= 0 {
		opts.Interval = RefreshInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = opts.Interval
	}
	return Model{src: src, opts: opts, loading: true}
}

// Init starts the periodic tick and issues the first poll.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.poll())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.Interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) poll() tea.Cmd {
	src, timeout := m.src, m.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		st, err := src.Status(ctx)
		if err != nil {
			return errMsg{err}
		}
		return statusMsg{status: st, at: time.Now()}
	}
}

func (m Model) connect() tea.Cmd {
	src, timeout, auth := m.src, m.opts.Timeout, m.opts.Auth
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := src.Connect(ctx, auth); err != nil {
			return errMsg{err}
		}
		return connectMsg{}
	}
}

// Update processes messages and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			m.loading = true
			m.err = nil
			return m, m.poll()
		case "j":
			m.notice = "connect requested (" + m.opts.Auth.String() + ")"
			return m, m.connect()
		}
		return m, nil

	case tickMsg:
		m.loading = true
		return m, tea.Batch(m.tick(), m.poll())

	case statusMsg:
		m.loading = false
		m.err = nil
		m.have = true
		m.status = msg.status
		m.last = msg.at
		if msg.status.LinkUp {
			m.history = append(m.history, msg.status.RSSI)
			if len(m.history) > historyLen {
				m.history = m.history[len(m.history)-historyLen:]
			}
		}
		return m, nil

	case connectMsg:
		return m, m.poll()

	case errMsg:
		m.loading = false
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

// Status returns the most recent snapshot and whether one has arrived.
func (m Model) Status() (control.Status, bool) {
	return m.status, m.have
}

// Err returns the last polling error, if any.
func (m Model) Err() error {
	return m.err
}

// View renders the dashboard.
func (m Model) View() string {
	var sb strings.Builder

	title := "picowifi"
	if m.opts.Device != "" {
		title += "  " + m.opts.Device
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n\n")

	if !m.have {
		sb.WriteString(dimStyle.Render("waiting for status…"))
		sb.WriteString("\n")
	} else {
		sb.WriteString(m.renderStatus())
	}

	sb.WriteString("\n")
	sb.WriteString(m.renderBar())
	return sb.String()
}

func (m Model) renderStatus() string {
	var sb strings.Builder
	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(label))
		sb.WriteString(value)
		sb.WriteString("\n")
	}

	if m.status.LinkUp {
		row("Link", upStyle.Render("UP"))
	} else {
		row("Link", downStyle.Render("DOWN"))
	}
	row("State", m.status.Link.String())
	if m.status.LinkUp {
		row("RSSI", fmt.Sprintf("%d dBm", m.status.RSSI))
		row("Rate", fmt.Sprintf("%d kbps", m.status.Rate))
		row("Signal", sparkline(m.history))
	} else {
		row("RSSI", dimStyle.Render("n/a"))
		row("Rate", dimStyle.Render("n/a"))
	}
	return sb.String()
}

func (m Model) renderBar() string {
	if m.err != nil {
		return errorStyle.Render("Error: " + m.err.Error())
	}
	var parts []string
	if !m.last.IsZero() {
		parts = append(parts, "last refresh: "+m.last.Format("15:04:05"))
	}
	if m.notice != "" {
		parts = append(parts, m.notice)
	}
	if m.loading {
		parts = append(parts, "refreshing…")
	}
	parts = append(parts, "q: quit  r: refresh  j: join")
	return statusBarStyle.Render(strings.Join(parts, "  |  "))
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// sparkline maps RSSI samples from -100 dBm to -30 dBm onto block runes.
func sparkline(samples []int32) string {
	const lo, hi = -100, -30
	out := make([]rune, len(samples))
	for i, v := range samples {
		switch {
		case v <= lo:
			out[i] = sparkRunes[0]
		case v >= hi:
			out[i] = sparkRunes[len(sparkRunes)-1]
		default:
			idx := int(v-lo) * (len(sparkRunes) - 1) / (hi - lo)
			out[i] = sparkRunes[idx]
		}
	}
	return string(out)
}

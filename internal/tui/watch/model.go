// Package watch implements the live session dashboard: a worker table that
// refreshes from the state projection and a scrollable feed of the event
// log.
package watch

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
	"github.com/Iron-Ham/hivemind/internal/session"
	"github.com/Iron-Ham/hivemind/internal/tui/styles"
)

// maxFeed bounds the number of event lines kept in the feed.
const maxFeed = 500

// StatusSource returns an up-to-date projection of a session.
type StatusSource interface {
	Status(ctx context.Context, id string) (*types.State, error)
}

// EventSource reads a session's event log from a cursor.
type EventSource interface {
	ReadEvents(id string, since session.Cursor) ([]session.Record, session.Cursor, error)
}

type keyMap struct {
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Bottom   key.Binding
}

var keys = keyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll down")),
	PageUp:   key.NewBinding(key.WithKeys("pgup", "b"), key.WithHelp("pgup", "page up")),
	PageDown: key.NewBinding(key.WithKeys("pgdown", "f", " "), key.WithHelp("pgdn", "page down")),
	Bottom:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "follow")),
}

// Messages

type refreshMsg time.Time

type snapshotMsg struct {
	state   *types.State
	records []session.Record
	cursor  session.Cursor
	err     error
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	ctx       context.Context
	sessionID string
	status    StatusSource
	events    EventSource
	refresh   time.Duration

	state  *types.State
	feed   []string
	cursor session.Cursor
	err    error

	spinner  spinner.Model
	viewport viewport.Model
	follow   bool

	width  int
	height int
	ready  bool
}

// NewModel creates a dashboard for session id.
func NewModel(ctx context.Context, id string, status StatusSource, events EventSource, refresh time.Duration) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Primary
	if refresh <= 0 {
		refresh = 500 * time.Millisecond
	}
	return Model{
		ctx:       ctx,
		sessionID: id,
		status:    status,
		events:    events,
		refresh:   refresh,
		spinner:   sp,
		viewport:  viewport.New(80, 10),
		follow:    true,
	}
}

// Run shows the dashboard until the user quits or ctx is done.
func Run(ctx context.Context, id string, status StatusSource, events EventSource, refresh time.Duration) error {
	p := tea.NewProgram(NewModel(ctx, id, status, events, refresh), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init starts the spinner and the first refresh.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

// poll reads a fresh snapshot.
func (m Model) poll() tea.Cmd {
	ctx, id, cursor := m.ctx, m.sessionID, m.cursor
	status, events := m.status, m.events
	return func() tea.Msg {
		state, err := status.Status(ctx, id)
		if err != nil {
			return snapshotMsg{err: err, cursor: cursor}
		}
		records, next, err := events.ReadEvents(id, cursor)
		return snapshotMsg{state: state, records: records, cursor: next, err: err}
	}
}

func (m Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case refreshMsg:
		return m, m.poll()

	case snapshotMsg:
		m.err = msg.err
		if msg.state != nil {
			m.state = msg.state
		}
		m.cursor = msg.cursor
		for _, rec := range msg.records {
			m.feed = append(m.feed, formatRecord(rec))
		}
		if over := len(m.feed) - maxFeed; over > 0 {
			m.feed = m.feed[over:]
		}
		m.viewport.SetContent(strings.Join(m.feed, "\n"))
		if m.follow {
			m.viewport.GotoBottom()
		}
		m.resize()
		return m, m.scheduleRefresh()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		m.viewport.ScrollUp(1)
		m.follow = false
	case key.Matches(msg, keys.Down):
		m.viewport.ScrollDown(1)
		m.follow = m.viewport.AtBottom()
	case key.Matches(msg, keys.PageUp):
		m.viewport.PageUp()
		m.follow = false
	case key.Matches(msg, keys.PageDown):
		m.viewport.PageDown()
		m.follow = m.viewport.AtBottom()
	case key.Matches(msg, keys.Bottom):
		m.viewport.GotoBottom()
		m.follow = true
	}
	return m, nil
}

// resize gives the event feed whatever height the header and table leave.
func (m *Model) resize() {
	if !m.ready {
		return
	}
	used := lipgloss.Height(m.header()) + lipgloss.Height(m.table()) + lipgloss.Height(m.help()) + 2
	m.viewport.Width = max(m.width-4, 20)
	m.viewport.Height = max(m.height-used-2, 3)
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	if t := m.table(); t != "" {
		b.WriteString(t)
		b.WriteString("\n")
	}
	b.WriteString(styles.Panel.Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(m.help())
	return b.String()
}

func (m Model) header() string {
	title := styles.Title.Render("hive") + " " + styles.Muted.Render(m.sessionID)
	if m.state == nil {
		if m.err != nil {
			return styles.Header.Render(title + "\n" + styles.WarningMsg.Render("refresh failed: "+m.err.Error()))
		}
		return styles.Header.Render(title + "  " + m.spinner.View() + " loading")
	}

	line := fmt.Sprintf("%s  %s", title, styles.Phase(m.state.Phase))
	if !m.state.Phase.IsTerminal() {
		line += " " + m.spinner.View()
	}
	counts := m.state.Counts()
	line += styles.Muted.Render(fmt.Sprintf("  %d workers, %d completed, %d failed, %d anomalies",
		len(m.state.Workers), counts[types.StatusCompleted], counts[types.StatusFailed], len(m.state.Anomalies)))

	var b strings.Builder
	b.WriteString(line)
	b.WriteString("\n")
	b.WriteString(styles.Subtitle.Render(m.state.Task))
	switch {
	case m.state.FailureReason != "":
		b.WriteString("\n")
		b.WriteString(styles.ErrorMsg.Render("failed: " + m.state.FailureReason))
	case m.state.Artifact != "":
		b.WriteString("\n")
		b.WriteString(styles.SuccessMsg.Render("synthesis: " + m.state.Artifact))
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(styles.WarningMsg.Render("refresh failed: " + m.err.Error()))
	}
	return styles.Header.Render(b.String())
}

func (m Model) table() string {
	if m.state == nil || len(m.state.Workers) == 0 {
		return ""
	}
	return WorkerTable(m.state, nil)
}

func (m Model) help() string {
	follow := ""
	if !m.follow {
		follow = "  (paused)"
	}
	var parts []string
	for _, b := range []key.Binding{keys.Up, keys.Down, keys.PageUp, keys.Bottom, keys.Quit} {
		parts = append(parts, b.Help().Key+" "+b.Help().Desc)
	}
	return styles.HelpBar.Render(strings.Join(parts, " • ") + follow)
}

func formatRecord(rec session.Record) string {
	e := rec.Event
	ts := styles.Muted.Render(e.Timestamp.Format("15:04:05.000"))
	line := fmt.Sprintf("%s %-10s %s", ts, e.Agent, e.Type)
	if len(e.Details) > 0 {
		line += styles.Muted.Render(" " + formatDetails(e.Details))
	}
	return line
}

func formatDetails(details map[string]any) string {
	parts := make([]string, 0, len(details))
	for _, k := range slices.Sorted(maps.Keys(details)) {
		v := fmt.Sprint(details[k])
		if k == "assignments" {
			v = "..."
		}
		parts = append(parts, k+"="+truncate(v, 60))
	}
	return strings.Join(parts, " ")
}

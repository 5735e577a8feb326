package watch

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/event"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
	"github.com/Iron-Ham/hivemind/internal/session"
)

type fakeStatus struct {
	state *types.State
	err   error
}

func (f *fakeStatus) Status(context.Context, string) (*types.State, error) {
	return f.state, f.err
}

type fakeEvents struct {
	records []session.Record
}

func (f *fakeEvents) ReadEvents(_ string, since session.Cursor) ([]session.Record, session.Cursor, error) {
	var out []session.Record
	next := since
	for _, r := range f.records {
		if r.Next > since {
			out = append(out, r)
			next = r.Next
		}
	}
	return out, next, nil
}

func sampleState() *types.State {
	s := types.NewState("20261019T120000Z-abcd1234")
	s.Task = "review the billing service"
	s.Phase = types.PhaseActive
	s.Workers["architect"] = &types.WorkerRecord{
		ID: "architect", Kind: "architect", Status: types.StatusCompleted, Audit: types.AuditPassed,
		ReadyAt: time.Now(),
	}
	s.Workers["backend"] = &types.WorkerRecord{
		ID: "backend", Kind: "backend", Status: types.StatusRunning, DependsOn: []string{"architect"},
		ReadyAt: time.Now(), Progress: "reading handlers",
	}
	s.Workers["tester"] = &types.WorkerRecord{
		ID: "tester", Kind: "tester", Status: types.StatusAssigned, DependsOn: []string{"backend"},
	}
	return s
}

func sampleRecords() []session.Record {
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	return []session.Record{
		{Event: event.Event{Timestamp: at, Type: event.SessionCreated, Agent: event.QueenAgent, Details: map[string]any{"task": "x"}}, Next: 40},
		{Event: event.Event{Timestamp: at, Type: event.WorkerSpawned, Agent: "backend"}, Next: 90},
	}
}

// step applies msg and discards the resulting command.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModel_Snapshot(t *testing.T) {
	status := &fakeStatus{state: sampleState()}
	events := &fakeEvents{records: sampleRecords()}
	m := NewModel(context.Background(), "20261019T120000Z-abcd1234", status, events, time.Second)
	m = step(t, m, tea.WindowSizeMsg{Width: 140, Height: 40})

	msg := m.poll()()
	snap, ok := msg.(snapshotMsg)
	if !ok {
		t.Fatalf("poll returned %T", msg)
	}
	if snap.cursor != 90 {
		t.Errorf("cursor = %d, want 90", snap.cursor)
	}

	m = step(t, m, snap)
	view := m.View()
	for _, want := range []string{"architect", "backend", "tester", "review the billing service", "worker_spawned", "(blocked)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if len(m.feed) != 2 {
		t.Errorf("feed has %d lines, want 2", len(m.feed))
	}

	// A second snapshot from the same cursor adds nothing.
	m = step(t, m, m.poll()())
	if len(m.feed) != 2 {
		t.Errorf("feed has %d lines after re-poll, want 2", len(m.feed))
	}
}

func TestModel_FeedIsBounded(t *testing.T) {
	m := NewModel(context.Background(), "s", &fakeStatus{state: sampleState()}, &fakeEvents{}, time.Second)
	records := make([]session.Record, maxFeed+25)
	for i := range records {
		records[i] = session.Record{Event: event.Event{Type: event.ProgressUpdate, Agent: "backend"}, Next: session.Cursor(i + 1)}
	}
	m = step(t, m, snapshotMsg{state: sampleState(), records: records, cursor: session.Cursor(len(records))})
	if len(m.feed) != maxFeed {
		t.Errorf("feed = %d lines, want %d", len(m.feed), maxFeed)
	}
}

func TestModel_RefreshError(t *testing.T) {
	status := &fakeStatus{err: errors.ErrSessionNotFound}
	m := NewModel(context.Background(), "missing", status, &fakeEvents{}, time.Second)
	m = step(t, m, m.poll()())
	if !strings.Contains(m.View(), "refresh failed") {
		t.Error("view does not report the refresh error")
	}
}

func TestModel_Quit(t *testing.T) {
	m := NewModel(context.Background(), "s", &fakeStatus{state: sampleState()}, &fakeEvents{}, time.Second)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q produced no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestModel_ScrollPausesFollow(t *testing.T) {
	m := NewModel(context.Background(), "s", &fakeStatus{state: sampleState()}, &fakeEvents{}, time.Second)
	m = step(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.follow {
		t.Error("scrolling up kept following")
	}
	m = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	if !m.follow {
		t.Error("G did not resume following")
	}
}

func TestWorkerTable(t *testing.T) {
	state := sampleState()
	state.Workers["tester"].Status = types.StatusFailed
	state.Workers["tester"].FailureReason = "incomplete output: results/tester.json missing"
	state.Workers["tester"].Escalated = true

	out := WorkerTable(state, []string{"tester", "ghost"})
	if !strings.Contains(out, "escalated: incomplete output") {
		t.Errorf("table missing failure detail:\n%s", out)
	}
	if strings.Contains(out, "architect") || strings.Contains(out, "ghost") {
		t.Errorf("table includes unselected workers:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate(strings.Repeat("x", 20), 10); got != "xxxxxxx..." {
		t.Errorf("truncate = %q", got)
	}
}

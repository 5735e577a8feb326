package lifecycle

import (
	"testing"
	"time"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/event"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
)

func TestStep_HappyPath(t *testing.T) {
	sequence := []struct {
		typ  event.Type
		want types.WorkerStatus
	}{
		{event.WorkerSpawned, types.StatusSpawned},
		{event.SessionValidated, types.StatusValidated},
		{event.WorkerConfigured, types.StatusConfigured},
		{event.AnalysisStarted, types.StatusRunning},
		{event.ProgressUpdate, types.StatusRunning},
		{event.NotesCreated, types.StatusRunning},
		{event.JSONCreated, types.StatusRunning},
		{event.WorkerCompleted, types.StatusCompleted},
	}

	status := types.StatusAssigned
	for _, step := range sequence {
		next, err := Step(status, step.typ)
		if err != nil {
			t.Fatalf("Step(%s, %s) error = %v", status, step.typ, err)
		}
		if next != step.want {
			t.Fatalf("Step(%s, %s) = %s, want %s", status, step.typ, next, step.want)
		}
		status = next
	}
}

func TestStep_Violations(t *testing.T) {
	tests := []struct {
		name    string
		current types.WorkerStatus
		typ     event.Type
	}{
		{"configured before validated", types.StatusSpawned, event.WorkerConfigured},
		{"started before spawned", types.StatusAssigned, event.AnalysisStarted},
		{"progress before running", types.StatusConfigured, event.ProgressUpdate},
		{"notes before running", types.StatusValidated, event.NotesCreated},
		{"completed before running", types.StatusConfigured, event.WorkerCompleted},
		{"spawned twice", types.StatusSpawned, event.WorkerSpawned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Step(tt.current, tt.typ)
			if !errors.Is(err, errors.ErrComplianceViolation) {
				t.Fatalf("error = %v, want ErrComplianceViolation", err)
			}
			if next != types.StatusFailed {
				t.Errorf("next = %s, want failed", next)
			}
		})
	}
}

func TestStep_WorkerFailedFromAnyLiveStatus(t *testing.T) {
	for _, s := range []types.WorkerStatus{
		types.StatusAssigned, types.StatusSpawned, types.StatusValidated,
		types.StatusConfigured, types.StatusRunning,
	} {
		next, err := Step(s, event.WorkerFailed)
		if err != nil || next != types.StatusFailed {
			t.Errorf("Step(%s, worker_failed) = %s, %v", s, next, err)
		}
	}
}

func TestStep_TerminalAndForeignEvents(t *testing.T) {
	if _, err := Step(types.StatusCompleted, event.ProgressUpdate); !errors.Is(err, ErrTerminal) {
		t.Errorf("event after completed error = %v, want ErrTerminal", err)
	}
	if _, err := Step(types.StatusFailed, event.WorkerFailed); !errors.Is(err, ErrTerminal) {
		t.Errorf("event after failed error = %v, want ErrTerminal", err)
	}
	next, err := Step(types.StatusRunning, event.AuditPassed)
	if !errors.Is(err, ErrNotLifecycle) || next != types.StatusRunning {
		t.Errorf("Step(running, audit_passed) = %s, %v", next, err)
	}
}

func TestExpected(t *testing.T) {
	if got := Expected(types.StatusAssigned); got != event.WorkerSpawned {
		t.Errorf("Expected(assigned) = %s", got)
	}
	if got := Expected(types.StatusCompleted); got != "" {
		t.Errorf("Expected(completed) = %q, want empty", got)
	}
}

func TestPendingDependencies(t *testing.T) {
	s := types.NewState("s")
	s.Workers["a"] = &types.WorkerRecord{ID: "a", Status: types.StatusCompleted, Audit: types.AuditPassed}
	s.Workers["b"] = &types.WorkerRecord{ID: "b", Status: types.StatusCompleted, Audit: types.AuditPending}
	w := &types.WorkerRecord{ID: "c", DependsOn: []string{"a", "b", "ghost"}}

	got := PendingDependencies(s, w)
	if len(got) != 2 || got[0] != "b" || got[1] != "ghost" {
		t.Errorf("PendingDependencies = %v, want [b ghost]", got)
	}
}

func TestStartupExpired(t *testing.T) {
	ready := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	grace := 60 * time.Second

	w := &types.WorkerRecord{Status: types.StatusAssigned, ReadyAt: ready}
	if StartupExpired(w, ready.Add(59*time.Second), grace) {
		t.Error("expired inside grace window")
	}
	if !StartupExpired(w, ready.Add(60*time.Second), grace) {
		t.Error("not expired at end of grace window")
	}
	if got := Deadline(w, grace); !got.Equal(ready.Add(grace)) {
		t.Errorf("Deadline = %v", got)
	}

	blocked := &types.WorkerRecord{Status: types.StatusAssigned}
	if StartupExpired(blocked, ready.Add(time.Hour), grace) {
		t.Error("blocked worker timed out")
	}

	spawned := &types.WorkerRecord{Status: types.StatusSpawned, ReadyAt: ready}
	if StartupExpired(spawned, ready.Add(time.Hour), grace) {
		t.Error("spawned worker timed out")
	}
}

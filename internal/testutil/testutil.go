// Package testutil provides fixtures for tests that drive sessions through
// the store: a controllable clock, session creation and scripted workers.
package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/hivemind/internal/event"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
	"github.com/Iron-Ham/hivemind/internal/session"
)

// Epoch is the default start time of a Clock.
var Epoch = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

// Clock is a manually advanced time source. It is safe for concurrent use.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock set to Epoch.
func NewClock() *Clock {
	return &Clock{now: Epoch}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// NewStore creates a store in a temporary directory stamped by clock.
func NewStore(t *testing.T, clock *Clock, opts ...session.Option) *session.Store {
	t.Helper()
	opts = append([]session.Option{session.WithClock(clock.Now), session.WithRetry(8, 0)}, opts...)
	store, err := session.NewStore(t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

// CreateSession creates a session for task and returns its id.
func CreateSession(t *testing.T, store *session.Store, task string) string {
	t.Helper()
	id := session.NewSessionID(store.Now())
	if _, err := store.Create(context.Background(), id, task); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return id
}

// Emit appends an event stamped by the store's clock.
func Emit(t *testing.T, store *session.Store, id string, typ event.Type, agent string, details map[string]any) {
	t.Helper()
	if _, err := store.Append(context.Background(), id, event.Event{Type: typ, Agent: agent, Details: details}); err != nil {
		t.Fatalf("failed to append %s: %v", typ, err)
	}
}

// Assign records tasks_assigned for the given assignments.
func Assign(t *testing.T, store *session.Store, id string, assignments ...types.Assignment) {
	t.Helper()
	Emit(t, store, id, event.TasksAssigned, event.QueenAgent, map[string]any{
		event.KeyAssignments: assignments,
		event.KeyStrategy:    "parallel",
	})
}

// Worker returns an assignment whose id and kind are both kind.
func Worker(kind string, dependsOn ...string) types.Assignment {
	return types.Assignment{WorkerID: kind, Kind: kind, Focus: "inspect " + kind, DependsOn: dependsOn}
}

// Result returns a well-formed structured result for worker.
func Result(worker string, findings ...string) []byte {
	if findings == nil {
		findings = []string{}
	}
	data, _ := json.Marshal(types.WorkerResult{
		Worker:          worker,
		Status:          types.ResultComplete,
		Summary:         worker + " summary",
		Findings:        findings,
		Recommendations: []string{"recommendation from " + worker},
	})
	return data
}

// StartWorker emits the four startup events for worker.
func StartWorker(t *testing.T, store *session.Store, id, worker string) {
	t.Helper()
	for _, typ := range []event.Type{event.WorkerSpawned, event.SessionValidated, event.WorkerConfigured, event.AnalysisStarted} {
		Emit(t, store, id, typ, worker, nil)
	}
}

// CompleteWorker writes both artifacts for worker, announces them and
// emits worker_completed. result may be nil to skip the structured artifact.
func CompleteWorker(t *testing.T, store *session.Store, id, worker string, notes string, result []byte) {
	t.Helper()
	rel, err := store.WriteArtifact(id, worker, session.ArtifactNotes, []byte(notes))
	if err != nil {
		t.Fatalf("failed to write notes: %v", err)
	}
	Emit(t, store, id, event.NotesCreated, worker, map[string]any{event.KeyPath: rel})

	if result != nil {
		rel, err := store.WriteArtifact(id, worker, session.ArtifactResult, result)
		if err != nil {
			t.Fatalf("failed to write result: %v", err)
		}
		Emit(t, store, id, event.JSONCreated, worker, map[string]any{event.KeyPath: rel})
	}
	Emit(t, store, id, event.WorkerCompleted, worker, nil)
}

// RunWorker drives worker through its whole lifecycle with valid artifacts.
func RunWorker(t *testing.T, store *session.Store, id, worker string) {
	t.Helper()
	StartWorker(t, store, id, worker)
	CompleteWorker(t, store, id, worker, "# "+worker+"\n\nNotes.\n", Result(worker, "finding from "+worker))
}

// PassAudit records audit_passed for worker.
func PassAudit(t *testing.T, store *session.Store, id, worker string) {
	t.Helper()
	Emit(t, store, id, event.AuditPassed, event.QueenAgent, map[string]any{event.KeyWorker: worker})
}

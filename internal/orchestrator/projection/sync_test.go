package projection

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/Iron-Ham/hivemind/internal/event"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
	"github.com/Iron-Ham/hivemind/internal/session"
)

func newStoreWithLog(t *testing.T, events []event.Event) (*session.Store, string) {
	t.Helper()
	store, err := session.NewStore(t.TempDir(), fixedClock)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create(context.Background(), "s1", "task X"); err != nil {
		t.Fatal(err)
	}
	for _, e := range events {
		if _, err := store.Append(context.Background(), "s1", e); err != nil {
			t.Fatal(err)
		}
	}
	return store, "s1"
}

// fixedClock stamps sessions at t0 so logged events keep their own times.
var fixedClock = session.WithClock(func() time.Time { return t0 })

func logEvents(t *testing.T, store *session.Store, id string) []event.Event {
	t.Helper()
	records, _, err := store.ReadEvents(id, 0)
	if err != nil {
		t.Fatal(err)
	}
	events := make([]event.Event, len(records))
	for i, rec := range records {
		events[i] = rec.Event
	}
	return events
}

func TestProjector_Sync(t *testing.T) {
	b := newLog().assign(types.Assignment{WorkerID: "analyzer"})
	// newLog already holds a session_created; the store writes its own.
	store, id := newStoreWithLog(t, b.events[1:])
	p := NewProjector(store, nil)
	ctx := context.Background()

	state, applied, err := p.Sync(ctx, id)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if len(applied) != 2 || applied[1].Type != event.TasksAssigned {
		t.Fatalf("applied = %+v", applied)
	}
	if state.Phase != types.PhaseActive || state.Worker("analyzer") == nil {
		t.Fatalf("phase=%s workers=%v", state.Phase, state.WorkerIDs())
	}
	rev := state.Revision

	state, applied, err = p.Sync(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 0 || state.Revision != rev {
		t.Errorf("idle sync applied %d events, revision %d -> %d", len(applied), rev, state.Revision)
	}

	if _, err := store.Append(ctx, id, event.New(event.WorkerSpawned, "analyzer", nil)); err != nil {
		t.Fatal(err)
	}
	state, applied, err = p.Sync(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 1 || state.Worker("analyzer").Status != types.StatusSpawned {
		t.Errorf("applied=%d status=%s", len(applied), state.Worker("analyzer").Status)
	}
	if state.Revision != rev+1 {
		t.Errorf("Revision = %d, want %d", state.Revision, rev+1)
	}
}

func TestProjector_SyncMissingSession(t *testing.T) {
	store, err := session.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewProjector(store, nil).Sync(context.Background(), "nope"); err == nil {
		t.Error("Sync of missing session succeeded")
	}
}

// Any split of the log into incremental syncs must agree with a replay of
// the whole log.
func TestProjector_IncrementalSyncMatchesReplay(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	workers := []string{"a", "b", "c"}
	kinds := append([]event.Type{}, fullRun...)
	kinds = append(kinds, event.WorkerFailed)

	for round := 0; round < 20; round++ {
		b := newLog().assign(
			types.Assignment{WorkerID: "a"},
			types.Assignment{WorkerID: "b", DependsOn: []string{"a"}},
			types.Assignment{WorkerID: "c"},
		)
		for i := 0; i < 30; i++ {
			w := workers[rng.IntN(len(workers))]
			switch rng.IntN(6) {
			case 0:
				b.queen(event.AuditPassed, w)
			case 1:
				b.queen(event.WorkerRespawned, w)
			default:
				b.worker(w, kinds[rng.IntN(len(kinds))])
			}
		}

		store, id := newStoreWithLog(t, b.events[1:])
		p := NewProjector(store, nil)
		ctx := context.Background()

		events := logEvents(t, store, id)
		var synced *types.State
		// Sync after a random number of fresh appends each time.
		fresh, _ := session.NewStore(t.TempDir(), fixedClock)
		if _, err := fresh.Create(ctx, "s2", "task X"); err != nil {
			t.Fatal(err)
		}
		pf := NewProjector(fresh, nil)
		for i := 1; i < len(events); i++ {
			if _, err := fresh.Append(ctx, "s2", events[i]); err != nil {
				t.Fatal(err)
			}
			if rng.IntN(3) == 0 {
				var err error
				if synced, _, err = pf.Sync(ctx, "s2"); err != nil {
					t.Fatal(err)
				}
			}
		}
		synced, _, err := pf.Sync(ctx, "s2")
		if err != nil {
			t.Fatal(err)
		}

		whole, _, err := p.Sync(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		replayed := Replay(id, events)

		if mustJSON(t, synced.Workers) != mustJSON(t, replayed.Workers) {
			t.Fatalf("round %d: incremental sync differs from replay", round)
		}
		if mustJSON(t, whole.Workers) != mustJSON(t, replayed.Workers) || whole.Phase != replayed.Phase {
			t.Fatalf("round %d: single sync differs from replay", round)
		}
	}
}

func TestProjector_Rebuild(t *testing.T) {
	b := newLog().assign(types.Assignment{WorkerID: "a"})
	b.worker("a", event.WorkerSpawned, event.SessionValidated)
	store, id := newStoreWithLog(t, b.events[1:])
	p := NewProjector(store, nil)
	ctx := context.Background()

	synced, _, err := p.Sync(ctx, id)
	if err != nil {
		t.Fatal(err)
	}

	// Corrupt the projection without touching the log.
	if _, err := store.UpdateState(ctx, id, func(s *types.State) error {
		s.Workers["a"].Status = types.StatusFailed
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	rebuilt, err := p.Rebuild(ctx, id)
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if rebuilt.Worker("a").Status != types.StatusValidated {
		t.Errorf("rebuilt status = %s, want validated", rebuilt.Worker("a").Status)
	}
	if rebuilt.Cursor != synced.Cursor {
		t.Errorf("rebuilt cursor = %d, want %d", rebuilt.Cursor, synced.Cursor)
	}
	if rebuilt.Revision <= synced.Revision {
		t.Errorf("revision did not advance: %d <= %d", rebuilt.Revision, synced.Revision)
	}
}

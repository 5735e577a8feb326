package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/event"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func createSession(t *testing.T, store *Store, id string) {
	t.Helper()
	if _, err := store.Create(context.Background(), id, "task X"); err != nil {
		t.Fatalf("Create(%s) failed: %v", id, err)
	}
}

func TestNewSessionID(t *testing.T) {
	now := time.Date(2026, 10, 19, 15, 4, 5, 0, time.UTC)
	id := NewSessionID(now)
	if !strings.HasPrefix(id, "20261019T150405Z-") {
		t.Errorf("NewSessionID() = %q, want time prefix", id)
	}
	if len(id) != len("20261019T150405Z-")+8 {
		t.Errorf("len(NewSessionID()) = %d", len(id))
	}
	if err := ValidateID(id); err != nil {
		t.Errorf("ValidateID(%q) = %v", id, err)
	}

	later := NewSessionID(now.Add(time.Second))
	if later <= id {
		t.Errorf("ids not sortable by time: %q <= %q", later, id)
	}
}

func TestValidateID(t *testing.T) {
	for _, id := range []string{"", ".", "..", "a/b", `a\b`} {
		if ValidateID(id) == nil {
			t.Errorf("ValidateID(%q) = nil, want error", id)
		}
	}
}

func TestStore_Create(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	state, err := store.Create(ctx, "s1", "review the repo")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if state.Task != "review the repo" || state.Phase != "planning" || state.Revision != 1 {
		t.Errorf("unexpected initial state: %+v", state)
	}

	for _, name := range []string{StateFileName, EventsFileName, NotesDir, ResultsDir} {
		if _, err := os.Stat(filepath.Join(store.Dir("s1"), name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	records, _, err := store.ReadEvents("s1", 0)
	if err != nil {
		t.Fatalf("ReadEvents failed: %v", err)
	}
	if len(records) != 1 || records[0].Event.Type != event.SessionCreated || records[0].Event.Agent != event.QueenAgent {
		t.Fatalf("expected one session_created by queen, got %+v", records)
	}

	_, err = store.Create(ctx, "s1", "again")
	if !errors.Is(err, errors.ErrAlreadyExists) {
		t.Errorf("second Create error = %v, want ErrAlreadyExists", err)
	}
}

func TestStore_CreateFailureLeavesIDReusable(t *testing.T) {
	store := newTestStore(t)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Create(canceled, "s1", "task"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Create with canceled context = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(store.Dir("s1")); !os.IsNotExist(err) {
		t.Errorf("session directory left behind: %v", err)
	}
	if store.Exists("s1") {
		t.Error("Exists reports a session that failed to create")
	}

	if _, err := store.Create(context.Background(), "s1", "task"); err != nil {
		t.Fatalf("retrying Create failed: %v", err)
	}
}

func TestStore_MissingSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Append(ctx, "nope", event.New(event.WorkerSpawned, "a", nil)); !errors.Is(err, errors.ErrSessionNotFound) {
		t.Errorf("Append error = %v, want ErrSessionNotFound", err)
	}
	if _, _, err := store.ReadEvents("nope", 0); !errors.Is(err, errors.ErrSessionNotFound) {
		t.Errorf("ReadEvents error = %v, want ErrSessionNotFound", err)
	}
	if _, err := store.LoadState("nope"); !errors.Is(err, errors.ErrSessionNotFound) {
		t.Errorf("LoadState error = %v, want ErrSessionNotFound", err)
	}
	if store.Exists("../escape") {
		t.Error("Exists accepted a path-escaping id")
	}
}

func TestStore_List(t *testing.T) {
	store := newTestStore(t)
	createSession(t, store, "20261019T100000Z-aaaaaaaa")
	createSession(t, store, "20261019T110000Z-bbbbbbbb")
	if err := os.MkdirAll(filepath.Join(GetSessionsDir(store.BaseDir()), "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	infos, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("List returned %d sessions, want 2", len(infos))
	}
	if infos[0].ID != "20261019T110000Z-bbbbbbbb" {
		t.Errorf("List not newest first: %s", infos[0].ID)
	}
	if infos[0].Archived {
		t.Error("planning session reported archived")
	}
}

func TestFileLock_TryLock(t *testing.T) {
	dir := t.TempDir()
	first := NewFileLock(dir, "x.lock")
	if err := first.Lock(); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	second := NewFileLock(dir, "x.lock")
	ok, err := second.TryLock()
	if err != nil {
		t.Fatalf("TryLock error: %v", err)
	}
	if ok {
		t.Fatal("TryLock acquired a held lock")
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	ok, err = second.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock after unlock = %v, %v", ok, err)
	}
	_ = second.Unlock()
}

func TestStore_MonitoredFlag(t *testing.T) {
	store := newTestStore(t)
	createSession(t, store, "s1")

	lock := store.MonitorLock("s1")
	if err := lock.Lock(); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = lock.Unlock() }()

	info, err := store.Info("s1")
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if !info.Monitored {
		t.Error("Monitored = false while monitor lock is held")
	}
}

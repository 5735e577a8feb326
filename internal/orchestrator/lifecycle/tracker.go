package lifecycle

import (
	"fmt"
	"time"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/event"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
)

// ErrTerminal is returned by Step when the worker has already completed or
// failed. Such events have no effect.
var ErrTerminal = errors.New("worker is in a terminal status")

// ErrNotLifecycle is returned by Step for event types that are not worker
// lifecycle events.
var ErrNotLifecycle = errors.New("not a worker lifecycle event")

// transitions maps the current status to the only event type that advances it.
var transitions = map[types.WorkerStatus]struct {
	on   event.Type
	next types.WorkerStatus
}{
	types.StatusAssigned:   {event.WorkerSpawned, types.StatusSpawned},
	types.StatusSpawned:    {event.SessionValidated, types.StatusValidated},
	types.StatusValidated:  {event.WorkerConfigured, types.StatusConfigured},
	types.StatusConfigured: {event.AnalysisStarted, types.StatusRunning},
	types.StatusRunning:    {event.WorkerCompleted, types.StatusCompleted},
}

// runningOnly lists events that are valid only while running and leave the
// status unchanged.
var runningOnly = map[event.Type]bool{
	event.ProgressUpdate: true,
	event.NotesCreated:   true,
	event.JSONCreated:    true,
}

// IsLifecycleEvent reports whether typ is emitted by workers about themselves.
func IsLifecycleEvent(typ event.Type) bool {
	if typ == event.WorkerFailed || runningOnly[typ] {
		return true
	}
	for _, t := range transitions {
		if t.on == typ {
			return true
		}
	}
	return false
}

// Expected returns the event type that advances a worker in status s, or ""
// when s is terminal.
func Expected(s types.WorkerStatus) event.Type {
	return transitions[s].on
}

// Step computes the status that follows current when a worker emits typ.
//
// A violation of the ordering returns StatusFailed together with an error
// wrapping ErrComplianceViolation. worker_failed returns StatusFailed with a
// nil error.
func Step(current types.WorkerStatus, typ event.Type) (types.WorkerStatus, error) {
	if !IsLifecycleEvent(typ) {
		return current, fmt.Errorf("%w: %s", ErrNotLifecycle, typ)
	}
	if current.IsTerminal() {
		return current, fmt.Errorf("%w: %s after %s", ErrTerminal, typ, current)
	}
	if typ == event.WorkerFailed {
		return types.StatusFailed, nil
	}
	if runningOnly[typ] {
		if current == types.StatusRunning {
			return current, nil
		}
		return types.StatusFailed, violation(current, typ)
	}

	t, ok := transitions[current]
	if !ok {
		return current, fmt.Errorf("unknown worker status %q", current)
	}
	if t.on != typ {
		return types.StatusFailed, violation(current, typ)
	}
	return t.next, nil
}

func violation(current types.WorkerStatus, typ event.Type) error {
	if want := Expected(current); want != "" {
		return fmt.Errorf("%w: %s while %s (expected %s)", errors.ErrComplianceViolation, typ, current, want)
	}
	return fmt.Errorf("%w: %s while %s", errors.ErrComplianceViolation, typ, current)
}

// PendingDependencies returns the dependencies of w that have not completed
// with a passed audit, in declaration order. Unknown dependencies count as
// pending.
func PendingDependencies(s *types.State, w *types.WorkerRecord) []string {
	var pending []string
	for _, dep := range w.DependsOn {
		d := s.Workers[dep]
		if d == nil || d.Status != types.StatusCompleted || d.Audit != types.AuditPassed {
			pending = append(pending, dep)
		}
	}
	return pending
}

// StartupExpired reports whether w has been unblocked for at least grace
// without emitting worker_spawned.
func StartupExpired(w *types.WorkerRecord, now time.Time, grace time.Duration) bool {
	if w.Status != types.StatusAssigned || !w.Ready() {
		return false
	}
	return !now.Before(w.ReadyAt.Add(grace))
}

// Deadline returns when w's startup grace window closes, or the zero time if
// no window is running.
func Deadline(w *types.WorkerRecord, grace time.Duration) time.Time {
	if w.Status != types.StatusAssigned || !w.Ready() {
		return time.Time{}
	}
	return w.ReadyAt.Add(grace)
}

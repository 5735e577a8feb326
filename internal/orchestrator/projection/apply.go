package projection

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/event"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/lifecycle"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
)

// Failure reason prefixes recorded on failed workers.
const (
	ReasonStartupTimeout      = "StartupTimeout"
	ReasonComplianceViolation = "ComplianceViolation"
	ReasonIncompleteOutput    = "IncompleteOutput"
	ReasonWorkerFailed        = "WorkerFailed"
)

// Apply returns the state that results from applying e to s. s is not
// modified.
func Apply(s *types.State, e event.Event) *types.State {
	next := s.Clone()
	apply(next, e)
	return next
}

// Replay folds every event over a fresh state for sessionID.
func Replay(sessionID string, events []event.Event) *types.State {
	s := types.NewState(sessionID)
	for _, e := range events {
		apply(s, e)
	}
	return s
}

// apply mutates s in place.
func apply(s *types.State, e event.Event) {
	s.Applied++
	if e.Timestamp.After(s.LastEvent) {
		s.LastEvent = e.Timestamp
	}

	if err := event.Validate(e); err != nil {
		anomaly(s, e, err.Error())
		return
	}

	if e.Agent == event.QueenAgent {
		applyOrchestration(s, e)
		return
	}
	applyWorker(s, e)
}

func anomaly(s *types.State, e event.Event, reason string) {
	s.Anomalies = append(s.Anomalies, types.Anomaly{
		Timestamp: e.Timestamp,
		Type:      e.Type,
		Agent:     e.Agent,
		Reason:    reason,
	})
}

func applyOrchestration(s *types.State, e event.Event) {
	if s.Phase.IsTerminal() {
		anomaly(s, e, fmt.Sprintf("session is %s", s.Phase))
		return
	}

	switch e.Type {
	case event.SessionCreated:
		if s.Task == "" {
			s.Task, _ = e.DetailString(event.KeyTask)
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = e.Timestamp
		}

	case event.TasksAssigned:
		applyAssignments(s, e)

	case event.WorkerTimedOut:
		w := targetWorker(s, e)
		if w == nil {
			return
		}
		if w.Status != types.StatusAssigned || !w.Ready() {
			anomaly(s, e, fmt.Sprintf("worker %s is %s, not awaiting startup", w.ID, w.Status))
			return
		}
		fail(w, types.FailureStartupTimeout, ReasonStartupTimeout, "no worker_spawned within the startup grace window")
		w.Deferred = nil

	case event.AuditPassed:
		w := auditTarget(s, e)
		if w == nil {
			return
		}
		w.Audit = types.AuditPassed
		release(s, e.Timestamp)

	case event.AuditFailed:
		w := auditTarget(s, e)
		if w == nil {
			return
		}
		reason, _ := e.DetailString(event.KeyReason)
		w.Audit = types.AuditFailed
		fail(w, types.FailureIncompleteOutput, ReasonIncompleteOutput, reason)

	case event.WorkerRespawned:
		w := targetWorker(s, e)
		if w == nil {
			return
		}
		if w.Status != types.StatusFailed || w.Escalated {
			anomaly(s, e, fmt.Sprintf("worker %s is %s and cannot be re-spawned", w.ID, w.Status))
			return
		}
		respawn(s, w, e.Timestamp)

	case event.WorkerEscalated:
		w := targetWorker(s, e)
		if w == nil {
			return
		}
		w.Escalated = true

	case event.SynthesisDelegated:
		if s.Phase != types.PhaseActive || !s.AllPassed() {
			anomaly(s, e, fmt.Sprintf("synthesis delegated while %s with unfinished workers", s.Phase))
			return
		}
		s.Phase = types.PhaseSynthesizing

	case event.SessionCompleted:
		if s.Phase != types.PhaseSynthesizing {
			anomaly(s, e, fmt.Sprintf("session completed while %s", s.Phase))
			return
		}
		s.Artifact, _ = e.DetailString(event.KeyArtifact)
		s.Phase = types.PhaseCompleted

	case event.SessionFailed:
		s.FailureReason, _ = e.DetailString(event.KeyReason)
		s.Phase = types.PhaseFailed

	default:
		anomaly(s, e, "unhandled orchestration event")
	}
}

func applyAssignments(s *types.State, e event.Event) {
	if s.Phase != types.PhasePlanning {
		anomaly(s, e, fmt.Sprintf("tasks assigned while %s", s.Phase))
		return
	}

	assignments, err := DecodeAssignments(e.Details[event.KeyAssignments])
	if err != nil {
		anomaly(s, e, err.Error())
		return
	}
	if len(assignments) == 0 {
		anomaly(s, e, "no assignments")
		return
	}
	if _, err := lifecycle.Order(assignments); err != nil {
		anomaly(s, e, err.Error())
		return
	}

	for _, a := range assignments {
		s.Workers[a.WorkerID] = &types.WorkerRecord{
			ID:         a.WorkerID,
			Kind:       a.Kind,
			Focus:      a.Focus,
			DependsOn:  append([]string(nil), a.DependsOn...),
			Status:     types.StatusAssigned,
			AssignedAt: e.Timestamp,
		}
	}
	if strategy, ok := e.DetailString(event.KeyStrategy); ok {
		s.Strategy = strategy
	}
	s.Phase = types.PhaseActive
	release(s, e.Timestamp)

	early := s.Early
	s.Early = nil
	for _, ee := range early {
		applyWorker(s, ee)
	}
}

// DecodeAssignments converts the assignments detail, which is either typed
// or generic JSON depending on whether it came from memory or the log.
func DecodeAssignments(v any) ([]types.Assignment, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("assignments: %w", err)
	}
	var assignments []types.Assignment
	if err := json.Unmarshal(data, &assignments); err != nil {
		return nil, fmt.Errorf("assignments: %w", err)
	}
	return assignments, nil
}

func targetWorker(s *types.State, e event.Event) *types.WorkerRecord {
	id, _ := e.DetailString(event.KeyWorker)
	w := s.Workers[id]
	if w == nil {
		anomaly(s, e, fmt.Sprintf("unknown worker %q", id))
	}
	return w
}

func auditTarget(s *types.State, e event.Event) *types.WorkerRecord {
	w := targetWorker(s, e)
	if w == nil {
		return nil
	}
	if w.Status != types.StatusCompleted || w.Audit != types.AuditPending {
		anomaly(s, e, fmt.Sprintf("worker %s has no pending audit", w.ID))
		return nil
	}
	return w
}

func fail(w *types.WorkerRecord, kind types.FailureKind, prefix, detail string) {
	w.Status = types.StatusFailed
	w.FailureKind = kind
	w.FailureReason = prefix
	if detail != "" {
		w.FailureReason = prefix + ": " + detail
	}
}

func respawn(s *types.State, w *types.WorkerRecord, at time.Time) {
	w.Status = types.StatusAssigned
	w.Audit = types.AuditNone
	w.FailureKind = types.FailureNone
	w.FailureReason = ""
	w.SpawnedAt = time.Time{}
	w.CompletedAt = time.Time{}
	w.Artifacts = types.Artifacts{}
	w.Progress = ""
	w.Deferred = nil
	w.ReadyAt = time.Time{}
	w.Attempts++
	release(s, at)
}

// release marks every blocked worker whose dependencies have all passed as
// ready and applies the events it emitted while blocked.
func release(s *types.State, at time.Time) {
	for _, id := range s.WorkerIDs() {
		w := s.Workers[id]
		if w.Ready() || w.Status.IsTerminal() {
			continue
		}
		if len(lifecycle.PendingDependencies(s, w)) > 0 {
			continue
		}
		w.ReadyAt = at
		deferred := w.Deferred
		w.Deferred = nil
		for _, e := range deferred {
			advance(s, w, e)
		}
	}
}

func applyWorker(s *types.State, e event.Event) {
	if s.Phase.IsTerminal() {
		anomaly(s, e, fmt.Sprintf("session is %s", s.Phase))
		return
	}
	w := s.Workers[e.Agent]
	if w == nil && s.Phase == types.PhasePlanning {
		s.Early = append(s.Early, e)
		return
	}
	if w == nil {
		anomaly(s, e, "agent is not an assigned worker")
		return
	}
	if !w.Ready() && !w.Status.IsTerminal() {
		w.Deferred = append(w.Deferred, e)
		return
	}
	advance(s, w, e)
}

// advance runs e through the lifecycle state machine for w.
func advance(s *types.State, w *types.WorkerRecord, e event.Event) {
	next, err := lifecycle.Step(w.Status, e.Type)
	if err != nil {
		if errors.Is(err, errors.ErrComplianceViolation) {
			fail(w, types.FailureComplianceViolation, ReasonComplianceViolation, violationDetail(e, w.Status))
			return
		}
		anomaly(s, e, err.Error())
		return
	}

	switch e.Type {
	case event.WorkerSpawned:
		w.SpawnedAt = e.Timestamp
	case event.ProgressUpdate:
		w.Progress, _ = e.DetailString(event.KeyMessage)
	case event.NotesCreated:
		w.Artifacts.Notes, _ = e.DetailString(event.KeyPath)
	case event.JSONCreated:
		w.Artifacts.Result, _ = e.DetailString(event.KeyPath)
	case event.WorkerCompleted:
		w.CompletedAt = e.Timestamp
		w.Audit = types.AuditPending
	case event.WorkerFailed:
		reason, _ := e.DetailString(event.KeyReason)
		fail(w, types.FailureWorkerFailed, ReasonWorkerFailed, reason)
		w.CompletedAt = e.Timestamp
		return
	}
	w.Status = next
}

func violationDetail(e event.Event, status types.WorkerStatus) string {
	if want := lifecycle.Expected(status); want != "" {
		return fmt.Sprintf("%s while %s, expected %s", e.Type, status, want)
	}
	return fmt.Sprintf("%s while %s", e.Type, status)
}

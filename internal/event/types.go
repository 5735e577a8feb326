package event

import (
	"fmt"
	"time"
)

// Type names a kind of event. Types never encode the emitting agent or its
// domain: the Agent field alone identifies the source.
type Type string

// QueenAgent is the agent id of the orchestrator.
const QueenAgent = "queen"

// Worker lifecycle events. Only the worker itself may emit these.
const (
	WorkerSpawned    Type = "worker_spawned"
	SessionValidated Type = "session_validated"
	WorkerConfigured Type = "worker_configured"
	AnalysisStarted  Type = "analysis_started"
	ProgressUpdate   Type = "progress_update"
	NotesCreated     Type = "notes_created"
	JSONCreated      Type = "json_created"
	WorkerCompleted  Type = "worker_completed"
	WorkerFailed     Type = "worker_failed"
)

// Orchestration events. Only the queen may emit these.
const (
	SessionCreated     Type = "session_created"
	TasksAssigned      Type = "tasks_assigned"
	WorkerTimedOut     Type = "worker_timed_out"
	AuditPassed        Type = "audit_passed"
	AuditFailed        Type = "audit_failed"
	WorkerRespawned    Type = "worker_respawned"
	WorkerEscalated    Type = "worker_escalated"
	SynthesisDelegated Type = "synthesis_delegated"
	SessionCompleted   Type = "session_completed"
	SessionFailed      Type = "session_failed"
)

// Detail keys used by the built-in schemas.
const (
	KeyTask        = "task"
	KeyAssignments = "assignments"
	KeyStrategy    = "strategy"
	KeyWorker      = "worker"
	KeyReason      = "reason"
	KeyPath        = "path"
	KeyArtifact    = "artifact"
	KeyMessage     = "message"
	KeyAttempt     = "attempt"
)

// Event is an immutable fact in a session's event log. The session is
// identified by the log's location, so it is not repeated in each record.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      Type           `json:"type"`
	Agent     string         `json:"agent"`
	Details   map[string]any `json:"details,omitempty"`
}

// New creates an event stamped with the current time. The store may move the
// timestamp forward to keep the log non-decreasing.
func New(typ Type, agent string, details map[string]any) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		Type:      typ,
		Agent:     agent,
		Details:   details,
	}
}

// DetailString returns a string detail and whether it was present and a string.
func (e Event) DetailString(key string) (string, bool) {
	v, ok := e.Details[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// EventType returns the event's type as a string, matching bus subscriptions.
func (e Event) EventType() string {
	return string(e.Type)
}

// String renders a one-line summary for terminal output.
func (e Event) String() string {
	ts := e.Timestamp.Format(time.RFC3339)
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s %-10s %s", ts, e.Agent, e.Type)
	}
	return fmt.Sprintf("%s %-10s %s %v", ts, e.Agent, e.Type, e.Details)
}

// Package types provides shared type definitions for the coordinator and its
// subpackages: the session state document, worker records, assignments and
// the structured worker result. They live here to avoid circular imports
// between the store, projection, auditor and synthesis packages.
package types

import (
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/Iron-Ham/hivemind/internal/event"
)

// Phase is the session-level lifecycle phase.
type Phase string

const (
	PhasePlanning     Phase = "planning"
	PhaseActive       Phase = "active"
	PhaseSynthesizing Phase = "synthesizing"
	PhaseCompleted    Phase = "completed"
	PhaseFailed       Phase = "failed"
)

// IsTerminal reports whether the session has finished, successfully or not.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// WorkerStatus is a worker's position in the lifecycle state machine.
type WorkerStatus string

const (
	StatusAssigned   WorkerStatus = "assigned"
	StatusSpawned    WorkerStatus = "spawned"
	StatusValidated  WorkerStatus = "validated"
	StatusConfigured WorkerStatus = "configured"
	StatusRunning    WorkerStatus = "running"
	StatusCompleted  WorkerStatus = "completed"
	StatusFailed     WorkerStatus = "failed"
)

// IsTerminal reports whether no further lifecycle transitions are possible.
func (s WorkerStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// AuditStatus is the Completion Auditor's verdict on a worker.
type AuditStatus string

const (
	AuditNone    AuditStatus = ""
	AuditPending AuditStatus = "pending"
	AuditPassed  AuditStatus = "passed"
	AuditFailed  AuditStatus = "failed"
)

// FailureKind classifies why a worker failed. The values double as the
// names accepted by coordination.respawn_reasons.
type FailureKind string

const (
	FailureNone                FailureKind = ""
	FailureStartupTimeout      FailureKind = "startup_timeout"
	FailureComplianceViolation FailureKind = "compliance_violation"
	FailureIncompleteOutput    FailureKind = "incomplete_output"
	FailureWorkerFailed        FailureKind = "worker_failed"
)

// Assignment seeds one WorkerRecord.
type Assignment struct {
	WorkerID  string   `json:"worker" yaml:"worker"`
	Kind      string   `json:"kind" yaml:"kind"`
	Focus     string   `json:"focus" yaml:"focus"`
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}

// Artifacts holds session-relative paths of a worker's two required outputs.
type Artifacts struct {
	Notes  string `json:"notes,omitempty"`
	Result string `json:"result,omitempty"`
}

// WorkerRecord is one worker's entry in the state projection.
type WorkerRecord struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	Focus     string   `json:"focus"`
	DependsOn []string `json:"depends_on,omitempty"`

	Status        WorkerStatus `json:"status"`
	Audit         AuditStatus  `json:"audit,omitempty"`
	FailureKind   FailureKind  `json:"failure_kind,omitempty"`
	FailureReason string       `json:"failure_reason,omitempty"`
	Escalated     bool         `json:"escalated,omitempty"`

	AssignedAt  time.Time `json:"assigned_at"`
	ReadyAt     time.Time `json:"ready_at,omitzero"`
	SpawnedAt   time.Time `json:"spawned_at,omitzero"`
	CompletedAt time.Time `json:"completed_at,omitzero"`

	Artifacts Artifacts `json:"artifacts,omitzero"`
	Progress  string    `json:"progress,omitempty"`

	// Attempts counts re-spawns. The first run is attempt 0.
	Attempts int `json:"attempts"`

	// Deferred holds events the worker emitted while a dependency was still
	// unfinished. They are applied in order once every dependency passes.
	Deferred []event.Event `json:"deferred,omitempty"`
}

// Ready reports whether the worker's dependencies no longer hold it back.
func (w *WorkerRecord) Ready() bool {
	return !w.ReadyAt.IsZero()
}

// Anomaly records an event that had no effect on the projection.
type Anomaly struct {
	Timestamp time.Time  `json:"timestamp"`
	Type      event.Type `json:"type"`
	Agent     string     `json:"agent"`
	Reason    string     `json:"reason"`
}

// State is the session's versioned state document.
type State struct {
	// Revision is the compare-and-swap version. It increases by one on every
	// successful write.
	Revision int64 `json:"revision"`

	SessionID string    `json:"session_id"`
	Task      string    `json:"task"`
	CreatedAt time.Time `json:"created_at"`
	Phase     Phase     `json:"phase"`
	Strategy  string    `json:"strategy,omitempty"`

	Workers map[string]*WorkerRecord `json:"workers"`

	// Cursor is the event log offset through which events have been applied.
	Cursor    int64     `json:"cursor"`
	Applied   int       `json:"applied"`
	LastEvent time.Time `json:"last_event,omitzero"`

	// Early holds worker events logged before tasks_assigned. They are
	// applied once the workers exist.
	Early []event.Event `json:"early,omitempty"`

	Anomalies     []Anomaly `json:"anomalies,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	Artifact      string    `json:"artifact,omitempty"`
}

// NewState returns an empty state for a session in the planning phase.
func NewState(sessionID string) *State {
	return &State{
		SessionID: sessionID,
		Phase:     PhasePlanning,
		Workers:   make(map[string]*WorkerRecord),
	}
}

// WorkerIDs returns the worker ids in lexical order.
func (s *State) WorkerIDs() []string {
	return slices.Sorted(maps.Keys(s.Workers))
}

// Worker returns the record for id, or nil.
func (s *State) Worker(id string) *WorkerRecord {
	return s.Workers[id]
}

// AllPassed reports whether there is at least one worker and every worker is
// completed with a passed audit.
func (s *State) AllPassed() bool {
	if len(s.Workers) == 0 {
		return false
	}
	for _, w := range s.Workers {
		if w.Status != StatusCompleted || w.Audit != AuditPassed {
			return false
		}
	}
	return true
}

// Counts tallies workers by status.
func (s *State) Counts() map[WorkerStatus]int {
	counts := make(map[WorkerStatus]int)
	for _, w := range s.Workers {
		counts[w.Status]++
	}
	return counts
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.Workers = make(map[string]*WorkerRecord, len(s.Workers))
	for id, w := range s.Workers {
		wc := *w
		wc.DependsOn = slices.Clone(w.DependsOn)
		wc.Deferred = slices.Clone(w.Deferred)
		c.Workers[id] = &wc
	}
	c.Early = slices.Clone(s.Early)
	c.Anomalies = slices.Clone(s.Anomalies)
	return &c
}

// SortAssignments orders assignments by worker id.
func SortAssignments(as []Assignment) {
	sort.Slice(as, func(i, j int) bool { return as[i].WorkerID < as[j].WorkerID })
}

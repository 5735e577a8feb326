// Package retry decides how the coordinator remediates a failed worker.
//
// The tracker never retries on its own. When a worker fails, the policy
// either re-spawns it, if the failure kind is eligible and the worker has
// budget left, or escalates it for human intervention. Attempts are counted
// on the worker record, which is derived from the event log, so every
// process that reads the log reaches the same decision.
package retry

import (
	"fmt"
	"slices"

	"github.com/Iron-Ham/hivemind/internal/config"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
)

// Action is what the coordinator should do about a worker.
type Action int

const (
	// ActionNone means the worker needs no remediation.
	ActionNone Action = iota
	// ActionRespawn re-assigns the worker for another attempt.
	ActionRespawn
	// ActionEscalate stops remediation and fails the session.
	ActionEscalate
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionRespawn:
		return "respawn"
	case ActionEscalate:
		return "escalate"
	default:
		return "none"
	}
}

// Decision is the policy's verdict on one worker.
type Decision struct {
	Action Action
	Reason string
}

// Policy is the re-spawn budget and the failure kinds it applies to.
type Policy struct {
	MaxRespawns int
	Reasons     []types.FailureKind
}

// DefaultPolicy allows one re-spawn for every failure kind.
func DefaultPolicy() Policy {
	return FromConfig(config.Default().Coordination)
}

// FromConfig builds a Policy from the coordination settings.
func FromConfig(cfg config.CoordinationConfig) Policy {
	p := Policy{MaxRespawns: cfg.MaxRespawns}
	for _, r := range cfg.RespawnReasons {
		p.Reasons = append(p.Reasons, types.FailureKind(r))
	}
	return p
}

// Eligible reports whether failures of kind may be re-spawned at all.
func (p Policy) Eligible(kind types.FailureKind) bool {
	return slices.Contains(p.Reasons, kind)
}

// Remaining returns how many re-spawns w has left.
func (p Policy) Remaining(w *types.WorkerRecord) int {
	return max(p.MaxRespawns-w.Attempts, 0)
}

// Decide returns the remediation for w. Only failed, unescalated workers
// need one.
func (p Policy) Decide(w *types.WorkerRecord) Decision {
	if w.Status != types.StatusFailed || w.Escalated {
		return Decision{Action: ActionNone}
	}
	if !p.Eligible(w.FailureKind) {
		return Decision{
			Action: ActionEscalate,
			Reason: fmt.Sprintf("%s is not eligible for re-spawn: %s", w.FailureKind, w.FailureReason),
		}
	}
	if p.Remaining(w) == 0 {
		return Decision{
			Action: ActionEscalate,
			Reason: fmt.Sprintf("re-spawn budget exhausted after %d of %d: %s", w.Attempts, p.MaxRespawns, w.FailureReason),
		}
	}
	return Decision{
		Action: ActionRespawn,
		Reason: w.FailureReason,
	}
}

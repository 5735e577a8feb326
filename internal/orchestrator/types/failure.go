package types

import (
	"fmt"

	"github.com/Iron-Ham/hivemind/internal/errors"
)

// Err returns the error a failure of this kind is reported as. A failed
// audit matches both ErrAuditFailed and ErrIncompleteOutput.
func (k FailureKind) Err() error {
	switch k {
	case FailureStartupTimeout:
		return errors.ErrStartupTimeout
	case FailureComplianceViolation:
		return errors.ErrComplianceViolation
	case FailureIncompleteOutput:
		return fmt.Errorf("%w: %w", errors.ErrAuditFailed, errors.ErrIncompleteOutput)
	default:
		return errors.ErrWorkerFailed
	}
}

// FailedWorker returns the worker that failed the session: the first
// escalated worker by id, else the first failed one, else nil.
func (s *State) FailedWorker() *WorkerRecord {
	var failed *WorkerRecord
	for _, id := range s.WorkerIDs() {
		w := s.Workers[id]
		if w.Escalated {
			return w
		}
		if failed == nil && w.Status == StatusFailed {
			failed = w
		}
	}
	return failed
}

// Err returns nil unless the session failed. The error wraps the failing
// worker's failure kind, or ErrCanceled when no worker failed.
func (s *State) Err() error {
	if s.Phase != PhaseFailed {
		return nil
	}
	cause := errors.ErrCanceled
	if w := s.FailedWorker(); w != nil {
		cause = errors.NewWorkerError(w.FailureReason, w.FailureKind.Err()).
			WithWorkerID(w.ID).
			WithStatus(string(w.Status))
	}
	return errors.NewSessionError("session failed: "+s.FailureReason, cause).WithSessionID(s.SessionID)
}

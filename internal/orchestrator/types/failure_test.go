package types

import (
	"testing"

	"github.com/Iron-Ham/hivemind/internal/errors"
)

func failedState(workers ...*WorkerRecord) *State {
	s := NewState("s1")
	s.Phase = PhaseFailed
	s.FailureReason = "escalated"
	for _, w := range workers {
		s.Workers[w.ID] = w
	}
	return s
}

func TestState_Err(t *testing.T) {
	tests := []struct {
		name     string
		kind     FailureKind
		sentinel error
		exit     int
	}{
		{"compliance", FailureComplianceViolation, errors.ErrComplianceViolation, errors.ExitComplianceFault},
		{"audit", FailureIncompleteOutput, errors.ErrAuditFailed, errors.ExitAuditFailed},
		{"startup", FailureStartupTimeout, errors.ErrStartupTimeout, errors.ExitFailure},
		{"reported", FailureWorkerFailed, errors.ErrWorkerFailed, errors.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := failedState(
				&WorkerRecord{ID: "architect", Status: StatusCompleted, Audit: AuditPassed},
				&WorkerRecord{ID: "backend", Status: StatusFailed, FailureKind: tt.kind, Escalated: true},
			)
			err := s.Err()
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("err = %v, want %v", err, tt.sentinel)
			}
			if got := errors.ExitCode(err); got != tt.exit {
				t.Errorf("ExitCode = %d, want %d", got, tt.exit)
			}
		})
	}
}

func TestState_Err_IncompleteOutput(t *testing.T) {
	s := failedState(&WorkerRecord{ID: "tester", Status: StatusFailed, FailureKind: FailureIncompleteOutput})
	if err := s.Err(); !errors.Is(err, errors.ErrIncompleteOutput) {
		t.Errorf("err = %v, want ErrIncompleteOutput", err)
	}
}

func TestState_Err_PrefersEscalatedWorker(t *testing.T) {
	s := failedState(
		&WorkerRecord{ID: "analyzer", Status: StatusFailed, FailureKind: FailureStartupTimeout},
		&WorkerRecord{ID: "backend", Status: StatusFailed, FailureKind: FailureComplianceViolation, Escalated: true},
	)
	if w := s.FailedWorker(); w == nil || w.ID != "backend" {
		t.Fatalf("FailedWorker = %+v, want backend", w)
	}
	if got := errors.ExitCode(s.Err()); got != errors.ExitComplianceFault {
		t.Errorf("ExitCode = %d, want %d", got, errors.ExitComplianceFault)
	}
}

func TestState_Err_Canceled(t *testing.T) {
	s := failedState(&WorkerRecord{ID: "backend", Status: StatusRunning})
	if err := s.Err(); !errors.Is(err, errors.ErrCanceled) {
		t.Errorf("err = %v, want ErrCanceled", err)
	}

	s.Phase = PhaseActive
	if err := s.Err(); err != nil {
		t.Errorf("active session err = %v, want nil", err)
	}
}

package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSessionError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *SessionError
		want string
	}{
		{
			name: "with session and cause",
			err:  NewSessionError("append event", ErrSessionNotFound).WithSessionID("s1"),
			want: "session error [session=s1]: append event: session not found",
		},
		{
			name: "no context",
			err:  NewSessionError("load state", nil),
			want: "session error: load state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWorkerError_Is(t *testing.T) {
	err := NewWorkerError("worker_configured before session_validated", ErrComplianceViolation).
		WithWorkerID("backend").
		WithStatus("spawned")

	if !Is(err, ErrComplianceViolation) {
		t.Error("Is(err, ErrComplianceViolation) = false, want true")
	}
	if Is(err, ErrStartupTimeout) {
		t.Error("Is(err, ErrStartupTimeout) = true, want false")
	}

	want := "worker error [worker=backend, status=spawned]: worker_configured before session_validated: compliance violation"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestAuditError(t *testing.T) {
	err := NewAuditError("analyzer", "json_created", "no json_created event")

	if !Is(err, ErrAuditFailed) {
		t.Error("Is(err, ErrAuditFailed) = false, want true")
	}
	if got := err.Reason(); got != "no json_created event" {
		t.Errorf("Reason() = %q, want %q", got, "no json_created event")
	}
	if got := GetSeverity(err); got != SeverityCritical {
		t.Errorf("GetSeverity() = %v, want %v", got, SeverityCritical)
	}

	var auditErr *AuditError
	wrapped := fmt.Errorf("monitor: %w", err)
	if !As(wrapped, &auditErr) {
		t.Fatal("As(wrapped, *AuditError) = false, want true")
	}
	if auditErr.WorkerID != "analyzer" {
		t.Errorf("WorkerID = %q, want %q", auditErr.WorkerID, "analyzer")
	}
}

func TestPlanError(t *testing.T) {
	err := NewPlanError("cycle between workers", ErrDependencyCycle).WithWorkers("a", "b")
	want := "plan error [workers=a,b]: cycle between workers: dependency cycle detected"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", ErrTimeout, true},
		{"wrapped concurrent modification", fmt.Errorf("update: %w", ErrConcurrentModification), true},
		{"retryable session error", NewSessionError("lock", nil).WithRetryable(true), true},
		{"plain", errors.New("boom"), false},
		{"audit", NewAuditError("w", "", "empty"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"not found", NewSessionError("status", ErrSessionNotFound), ExitSessionNotFound},
		{"precondition", fmt.Errorf("synthesize: %w", ErrPreconditionNotMet), ExitPreconditionNotMet},
		{"compliance", NewWorkerError("x", ErrComplianceViolation), ExitComplianceFault},
		{"audit", NewAuditError("w", "notes", "empty"), ExitAuditFailed},
		{"cycle", NewPlanError("x", ErrDependencyCycle), ExitDependencyCycle},
		{"other", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

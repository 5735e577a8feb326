// Package errors provides the error taxonomy for hive sessions. It defines
// sentinel errors for every failure kind the coordination protocol can
// surface, typed errors that carry session and worker context, and helpers
// that classify errors and map them to process exit codes.
//
// # Error Types
//
// Domain-specific errors carry context about where a failure happened:
//   - SessionError: session store and event log failures
//   - WorkerError: lifecycle violations attributed to one worker
//   - AuditError: a completion audit that rejected a worker's outputs
//   - PlanError: a rejected plan (duplicate ids, unknown deps, cycles)
//
// # Usage
//
//	err := errors.NewSessionError("append event", errors.ErrSessionNotFound).
//		WithSessionID(id)
//
//	if errors.Is(err, errors.ErrSessionNotFound) { ... }
//
//	var auditErr *errors.AuditError
//	if errors.As(err, &auditErr) { ... }
//
//	os.Exit(errors.ExitCode(err))
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require human intervention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Store sentinel errors
var (
	// ErrSessionNotFound indicates that no session exists with the given id.
	ErrSessionNotFound = New("session not found")
	// ErrAlreadyExists indicates that a session id is already taken.
	ErrAlreadyExists = New("already exists")
	// ErrConcurrentModification indicates that the state document kept
	// changing underneath an update until the retry budget ran out.
	ErrConcurrentModification = New("concurrent modification")
	// ErrSessionCorrupted indicates that a state document could not be decoded.
	ErrSessionCorrupted = New("session data corrupted")
)

// Lifecycle sentinel errors
var (
	// ErrComplianceViolation indicates a lifecycle event arrived out of order
	// or a required event was skipped.
	ErrComplianceViolation = New("compliance violation")
	// ErrStartupTimeout indicates a worker did not announce itself within
	// the startup grace window.
	ErrStartupTimeout = New("startup timeout")
	// ErrWorkerFailed indicates the worker reported its own failure.
	ErrWorkerFailed = New("worker failed")
)

// Audit and synthesis sentinel errors
var (
	// ErrAuditFailed indicates a worker's completion claim was rejected.
	ErrAuditFailed = New("audit failed")
	// ErrIncompleteOutput is the failure reason recorded on a worker whose
	// audit failed.
	ErrIncompleteOutput = New("incomplete output")
	// ErrPreconditionNotMet indicates synthesis was requested before every
	// worker completed and passed its audit.
	ErrPreconditionNotMet = New("precondition not met")
)

// Planning sentinel errors
var (
	// ErrDependencyCycle indicates a circular dependency between workers.
	ErrDependencyCycle = New("dependency cycle detected")
	// ErrPlanInvalid indicates a plan that is malformed for a reason other
	// than a cycle.
	ErrPlanInvalid = New("plan is invalid")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// HiveError is the base interface for all typed hive errors.
type HiveError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// format renders "<kind> [k=v, ...]: message: cause".
func (e *baseError) format(kind string, parts []string) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// SessionError represents errors raised by the session store.
//
// Example:
//
//	err := errors.NewSessionError("append event", errors.ErrSessionNotFound)
//	err = err.WithSessionID("20261019T150405Z-1a2b3c4d")
//	fmt.Println(err) // "session error [session=20261019T150405Z-1a2b3c4d]: append event: session not found"
type SessionError struct {
	baseError
	SessionID string
}

// NewSessionError creates a new SessionError.
func NewSessionError(message string, cause error) *SessionError {
	return &SessionError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityError,
		},
	}
}

// WithSessionID adds a session ID to the error context.
func (e *SessionError) WithSessionID(id string) *SessionError {
	e.SessionID = id
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *SessionError) WithRetryable(r bool) *SessionError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	var parts []string
	if e.SessionID != "" {
		parts = append(parts, "session="+e.SessionID)
	}
	return e.format("session error", parts)
}

// WorkerError represents a lifecycle fault attributed to one worker.
//
// Example:
//
//	err := errors.NewWorkerError("worker_configured before session_validated", errors.ErrComplianceViolation).
//		WithWorkerID("backend").WithStatus("spawned")
type WorkerError struct {
	baseError
	WorkerID string
	Status   string
}

// NewWorkerError creates a new WorkerError.
func NewWorkerError(message string, cause error) *WorkerError {
	return &WorkerError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityError,
		},
	}
}

// WithWorkerID adds a worker ID to the error context.
func (e *WorkerError) WithWorkerID(id string) *WorkerError {
	e.WorkerID = id
	return e
}

// WithStatus records the worker status at the time of the fault.
func (e *WorkerError) WithStatus(status string) *WorkerError {
	e.Status = status
	return e
}

// Error returns the formatted error message.
func (e *WorkerError) Error() string {
	var parts []string
	if e.WorkerID != "" {
		parts = append(parts, "worker="+e.WorkerID)
	}
	if e.Status != "" {
		parts = append(parts, "status="+e.Status)
	}
	return e.format("worker error", parts)
}

// AuditError reports why a worker's completion claim was rejected.
// It always matches ErrAuditFailed.
type AuditError struct {
	baseError
	WorkerID string
	Check    string
}

// NewAuditError creates a new AuditError for the failed check.
func NewAuditError(workerID, check, reason string) *AuditError {
	return &AuditError{
		baseError: baseError{
			message:  reason,
			cause:    ErrAuditFailed,
			severity: SeverityCritical,
		},
		WorkerID: workerID,
		Check:    check,
	}
}

// Reason returns the human-readable reason without the error prefix.
func (e *AuditError) Reason() string {
	return e.message
}

// Error returns the formatted error message.
func (e *AuditError) Error() string {
	parts := []string{"worker=" + e.WorkerID}
	if e.Check != "" {
		parts = append(parts, "check="+e.Check)
	}
	return e.format("audit error", parts)
}

// PlanError represents a rejected plan.
type PlanError struct {
	baseError
	WorkerIDs []string
}

// NewPlanError creates a new PlanError.
func NewPlanError(message string, cause error) *PlanError {
	return &PlanError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityError,
		},
	}
}

// WithWorkers records the worker ids involved in the rejection.
func (e *PlanError) WithWorkers(ids ...string) *PlanError {
	e.WorkerIDs = append(e.WorkerIDs, ids...)
	return e
}

// Error returns the formatted error message.
func (e *PlanError) Error() string {
	var parts []string
	if len(e.WorkerIDs) > 0 {
		parts = append(parts, "workers="+strings.Join(e.WorkerIDs, ","))
	}
	return e.format("plan error", parts)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error is transient.
// This checks for:
//   - Errors implementing HiveError with IsRetryable() returning true
//   - Errors wrapping ErrTimeout or ErrConcurrentModification
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var hiveErr HiveError
	if As(err, &hiveErr) && hiveErr.IsRetryable() {
		return true
	}

	return Is(err, ErrTimeout) || Is(err, ErrConcurrentModification)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement HiveError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var hiveErr HiveError
	if As(err, &hiveErr) {
		return hiveErr.Severity()
	}
	return SeverityError
}

// Exit codes reported by the hive command.
const (
	ExitOK                 = 0
	ExitFailure            = 1
	ExitSessionNotFound    = 2
	ExitPreconditionNotMet = 3
	ExitComplianceFault    = 4
	ExitAuditFailed        = 5
	ExitDependencyCycle    = 6
)

// ExitCode maps an error to the process exit code callers can branch on.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case Is(err, ErrSessionNotFound):
		return ExitSessionNotFound
	case Is(err, ErrPreconditionNotMet):
		return ExitPreconditionNotMet
	case Is(err, ErrComplianceViolation):
		return ExitComplianceFault
	case Is(err, ErrAuditFailed):
		return ExitAuditFailed
	case Is(err, ErrDependencyCycle):
		return ExitDependencyCycle
	default:
		return ExitFailure
	}
}

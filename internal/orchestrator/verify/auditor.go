// Package verify provides the Completion Auditor.
//
// A worker claiming completion is never taken at its word. The auditor
// checks the claim against the event log and the artifacts on disk, in
// order:
//
//  1. the worker logged notes_created in its current attempt
//  2. the worker logged json_created in its current attempt
//  3. the narrative artifact it referenced is non-empty
//  4. the structured artifact it referenced is non-empty and parses as a
//     result record
//
// Audits are read-only and idempotent: the auditor never writes to the
// store. Recording the verdict is the coordinator's job.
package verify

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/event"
	"github.com/Iron-Ham/hivemind/internal/logging"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
	"github.com/Iron-Ham/hivemind/internal/session"
)

// Check names, reported on failed audits.
const (
	CheckNotesEvent    = "notes_event"
	CheckResultEvent   = "result_event"
	CheckNotesContent  = "notes_content"
	CheckResultContent = "result_content"
)

// Source is the read-only part of the session store the auditor needs.
type Source interface {
	ReadEvents(id string, since session.Cursor) ([]session.Record, session.Cursor, error)
	ReadArtifact(id, rel string) ([]byte, error)
}

// Report is the outcome of one audit.
type Report struct {
	WorkerID string
	// Attempt is the re-spawn count the audit applies to.
	Attempt    int
	NotesPath  string
	ResultPath string
	// Result is the parsed structured artifact when the audit passed.
	Result *types.WorkerResult
	// Err describes the first failed check, or is nil.
	Err *errors.AuditError
}

// Passed reports whether every check succeeded.
func (r *Report) Passed() bool {
	return r.Err == nil
}

// Reason returns the failure reason, or "" when the audit passed.
func (r *Report) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Reason()
}

// Auditor verifies completion claims.
type Auditor struct {
	src    Source
	logger *logging.Logger
}

// Option is a functional option for configuring Auditor.
type Option func(*Auditor)

// WithLogger sets the logger for the auditor.
func WithLogger(logger *logging.Logger) Option {
	return func(a *Auditor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAuditor creates an Auditor reading from src, which must be non-nil.
func NewAuditor(src Source, opts ...Option) *Auditor {
	if src == nil {
		panic("verify.NewAuditor: src must not be nil")
	}
	a := &Auditor{
		src:    src,
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Audit checks workerID's outputs in session id. A failed check is reported
// through Report.Err; the returned error is reserved for problems reading
// the store.
func (a *Auditor) Audit(ctx context.Context, id, workerID string) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, _, err := a.src.ReadEvents(id, 0)
	if err != nil {
		return nil, err
	}

	report := &Report{WorkerID: workerID}
	for _, rec := range records {
		e := rec.Event
		switch {
		case e.Agent == event.QueenAgent && e.Type == event.WorkerRespawned:
			if target, _ := e.DetailString(event.KeyWorker); target == workerID {
				report.Attempt++
				report.NotesPath, report.ResultPath = "", ""
			}
		case e.Agent == workerID && e.Type == event.NotesCreated:
			report.NotesPath, _ = e.DetailString(event.KeyPath)
		case e.Agent == workerID && e.Type == event.JSONCreated:
			report.ResultPath, _ = e.DetailString(event.KeyPath)
		}
	}

	a.check(id, report)

	log := a.logger.WithSession(id).WithWorker(workerID).WithPhase("audit")
	if report.Passed() {
		log.Info("audit passed", "attempt", report.Attempt)
	} else {
		log.Warn("audit failed", "attempt", report.Attempt, "check", report.Err.Check, "reason", report.Reason())
	}
	return report, nil
}

func (a *Auditor) check(id string, r *Report) {
	fail := func(check, format string, args ...any) {
		r.Err = errors.NewAuditError(r.WorkerID, check, fmt.Sprintf(format, args...))
	}

	if r.NotesPath == "" {
		fail(CheckNotesEvent, "no notes_created event")
		return
	}
	if r.ResultPath == "" {
		fail(CheckResultEvent, "no json_created event")
		return
	}

	notes, err := a.src.ReadArtifact(id, r.NotesPath)
	if err != nil {
		fail(CheckNotesContent, "narrative artifact %s unreadable: %v", r.NotesPath, err)
		return
	}
	if len(bytes.TrimSpace(notes)) == 0 {
		fail(CheckNotesContent, "narrative artifact %s is empty", r.NotesPath)
		return
	}

	data, err := a.src.ReadArtifact(id, r.ResultPath)
	if err != nil {
		fail(CheckResultContent, "structured artifact %s unreadable: %v", r.ResultPath, err)
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		fail(CheckResultContent, "structured artifact %s is empty", r.ResultPath)
		return
	}
	result, err := types.ParseWorkerResult(data)
	if err != nil {
		fail(CheckResultContent, "structured artifact %s: %v", r.ResultPath, err)
		return
	}
	if result.Worker == "" {
		result.Worker = r.WorkerID
	}
	r.Result = result
}

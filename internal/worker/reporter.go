// Package worker is the worker side of the hive protocol.
//
// A [Reporter] is bound to one worker id and can only append events
// attributed to that worker, so no agent can speak for another. A [Runner]
// performs the obligated sequence for one attempt: announce itself, check
// the session, configure, generate content through the text-generation
// collaborator, write both artifacts and report completion.
package worker

import (
	"context"
	"fmt"

	"github.com/Iron-Ham/hivemind/internal/config"
	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/event"
)

// Appender appends events to a session's log.
type Appender interface {
	Append(ctx context.Context, id string, e event.Event) (event.Event, error)
}

// Reporter appends lifecycle events on behalf of exactly one worker.
type Reporter struct {
	log       Appender
	sessionID string
	workerID  string
}

// NewReporter binds a reporter to workerID in session sessionID.
func NewReporter(log Appender, sessionID, workerID string) (*Reporter, error) {
	if !config.IsValidWorkerID(workerID) || workerID == event.QueenAgent {
		return nil, fmt.Errorf("%w: worker id %q", errors.ErrInvalidInput, workerID)
	}
	return &Reporter{log: log, sessionID: sessionID, workerID: workerID}, nil
}

// WorkerID returns the id the reporter speaks for.
func (r *Reporter) WorkerID() string {
	return r.workerID
}

// Emit appends a worker event. Orchestration types are refused; types this
// build does not know are passed through for newer consumers.
func (r *Reporter) Emit(ctx context.Context, typ event.Type, details map[string]any) error {
	if schema, ok := event.Lookup(typ); ok && schema.Class != event.ClassWorker {
		return fmt.Errorf("%w: %s emitted by %q", event.ErrWrongAgent, typ, r.workerID)
	}
	_, err := r.log.Append(ctx, r.sessionID, event.Event{Type: typ, Agent: r.workerID, Details: details})
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", typ, err)
	}
	return nil
}

// Spawned records worker_spawned, the worker's first event.
func (r *Reporter) Spawned(ctx context.Context, attempt int) error {
	return r.Emit(ctx, event.WorkerSpawned, map[string]any{event.KeyAttempt: attempt})
}

// Validated records session_validated.
func (r *Reporter) Validated(ctx context.Context) error {
	return r.Emit(ctx, event.SessionValidated, nil)
}

// Configured records worker_configured.
func (r *Reporter) Configured(ctx context.Context, kind string) error {
	return r.Emit(ctx, event.WorkerConfigured, map[string]any{"kind": kind})
}

// Started records analysis_started.
func (r *Reporter) Started(ctx context.Context) error {
	return r.Emit(ctx, event.AnalysisStarted, nil)
}

// Progress records progress_update.
func (r *Reporter) Progress(ctx context.Context, message string) error {
	return r.Emit(ctx, event.ProgressUpdate, map[string]any{event.KeyMessage: message})
}

// NotesCreated records the narrative artifact's session-relative path.
func (r *Reporter) NotesCreated(ctx context.Context, path string) error {
	return r.Emit(ctx, event.NotesCreated, map[string]any{event.KeyPath: path})
}

// ResultCreated records json_created with the structured artifact's path.
func (r *Reporter) ResultCreated(ctx context.Context, path string) error {
	return r.Emit(ctx, event.JSONCreated, map[string]any{event.KeyPath: path})
}

// Completed records worker_completed.
func (r *Reporter) Completed(ctx context.Context) error {
	return r.Emit(ctx, event.WorkerCompleted, nil)
}

// Failed records worker_failed.
func (r *Reporter) Failed(ctx context.Context, reason string) error {
	if reason == "" {
		reason = "unspecified failure"
	}
	return r.Emit(ctx, event.WorkerFailed, map[string]any{event.KeyReason: reason})
}

// Package synthesis provides the Synthesis Delegate, the terminal consumer
// that merges every worker's structured result into one final artifact.
//
// Synthesis is all-or-nothing. It runs only when every worker is completed
// and audit-passed, reads each worker's results/<worker>.json verbatim, and
// writes synthesis.json and synthesis.md before announcing
// session_completed. Worker content is never regenerated or edited.
package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Iron-Ham/hivemind/internal/backlog"
	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/event"
	"github.com/Iron-Ham/hivemind/internal/logging"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
	"github.com/Iron-Ham/hivemind/internal/session"
)

// Output file names, relative to the session directory.
const (
	JSONFile     = "synthesis.json"
	MarkdownFile = "synthesis.md"
)

// Store is the part of the session store synthesis reads and writes.
type Store interface {
	ReadArtifact(id, rel string) ([]byte, error)
	WriteOutput(id, name string, data []byte) (string, error)
	Append(ctx context.Context, id string, e event.Event) (event.Event, error)
	SynthesisLock(id string) *session.FileLock
}

// Syncer brings the state projection up to date with the event log.
type Syncer interface {
	Sync(ctx context.Context, id string) (*types.State, []event.Event, error)
}

// Backlog receives follow-up items found in worker results.
type Backlog interface {
	AddAll(ctx context.Context, items []backlog.Item) (int, error)
}

// Attributed is one finding, recommendation or follow-up with its source.
type Attributed struct {
	Worker string `json:"worker"`
	Text   string `json:"text"`
}

// WorkerSummary describes one worker's contribution.
type WorkerSummary struct {
	Worker          string `json:"worker"`
	Kind            string `json:"kind"`
	Focus           string `json:"focus"`
	Status          string `json:"status"`
	Summary         string `json:"summary,omitempty"`
	Findings        int    `json:"findings"`
	Recommendations int    `json:"recommendations"`
	Attempts        int    `json:"attempts"`
}

// Artifact is the consolidated session output. It carries no wall-clock
// fields, so the same worker results always produce the same bytes.
type Artifact struct {
	SessionID       string          `json:"session_id"`
	Task            string          `json:"task"`
	Strategy        string          `json:"strategy,omitempty"`
	Status          string          `json:"status"`
	Workers         []WorkerSummary `json:"workers"`
	Findings        []Attributed    `json:"findings"`
	Recommendations []Attributed    `json:"recommendations"`
	FollowUps       []Attributed    `json:"follow_ups,omitempty"`

	// Path is the session-relative location of synthesis.json.
	Path string `json:"-"`
}

// Delegate runs synthesis for sessions in one store.
type Delegate struct {
	store   Store
	syncer  Syncer
	backlog Backlog
	logger  *logging.Logger
}

// Option configures a Delegate.
type Option func(*Delegate)

// WithBacklog persists follow-ups to b.
func WithBacklog(b Backlog) Option {
	return func(d *Delegate) {
		d.backlog = b
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *logging.Logger) Option {
	return func(d *Delegate) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a Delegate.
func New(store Store, syncer Syncer, opts ...Option) *Delegate {
	d := &Delegate{store: store, syncer: syncer, logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Synthesize produces the session's final artifact. It fails with
// ErrPreconditionNotMet, writing nothing, unless every worker is completed
// and audit-passed. Calling it on a completed session returns the artifact
// already on disk. Concurrent callers are serialized on the session's
// synthesis lock: one writes the artifact, the others return it.
func (d *Delegate) Synthesize(ctx context.Context, id string) (*Artifact, error) {
	log := d.logger.WithSession(id).WithPhase("synthesis")

	state, _, err := d.syncer.Sync(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.Phase == types.PhaseActive || state.Phase == types.PhaseSynthesizing {
		lock := d.store.SynthesisLock(id)
		if err := lock.Lock(); err != nil {
			return nil, fmt.Errorf("failed to acquire synthesis lock: %w", err)
		}
		defer func() { _ = lock.Unlock() }()

		// Another caller may have completed the session while this one waited.
		if state, _, err = d.syncer.Sync(ctx, id); err != nil {
			return nil, err
		}
	}

	switch state.Phase {
	case types.PhaseCompleted:
		return d.load(id, state.Artifact)
	case types.PhaseFailed:
		return nil, precondition(id, fmt.Sprintf("session failed: %s", state.FailureReason))
	case types.PhasePlanning:
		return nil, precondition(id, "no workers assigned")
	}
	if err := CheckReady(state); err != nil {
		return nil, err
	}

	artifact, err := d.Build(state)
	if err != nil {
		return nil, err
	}
	jsonData, mdData, err := Render(artifact)
	if err != nil {
		return nil, err
	}

	if state.Phase == types.PhaseActive {
		if _, err := d.store.Append(ctx, id, event.Event{
			Type:    event.SynthesisDelegated,
			Agent:   event.QueenAgent,
			Details: map[string]any{"workers": len(artifact.Workers)},
		}); err != nil {
			return nil, fmt.Errorf("failed to record synthesis delegation: %w", err)
		}
	}

	rel, err := d.store.WriteOutput(id, JSONFile, jsonData)
	if err != nil {
		return nil, err
	}
	if _, err := d.store.WriteOutput(id, MarkdownFile, mdData); err != nil {
		return nil, err
	}
	artifact.Path = rel

	if d.backlog != nil && len(artifact.FollowUps) > 0 {
		items := make([]backlog.Item, len(artifact.FollowUps))
		for i, f := range artifact.FollowUps {
			items[i] = backlog.Item{SessionID: id, WorkerID: f.Worker, Text: f.Text}
		}
		added, err := d.backlog.AddAll(ctx, items)
		if err != nil {
			// The artifact is complete without the backlog.
			log.Warn("failed to persist follow-ups", "error", err)
		} else {
			log.Info("follow-ups added to backlog", "added", added)
		}
	}

	if _, err := d.store.Append(ctx, id, event.Event{
		Type:    event.SessionCompleted,
		Agent:   event.QueenAgent,
		Details: map[string]any{event.KeyArtifact: rel},
	}); err != nil {
		return nil, fmt.Errorf("failed to record session completion: %w", err)
	}

	log.Info("session synthesized",
		"workers", len(artifact.Workers),
		"findings", len(artifact.Findings),
		"recommendations", len(artifact.Recommendations))
	return artifact, nil
}

// CheckReady returns ErrPreconditionNotMet naming the workers that are not
// both completed and audit-passed.
func CheckReady(state *types.State) error {
	if len(state.Workers) == 0 {
		return precondition(state.SessionID, "no workers assigned")
	}
	var pending []string
	for _, id := range state.WorkerIDs() {
		w := state.Workers[id]
		if w.Status != types.StatusCompleted || w.Audit != types.AuditPassed {
			pending = append(pending, fmt.Sprintf("%s (%s)", id, describe(w)))
		}
	}
	if len(pending) > 0 {
		return precondition(state.SessionID, "workers not finished: "+strings.Join(pending, ", "))
	}
	return nil
}

func describe(w *types.WorkerRecord) string {
	if w.Status == types.StatusCompleted {
		return "audit " + string(w.Audit)
	}
	return string(w.Status)
}

func precondition(id, msg string) error {
	return errors.NewSessionError("synthesize: "+msg, errors.ErrPreconditionNotMet).WithSessionID(id)
}

// Build reads every worker's structured result and merges them in worker id
// order. It has no side effects.
func (d *Delegate) Build(state *types.State) (*Artifact, error) {
	a := &Artifact{
		SessionID:       state.SessionID,
		Task:            state.Task,
		Strategy:        state.Strategy,
		Status:          types.ResultComplete,
		Workers:         []WorkerSummary{},
		Findings:        []Attributed{},
		Recommendations: []Attributed{},
	}

	for _, id := range state.WorkerIDs() {
		w := state.Workers[id]
		data, err := d.store.ReadArtifact(state.SessionID, w.Artifacts.Result)
		if err != nil {
			return nil, fmt.Errorf("failed to read result of %s: %w", id, err)
		}
		result, err := types.ParseWorkerResult(bytes.TrimSpace(data))
		if err != nil {
			return nil, fmt.Errorf("result of %s: %w", id, err)
		}

		a.Workers = append(a.Workers, WorkerSummary{
			Worker:          id,
			Kind:            w.Kind,
			Focus:           w.Focus,
			Status:          result.Status,
			Summary:         result.Summary,
			Findings:        len(result.Findings),
			Recommendations: len(result.Recommendations),
			Attempts:        w.Attempts,
		})
		if result.Status != types.ResultComplete {
			a.Status = types.ResultPartial
		}
		a.Findings = appendAttributed(a.Findings, id, result.Findings)
		a.Recommendations = appendAttributed(a.Recommendations, id, result.Recommendations)
		a.FollowUps = appendAttributed(a.FollowUps, id, result.FollowUps)
	}
	return a, nil
}

func appendAttributed(dst []Attributed, worker string, texts []string) []Attributed {
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			dst = append(dst, Attributed{Worker: worker, Text: t})
		}
	}
	return dst
}

func (d *Delegate) load(id, rel string) (*Artifact, error) {
	if rel == "" {
		rel = JSONFile
	}
	data, err := d.store.ReadArtifact(id, rel)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesis artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, errors.NewSessionError("decode synthesis artifact", errors.Join(errors.ErrSessionCorrupted, err)).WithSessionID(id)
	}
	a.Path = rel
	return &a, nil
}

// WorkerIDs returns the ids of the contributing workers, in order.
func (a *Artifact) WorkerIDs() []string {
	ids := make([]string, len(a.Workers))
	for i, w := range a.Workers {
		ids[i] = w.Worker
	}
	return ids
}

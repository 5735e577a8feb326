package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/event"
	"github.com/Iron-Ham/hivemind/internal/logging"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/lifecycle"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
	"github.com/Iron-Ham/hivemind/internal/session"
	"github.com/Iron-Ham/hivemind/internal/textgen"
)

// Store is the part of the session store a worker writes to.
type Store interface {
	Appender
	WriteArtifact(id, workerID string, kind session.ArtifactKind, data []byte) (string, error)
	ReadArtifact(id, rel string) ([]byte, error)
}

// Syncer brings the state projection up to date with the event log.
type Syncer interface {
	Sync(ctx context.Context, id string) (*types.State, []event.Event, error)
}

// Options configures a Runner.
type Options struct {
	Generator textgen.Generator
	// PollInterval is how often a blocked worker re-checks its dependencies.
	PollInterval time.Duration
	Logger       *logging.Logger
}

// Runner executes worker attempts.
type Runner struct {
	store  Store
	syncer Syncer
	gen    textgen.Generator
	poll   time.Duration
	logger *logging.Logger
}

// NewRunner creates a Runner.
func NewRunner(store Store, syncer Syncer, opts Options) *Runner {
	r := &Runner{
		store:  store,
		syncer: syncer,
		gen:    opts.Generator,
		poll:   opts.PollInterval,
		logger: opts.Logger,
	}
	if r.poll <= 0 {
		r.poll = 500 * time.Millisecond
	}
	if r.logger == nil {
		r.logger = logging.NopLogger()
	}
	return r
}

// Run performs one attempt of workerID in session id. It first waits while
// any dependency is unfinished, so none of the worker's events land before
// it is unblocked. It stops without reporting anything once the session has
// failed, returning ErrCanceled. Any other failure is reported as
// worker_failed and returned.
func (r *Runner) Run(ctx context.Context, id, workerID string) error {
	rep, err := NewReporter(r.store, id, workerID)
	if err != nil {
		return err
	}
	log := r.logger.WithSession(id).WithWorker(workerID)

	state, w, err := r.waitReady(ctx, id, workerID)
	if err != nil {
		return err
	}
	log.Info("worker starting", "attempt", w.Attempts, "kind", w.Kind)

	if err := rep.Spawned(ctx, w.Attempts); err != nil {
		return err
	}
	if err := r.checkActive(ctx, id); err != nil {
		return err
	}
	if err := rep.Validated(ctx); err != nil {
		return err
	}
	if err := rep.Configured(ctx, w.Kind); err != nil {
		return err
	}
	if err := rep.Started(ctx); err != nil {
		return err
	}

	if err := r.analyze(ctx, rep, state, w); err != nil {
		if errors.Is(err, errors.ErrCanceled) || ctx.Err() != nil {
			log.Info("worker stopped", "error", err)
			return err
		}
		log.Error("worker failed", "error", err)
		if ferr := rep.Failed(ctx, err.Error()); ferr != nil {
			return errors.Join(err, ferr)
		}
		return errors.NewWorkerError("run", err).WithWorkerID(workerID).WithStatus(string(types.StatusFailed))
	}

	log.Info("worker completed")
	return nil
}

func (r *Runner) analyze(ctx context.Context, rep *Reporter, state *types.State, w *types.WorkerRecord) error {
	if r.gen == nil {
		return fmt.Errorf("no text generator configured")
	}
	prompt, err := r.prompt(state, w)
	if err != nil {
		return err
	}
	if err := rep.Progress(ctx, "generating analysis"); err != nil {
		return err
	}

	resp, err := r.gen.Generate(ctx, textgen.Request{Prompt: prompt})
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	notes, result, err := SplitOutput(resp.Text, w.ID)
	if err != nil {
		return err
	}
	if err := r.checkActive(ctx, state.SessionID); err != nil {
		return err
	}

	rel, err := r.store.WriteArtifact(state.SessionID, w.ID, session.ArtifactNotes, []byte(notes))
	if err != nil {
		return err
	}
	if err := rep.NotesCreated(ctx, rel); err != nil {
		return err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if rel, err = r.store.WriteArtifact(state.SessionID, w.ID, session.ArtifactResult, append(data, '\n')); err != nil {
		return err
	}
	if err := rep.ResultCreated(ctx, rel); err != nil {
		return err
	}
	return rep.Completed(ctx)
}

// waitReady polls until the worker is assigned with every dependency
// passed, and returns the state it observed.
func (r *Runner) waitReady(ctx context.Context, id, workerID string) (*types.State, *types.WorkerRecord, error) {
	logged := false
	for {
		state, _, err := r.syncer.Sync(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if state.Phase.IsTerminal() {
			return nil, nil, canceled(workerID, state)
		}

		if w := state.Worker(workerID); w != nil {
			if w.Status != types.StatusAssigned {
				return nil, nil, errors.NewWorkerError(
					fmt.Sprintf("worker is %s, not awaiting spawn", w.Status), errors.ErrPreconditionNotMet,
				).WithWorkerID(workerID).WithStatus(string(w.Status))
			}
			pending := lifecycle.PendingDependencies(state, w)
			if len(pending) == 0 {
				return state, w, nil
			}
			if !logged {
				r.logger.WithSession(id).WithWorker(workerID).Info("waiting for dependencies", "pending", strings.Join(pending, ","))
				logged = true
			}
		} else if state.Phase != types.PhasePlanning {
			return nil, nil, errors.NewWorkerError("worker is not assigned in this session", errors.ErrInvalidInput).WithWorkerID(workerID)
		}

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(r.poll):
		}
	}
}

// checkActive returns ErrCanceled once the session has left the active phase.
func (r *Runner) checkActive(ctx context.Context, id string) error {
	state, _, err := r.syncer.Sync(ctx, id)
	if err != nil {
		return err
	}
	if state.Phase != types.PhaseActive {
		return canceled("", state)
	}
	return nil
}

func canceled(workerID string, state *types.State) error {
	msg := fmt.Sprintf("session is %s", state.Phase)
	if state.FailureReason != "" {
		msg += ": " + state.FailureReason
	}
	return errors.NewWorkerError(msg, errors.ErrCanceled).WithWorkerID(workerID)
}

const workerPrompt = `You are the {{.Worker.Kind}} specialist on a team analyzing a task.

## Task
{{.Task}}

## Your Focus
{{.Worker.Focus}}
{{if .Dependencies}}
## Findings From Earlier Workers
{{range .Dependencies}}
### {{.Worker}}
{{.Summary}}
{{range .Findings}}- {{.}}
{{end}}{{end}}{{end}}
## Response Format

Write your analysis as a markdown report. Then end your response with one
JSON object and no other JSON:

{"status": "complete" | "partial" | "blocked",
 "summary": "<one paragraph>",
 "findings": ["..."],
 "recommendations": ["..."],
 "follow_ups": ["<work that should happen after this session>"]}
`

var promptTemplate = template.Must(template.New("worker").Parse(workerPrompt))

func (r *Runner) prompt(state *types.State, w *types.WorkerRecord) (string, error) {
	var deps []*types.WorkerResult
	for _, dep := range w.DependsOn {
		d := state.Worker(dep)
		if d == nil || d.Artifacts.Result == "" {
			continue
		}
		data, err := r.store.ReadArtifact(state.SessionID, d.Artifacts.Result)
		if err != nil {
			continue
		}
		if res, err := types.ParseWorkerResult(bytes.TrimSpace(data)); err == nil {
			if res.Worker == "" {
				res.Worker = dep
			}
			deps = append(deps, res)
		}
	}

	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, struct {
		Task         string
		Worker       *types.WorkerRecord
		Dependencies []*types.WorkerResult
	}{state.Task, w, deps})
	if err != nil {
		return "", fmt.Errorf("failed to build worker prompt: %w", err)
	}
	return buf.String(), nil
}

// SplitOutput separates generated text into the narrative report and the
// structured result. The result's worker field is forced to workerID. When
// the text holds nothing but the JSON object, the narrative is rendered from
// the result.
func SplitOutput(text, workerID string) (string, *types.WorkerResult, error) {
	raw, err := textgen.ExtractJSON(text)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", errors.ErrIncompleteOutput, err)
	}
	result, err := types.ParseWorkerResult([]byte(raw))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", errors.ErrIncompleteOutput, err)
	}
	result.Worker = workerID

	notes := strings.Replace(text, raw, "", 1)
	notes = strings.TrimSpace(notes)
	notes = strings.TrimSpace(strings.TrimSuffix(notes, "```"))
	notes = strings.TrimSpace(strings.TrimSuffix(notes, "```json"))
	if notes == "" {
		notes = renderNotes(result)
	}
	return notes + "\n", result, nil
}

func renderNotes(r *types.WorkerResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", r.Worker)
	if r.Summary != "" {
		fmt.Fprintf(&sb, "%s\n\n", r.Summary)
	}
	sb.WriteString("## Findings\n\n")
	for _, f := range r.Findings {
		fmt.Fprintf(&sb, "- %s\n", f)
	}
	sb.WriteString("\n## Recommendations\n\n")
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&sb, "- %s\n", rec)
	}
	return strings.TrimSpace(sb.String())
}

// Package orchestrator provides the Coordinator, the queen of a hive session.
//
// The Coordinator owns every session-level decision: it creates sessions,
// plans and assigns workers, monitors the event log, records audit verdicts,
// re-spawns or escalates failed workers, and hands finished sessions to the
// Synthesis Delegate. It never emits an event on a worker's behalf. Its
// verdicts are themselves events attributed to the queen, so the state
// projection stays a pure function of the log.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Iron-Ham/hivemind/internal/config"
	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/event"
	"github.com/Iron-Ham/hivemind/internal/logging"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/planner"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/projection"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/retry"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/synthesis"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/verify"
	"github.com/Iron-Ham/hivemind/internal/session"
)

// Options configures a Coordinator. Zero values select defaults.
type Options struct {
	// Config supplies timers, budgets, worker kinds and planner settings.
	Config *config.Config
	// Planner produces assignments. Defaults to the static planner.
	Planner planner.Planner
	// Backlog receives follow-ups found during synthesis.
	Backlog synthesis.Backlog
	// Bus receives every event the coordinator observes in the log.
	Bus    *event.Bus
	Logger *logging.Logger
}

// Coordinator drives sessions stored in one session store.
type Coordinator struct {
	store     *session.Store
	projector *projection.Projector
	auditor   *verify.Auditor
	delegate  *synthesis.Delegate
	planner   planner.Planner
	policy    retry.Policy
	cfg       *config.Config
	bus       *event.Bus
	logger    *logging.Logger
}

// New creates a Coordinator over store.
func New(store *session.Store, opts Options) *Coordinator {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	plan := opts.Planner
	if plan == nil {
		plan = &planner.Static{MaxWorkers: cfg.Planner.MaxWorkers}
	}
	bus := opts.Bus
	if bus == nil {
		bus = event.NewBus(logger)
	}

	projector := projection.NewProjector(store, logger)
	delegateOpts := []synthesis.Option{synthesis.WithLogger(logger)}
	if opts.Backlog != nil {
		delegateOpts = append(delegateOpts, synthesis.WithBacklog(opts.Backlog))
	}

	return &Coordinator{
		store:     store,
		projector: projector,
		auditor:   verify.NewAuditor(store, verify.WithLogger(logger)),
		delegate:  synthesis.New(store, projector, delegateOpts...),
		planner:   plan,
		policy:    retry.FromConfig(cfg.Coordination),
		cfg:       cfg,
		bus:       bus,
		logger:    logger,
	}
}

// Bus returns the bus the coordinator publishes observed events on.
func (c *Coordinator) Bus() *event.Bus {
	return c.bus
}

// Store returns the underlying session store.
func (c *Coordinator) Store() *session.Store {
	return c.store
}

// CreateSession starts a session for task and returns its initial state.
func (c *Coordinator) CreateSession(ctx context.Context, task string) (*types.State, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return nil, fmt.Errorf("%w: task is empty", errors.ErrInvalidInput)
	}
	id := session.NewSessionID(c.store.Now())
	if _, err := c.store.Create(ctx, id, task); err != nil {
		return nil, err
	}
	return c.sync(ctx, id)
}

// PlanAndAssign plans the session's task over kinds (the configured kinds
// when empty) and records the accepted plan as tasks_assigned. Plans with
// duplicate ids, unknown dependencies or cycles are rejected before anything
// is written.
func (c *Coordinator) PlanAndAssign(ctx context.Context, id string, kinds []string) (*planner.Plan, error) {
	state, err := c.sync(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.Phase != types.PhasePlanning {
		return nil, errors.NewSessionError(
			fmt.Sprintf("plan: session is %s, workers are already assigned", state.Phase),
			errors.ErrPreconditionNotMet,
		).WithSessionID(id)
	}
	if len(kinds) == 0 {
		kinds = c.cfg.Worker.Kinds
	}

	log := c.logger.WithSession(id).WithPhase("planning")
	plan, err := c.planner.Plan(ctx, state.Task, kinds)
	if err != nil {
		return nil, err
	}
	plan, err = planner.Finalize(plan, c.cfg.Planner.Strategy, kinds, c.cfg.Planner.MaxWorkers)
	if err != nil {
		log.Warn("plan rejected", "error", err)
		return nil, err
	}

	if _, err := c.emit(ctx, id, event.TasksAssigned, map[string]any{
		event.KeyAssignments: plan.Assignments,
		event.KeyStrategy:    plan.Strategy,
	}); err != nil {
		return nil, err
	}
	log.Info("workers assigned", "workers", strings.Join(plan.WorkerIDs(), ","), "strategy", plan.Strategy)

	if _, err := c.sync(ctx, id); err != nil {
		return nil, err
	}
	return plan, nil
}

// Status brings the projection up to date and returns it.
func (c *Coordinator) Status(ctx context.Context, id string) (*types.State, error) {
	return c.sync(ctx, id)
}

// Audit runs the Completion Auditor on one worker without recording a verdict.
func (c *Coordinator) Audit(ctx context.Context, id, workerID string) (*verify.Report, error) {
	return c.auditor.Audit(ctx, id, workerID)
}

// Synthesize hands a finished session to the Synthesis Delegate.
func (c *Coordinator) Synthesize(ctx context.Context, id string) (*synthesis.Artifact, error) {
	if _, err := c.sync(ctx, id); err != nil {
		return nil, err
	}
	artifact, err := c.delegate.Synthesize(ctx, id)
	if err != nil {
		return nil, err
	}
	// Publish synthesis_delegated and session_completed.
	if _, err := c.sync(ctx, id); err != nil {
		return nil, err
	}
	return artifact, nil
}

// Escalate hands a worker to a human: it records worker_escalated and fails
// the session pending intervention.
func (c *Coordinator) Escalate(ctx context.Context, id, workerID, reason string) (*types.State, error) {
	state, err := c.sync(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.Phase.IsTerminal() {
		return nil, errors.NewSessionError(
			fmt.Sprintf("escalate: session is already %s", state.Phase), errors.ErrPreconditionNotMet,
		).WithSessionID(id)
	}
	if state.Worker(workerID) == nil {
		return nil, errors.NewWorkerError("escalate", errors.ErrInvalidInput).WithWorkerID(workerID)
	}
	if err := c.escalate(ctx, id, workerID, reason); err != nil {
		return nil, err
	}
	return c.sync(ctx, id)
}

func (c *Coordinator) escalate(ctx context.Context, id, workerID, reason string) error {
	c.logger.WithSession(id).WithWorker(workerID).Warn("worker escalated", "reason", reason)
	if _, err := c.emit(ctx, id, event.WorkerEscalated, map[string]any{
		event.KeyWorker: workerID,
		event.KeyReason: reason,
	}); err != nil {
		return err
	}
	_, err := c.emit(ctx, id, event.SessionFailed, map[string]any{
		event.KeyReason: fmt.Sprintf("worker %s escalated: %s", workerID, reason),
	})
	return err
}

// Cancel fails the session. Workers observe the failed phase and stop.
// Cancelling a failed session is a no-op; a completed session cannot be
// cancelled.
func (c *Coordinator) Cancel(ctx context.Context, id, reason string) (*types.State, error) {
	state, err := c.sync(ctx, id)
	if err != nil {
		return nil, err
	}
	switch state.Phase {
	case types.PhaseFailed:
		return state, nil
	case types.PhaseCompleted:
		return nil, errors.NewSessionError("cancel: session already completed", errors.ErrPreconditionNotMet).WithSessionID(id)
	}
	if reason == "" {
		reason = "canceled by operator"
	}
	if _, err := c.emit(ctx, id, event.SessionFailed, map[string]any{event.KeyReason: reason}); err != nil {
		return nil, err
	}
	c.logger.WithSession(id).Info("session canceled", "reason", reason)
	return c.sync(ctx, id)
}

// emit appends a queen event. The store stamps it with its own clock.
func (c *Coordinator) emit(ctx context.Context, id string, typ event.Type, details map[string]any) (event.Event, error) {
	e, err := c.store.Append(ctx, id, event.Event{Type: typ, Agent: event.QueenAgent, Details: details})
	if err != nil {
		return e, fmt.Errorf("failed to record %s: %w", typ, err)
	}
	return e, nil
}

// sync updates the projection and publishes the events it applied.
func (c *Coordinator) sync(ctx context.Context, id string) (*types.State, error) {
	state, applied, err := c.projector.Sync(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, e := range applied {
		c.bus.Publish(e)
	}
	return state, nil
}

func (c *Coordinator) now() time.Time {
	return c.store.Now()
}

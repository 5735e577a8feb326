package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/event"
	"github.com/Iron-Ham/hivemind/internal/logging"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/lifecycle"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/retry"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
)

// ErrMonitorActive is returned by Monitor when another process already
// monitors the session.
var ErrMonitorActive = errors.New("session is already being monitored")

// Verdict is one decision recorded during a monitor pass.
type Verdict struct {
	Worker string
	Type   event.Type
	Reason string
}

// Pass is the outcome of one monitor pass.
type Pass struct {
	State    *types.State
	Verdicts []Verdict
	// Errors holds per-worker failures. One worker's error never stops the
	// pass from handling the others.
	Errors []error
}

// Done reports whether monitoring can stop: the session is terminal or
// every worker completed and passed its audit.
func (p *Pass) Done() bool {
	return p.State.Phase.IsTerminal() || (p.State.Phase == types.PhaseActive && p.State.AllPassed())
}

// MonitorOnce makes one pass over every worker of session id as of now:
//
//   - completed workers with a pending audit are audited and the verdict
//     recorded as audit_passed or audit_failed
//   - unblocked workers still assigned after the startup grace window are
//     recorded as worker_timed_out
//   - failed workers are re-spawned while the budget allows and escalated
//     otherwise, which fails the session
//
// Workers are handled independently.
func (c *Coordinator) MonitorOnce(ctx context.Context, id string, now time.Time) (*Pass, error) {
	state, err := c.sync(ctx, id)
	if err != nil {
		return nil, err
	}
	pass := &Pass{State: state}
	if state.Phase != types.PhaseActive {
		return pass, nil
	}

	log := c.logger.WithSession(id).WithPhase("monitor")
	grace := c.cfg.Coordination.StartupGrace()

	for _, wid := range state.WorkerIDs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w := state.Workers[wid]

		switch {
		case w.Status == types.StatusCompleted && w.Audit == types.AuditPending:
			v, err := c.recordAudit(ctx, id, wid)
			if err != nil {
				log.Error("audit failed to run", "worker_id", wid, "error", err)
				pass.Errors = append(pass.Errors, err)
				continue
			}
			pass.Verdicts = append(pass.Verdicts, v)

		case lifecycle.StartupExpired(w, now, grace):
			reason := fmt.Sprintf("no worker_spawned within %s of %s", grace, w.ReadyAt.Format(time.RFC3339))
			if _, err := c.emit(ctx, id, event.WorkerTimedOut, map[string]any{
				event.KeyWorker: wid,
				event.KeyReason: reason,
			}); err != nil {
				pass.Errors = append(pass.Errors, err)
				continue
			}
			log.Warn("startup grace window expired", "worker_id", wid, "ready_at", w.ReadyAt)
			pass.Verdicts = append(pass.Verdicts, Verdict{Worker: wid, Type: event.WorkerTimedOut, Reason: reason})
		}
	}

	// Verdicts above may have failed workers; remediate against fresh state.
	if state, err = c.sync(ctx, id); err != nil {
		return nil, err
	}
	pass.State = state

	for _, wid := range state.WorkerIDs() {
		if state.Phase.IsTerminal() {
			break
		}
		w := state.Workers[wid]
		decision := c.policy.Decide(w)

		switch decision.Action {
		case retry.ActionRespawn:
			if _, err := c.emit(ctx, id, event.WorkerRespawned, map[string]any{
				event.KeyWorker:  wid,
				event.KeyReason:  decision.Reason,
				event.KeyAttempt: w.Attempts + 1,
			}); err != nil {
				pass.Errors = append(pass.Errors, err)
				continue
			}
			log.Info("worker re-spawned", "worker_id", wid, "attempt", w.Attempts+1, "reason", decision.Reason)
			pass.Verdicts = append(pass.Verdicts, Verdict{Worker: wid, Type: event.WorkerRespawned, Reason: decision.Reason})

		case retry.ActionEscalate:
			if err := c.escalate(ctx, id, wid, decision.Reason); err != nil {
				pass.Errors = append(pass.Errors, err)
				continue
			}
			pass.Verdicts = append(pass.Verdicts, Verdict{Worker: wid, Type: event.WorkerEscalated, Reason: decision.Reason})
			// The session is failed now; the rest wait for a human.
			state.Phase = types.PhaseFailed
		}
	}

	if len(pass.Verdicts) > 0 {
		if pass.State, err = c.sync(ctx, id); err != nil {
			return nil, err
		}
	}
	return pass, nil
}

func (c *Coordinator) recordAudit(ctx context.Context, id, workerID string) (Verdict, error) {
	report, err := c.auditor.Audit(ctx, id, workerID)
	if err != nil {
		return Verdict{}, err
	}
	if report.Passed() {
		if _, err := c.emit(ctx, id, event.AuditPassed, map[string]any{
			event.KeyWorker: workerID,
			event.KeyPath:   report.ResultPath,
		}); err != nil {
			return Verdict{}, err
		}
		return Verdict{Worker: workerID, Type: event.AuditPassed}, nil
	}

	reason := report.Reason()
	if _, err := c.emit(ctx, id, event.AuditFailed, map[string]any{
		event.KeyWorker: workerID,
		event.KeyReason: reason,
	}); err != nil {
		return Verdict{}, err
	}
	return Verdict{Worker: workerID, Type: event.AuditFailed, Reason: reason}, nil
}

// Monitor runs monitor passes until the session is terminal or every worker
// has passed its audit, or ctx is done. Passes run every poll interval and
// as soon as the event log changes. Only one monitor may run per session;
// a second one fails with ErrMonitorActive.
func (c *Coordinator) Monitor(ctx context.Context, id string) (*types.State, error) {
	if !c.store.Exists(id) {
		return nil, errors.NewSessionError("monitor", errors.ErrSessionNotFound).WithSessionID(id)
	}
	lock := c.store.MonitorLock(id)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NewSessionError("monitor", ErrMonitorActive).WithSessionID(id)
	}
	defer func() { _ = lock.Unlock() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := c.logger.WithSession(id).WithPhase("monitor")
	wake, err := c.store.WatchEvents(ctx, id)
	if err != nil {
		// Polling alone is enough; the watcher only lowers latency.
		log.Warn("event log watcher unavailable, polling only", "error", err)
	}

	ticker := time.NewTicker(c.cfg.Coordination.PollInterval())
	defer ticker.Stop()

	log.Info("monitor started")
	transient := 0
	for {
		pass, err := c.MonitorOnce(ctx, id, c.now())
		switch {
		case err == nil:
			transient = 0
			for _, perr := range pass.Errors {
				logPassError(log, perr)
			}
			if pass.Done() {
				log.Info("monitor finished", "phase", string(pass.State.Phase))
				return pass.State, nil
			}
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case canRetryPass(err, transient):
			transient++
			log.Warn("monitor pass failed, retrying on next tick", "error", err, "attempt", transient)
		default:
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		case _, ok := <-wake:
			if !ok {
				wake = nil
			}
		}
	}
}

// maxTransientPasses bounds consecutive monitor passes that may fail with a
// retryable error before Monitor gives up.
const maxTransientPasses = 3

// canRetryPass reports whether a pass that failed with err, after transient
// earlier consecutive failures, should be retried on the next tick.
func canRetryPass(err error, transient int) bool {
	return errors.IsRetryable(err) && transient < maxTransientPasses
}

// logPassError logs a per-worker pass error at a level matching its severity.
func logPassError(log *logging.Logger, err error) {
	switch sev := errors.GetSeverity(err); {
	case errors.IsRetryable(err) || sev == errors.SeverityWarning:
		log.Warn("monitor pass error", "error", err, "retryable", errors.IsRetryable(err))
	case sev >= errors.SeverityError:
		log.Error("monitor pass error", "error", err, "severity", sev.String())
	default:
		log.Info("monitor pass error", "error", err)
	}
}

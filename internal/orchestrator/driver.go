package orchestrator

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/event"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
)

// WorkerRunner runs one attempt of a worker.
type WorkerRunner interface {
	Run(ctx context.Context, id, workerID string) error
}

// Drive runs every assigned worker of session id in this process next to
// the monitor, relaunching workers the monitor re-spawns. It returns the
// state the monitor finished with. Worker errors are logged; the monitor's
// verdicts decide the outcome.
func (c *Coordinator) Drive(ctx context.Context, id string, runner WorkerRunner) (*types.State, error) {
	state, err := c.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.Phase != types.PhaseActive {
		return nil, errors.NewSessionError("drive: session is "+string(state.Phase), errors.ErrPreconditionNotMet).WithSessionID(id)
	}

	log := c.logger.WithSession(id).WithPhase("drive")
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	stopped := false
	launch := func(workerID string) {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		g.Go(func() error {
			if err := runner.Run(gctx, id, workerID); err != nil {
				log.Warn("worker attempt ended with error", "worker_id", workerID, "error", err)
			}
			return nil
		})
	}

	sub := c.bus.Subscribe(event.WorkerRespawned, func(e event.Event) {
		if workerID, ok := e.DetailString(event.KeyWorker); ok {
			launch(workerID)
		}
	})
	defer c.bus.Unsubscribe(sub)

	for _, workerID := range state.WorkerIDs() {
		launch(workerID)
	}

	var final *types.State
	g.Go(func() error {
		s, err := c.Monitor(gctx, id)
		mu.Lock()
		stopped = true
		mu.Unlock()
		if err != nil {
			return err
		}
		final = s
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return final, nil
}

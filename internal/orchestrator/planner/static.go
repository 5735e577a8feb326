package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
)

// Static assigns one worker per available kind, named after the kind.
type Static struct {
	// MaxWorkers keeps only the first kinds when positive.
	MaxWorkers int
}

// Plan implements Planner.
func (s *Static) Plan(_ context.Context, task string, kinds []string) (*Plan, error) {
	if strings.TrimSpace(task) == "" {
		return nil, errors.NewPlanError("task is empty", errors.ErrInvalidInput)
	}
	if len(kinds) == 0 {
		return nil, errors.NewPlanError("no worker kinds available", errors.ErrPlanInvalid)
	}

	if s.MaxWorkers > 0 && len(kinds) > s.MaxWorkers {
		kinds = kinds[:s.MaxWorkers]
	}

	p := &Plan{}
	for _, kind := range kinds {
		p.Assignments = append(p.Assignments, types.Assignment{
			WorkerID: kind,
			Kind:     kind,
			Focus:    fmt.Sprintf("Examine the task from the %s perspective: %s", kind, task),
		})
	}
	return p, nil
}

package lifecycle

import (
	"fmt"
	"slices"

	"github.com/Iron-Ham/hivemind/internal/config"
	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
)

// Order checks that assignments form a well-formed dependency graph and
// returns worker ids in an order where every worker follows its
// dependencies. Ties are broken by worker id so the order is stable.
//
// It rejects invalid or duplicate worker ids, self-dependencies, references
// to unknown workers, and cycles (ErrDependencyCycle).
func Order(assignments []types.Assignment) ([]string, error) {
	byID := make(map[string]types.Assignment, len(assignments))
	for _, a := range assignments {
		if !config.IsValidWorkerID(a.WorkerID) {
			return nil, errors.NewPlanError(fmt.Sprintf("invalid worker id %q", a.WorkerID), errors.ErrPlanInvalid).WithWorkers(a.WorkerID)
		}
		if _, dup := byID[a.WorkerID]; dup {
			return nil, errors.NewPlanError("duplicate worker id", errors.ErrPlanInvalid).WithWorkers(a.WorkerID)
		}
		byID[a.WorkerID] = a
	}

	indegree := make(map[string]int, len(byID))
	dependents := make(map[string][]string)
	for id, a := range byID {
		indegree[id] += 0
		for _, dep := range a.DependsOn {
			if dep == id {
				return nil, errors.NewPlanError("worker depends on itself", errors.ErrDependencyCycle).WithWorkers(id)
			}
			if _, ok := byID[dep]; !ok {
				return nil, errors.NewPlanError(fmt.Sprintf("unknown dependency %q", dep), errors.ErrPlanInvalid).WithWorkers(id)
			}
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var queue []string
	for id, n := range indegree {
		if n == 0 {
			queue = append(queue, id)
		}
	}
	slices.Sort(queue)

	order := make([]string, 0, len(byID))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		var freed []string
		for _, next := range dependents[id] {
			indegree[next]--
			if indegree[next] == 0 {
				freed = append(freed, next)
			}
		}
		slices.Sort(freed)
		queue = append(queue, freed...)
		slices.Sort(queue)
	}

	if len(order) != len(byID) {
		var stuck []string
		for id, n := range indegree {
			if n > 0 {
				stuck = append(stuck, id)
			}
		}
		slices.Sort(stuck)
		return nil, errors.NewPlanError("assignments contain a dependency cycle", errors.ErrDependencyCycle).WithWorkers(stuck...)
	}
	return order, nil
}

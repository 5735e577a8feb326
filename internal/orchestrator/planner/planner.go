// Package planner turns a task mandate into worker assignments.
//
// Three planners are available: [Static] assigns one worker per available
// kind, [File] loads a YAML plan, and [Oracle] asks the text-generation
// collaborator for a plan and falls back to Static when the answer is
// unusable. Whatever the source, a plan is only accepted after [Validate]
// confirms it has unique, valid worker ids and an acyclic dependency graph.
package planner

import (
	"context"
	"fmt"
	"slices"

	"github.com/Iron-Ham/hivemind/internal/config"
	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/logging"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/lifecycle"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
	"github.com/Iron-Ham/hivemind/internal/textgen"
)

// Execution strategies.
const (
	StrategyParallel   = "parallel"
	StrategySequential = "sequential"
	StrategyHybrid     = "hybrid"
)

// foundationKinds run first under the hybrid strategy.
var foundationKinds = []string{"analyzer", "architect", "researcher"}

// Plan is a set of assignments and the strategy that ordered them.
type Plan struct {
	Strategy    string             `json:"strategy" yaml:"strategy"`
	Assignments []types.Assignment `json:"workers" yaml:"workers"`
}

// WorkerIDs returns the planned worker ids in plan order.
func (p *Plan) WorkerIDs() []string {
	ids := make([]string, len(p.Assignments))
	for i, a := range p.Assignments {
		ids[i] = a.WorkerID
	}
	return ids
}

// Planner produces a plan for a task given the worker kinds available.
type Planner interface {
	Plan(ctx context.Context, task string, kinds []string) (*Plan, error)
}

// New returns the planner selected by cfg.Mode. gen is only used by the
// oracle planner and may be nil otherwise.
func New(cfg config.PlannerConfig, gen textgen.Generator, logger *logging.Logger) (Planner, error) {
	switch cfg.Mode {
	case "static", "":
		return &Static{MaxWorkers: cfg.MaxWorkers}, nil
	case "file":
		return &File{Path: cfg.PlanFile}, nil
	case "oracle":
		if gen == nil {
			return nil, fmt.Errorf("oracle planner requires a text generator")
		}
		return &Oracle{Generator: gen, Logger: logger, MaxWorkers: cfg.MaxWorkers}, nil
	default:
		return nil, fmt.Errorf("%w: unknown planner mode %q", errors.ErrInvalidInput, cfg.Mode)
	}
}

// Finalize applies the strategy and validates the result. The plan's own
// strategy wins over fallback when set.
func Finalize(p *Plan, fallback string, kinds []string, maxWorkers int) (*Plan, error) {
	if p.Strategy == "" {
		p.Strategy = fallback
	}
	if p.Strategy == "" {
		p.Strategy = StrategyParallel
	}
	if err := ApplyStrategy(p); err != nil {
		return nil, err
	}
	if err := Validate(p, kinds, maxWorkers); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks that p is non-empty, within maxWorkers (when positive),
// uses only the given kinds (when non-empty), and forms an acyclic
// dependency graph of unique worker ids.
func Validate(p *Plan, kinds []string, maxWorkers int) error {
	if len(p.Assignments) == 0 {
		return errors.NewPlanError("plan has no assignments", errors.ErrPlanInvalid)
	}
	if maxWorkers > 0 && len(p.Assignments) > maxWorkers {
		return errors.NewPlanError(fmt.Sprintf("plan has %d workers, limit is %d", len(p.Assignments), maxWorkers), errors.ErrPlanInvalid)
	}
	if len(kinds) > 0 {
		for _, a := range p.Assignments {
			if !slices.Contains(kinds, a.Kind) {
				return errors.NewPlanError(fmt.Sprintf("unknown worker kind %q", a.Kind), errors.ErrPlanInvalid).WithWorkers(a.WorkerID)
			}
		}
	}
	_, err := lifecycle.Order(p.Assignments)
	return err
}

// ApplyStrategy adds the dependency edges the strategy implies.
//
//   - parallel: only declared dependencies
//   - sequential: each worker also depends on the one before it
//   - hybrid: analyzer, architect and researcher workers run first; every
//     other worker also depends on all of them
func ApplyStrategy(p *Plan) error {
	switch p.Strategy {
	case StrategyParallel:
	case StrategySequential:
		for i := 1; i < len(p.Assignments); i++ {
			p.Assignments[i].DependsOn = addDep(p.Assignments[i].DependsOn, p.Assignments[i-1].WorkerID)
		}
	case StrategyHybrid:
		var foundation []string
		for _, a := range p.Assignments {
			if slices.Contains(foundationKinds, a.Kind) {
				foundation = append(foundation, a.WorkerID)
			}
		}
		for i, a := range p.Assignments {
			if slices.Contains(foundationKinds, a.Kind) {
				continue
			}
			for _, dep := range foundation {
				p.Assignments[i].DependsOn = addDep(p.Assignments[i].DependsOn, dep)
			}
		}
	default:
		return errors.NewPlanError(fmt.Sprintf("unknown strategy %q", p.Strategy), errors.ErrPlanInvalid)
	}
	return nil
}

func addDep(deps []string, dep string) []string {
	if slices.Contains(deps, dep) {
		return deps
	}
	return append(deps, dep)
}

package planner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/Iron-Ham/hivemind/internal/config"
	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
	"github.com/Iron-Ham/hivemind/internal/textgen"
)

var kinds = []string{"architect", "backend", "tester"}

func depsOf(p *Plan, id string) []string {
	for _, a := range p.Assignments {
		if a.WorkerID == id {
			return a.DependsOn
		}
	}
	return nil
}

func TestStatic(t *testing.T) {
	p, err := (&Static{}).Plan(context.Background(), "review the cache", kinds)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if got := p.WorkerIDs(); !slices.Equal(got, kinds) {
		t.Errorf("WorkerIDs = %v, want %v", got, kinds)
	}
	for _, a := range p.Assignments {
		if a.Kind != a.WorkerID {
			t.Errorf("worker %s has kind %s", a.WorkerID, a.Kind)
		}
		if !strings.Contains(a.Focus, "review the cache") {
			t.Errorf("focus %q does not mention the task", a.Focus)
		}
	}
}

func TestStatic_MaxWorkers(t *testing.T) {
	p, err := (&Static{MaxWorkers: 2}).Plan(context.Background(), "task", kinds)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(p.Assignments) != 2 {
		t.Errorf("got %d assignments, want 2", len(p.Assignments))
	}
}

func TestStatic_Rejects(t *testing.T) {
	if _, err := (&Static{}).Plan(context.Background(), "  ", kinds); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("empty task: err = %v, want ErrInvalidInput", err)
	}
	if _, err := (&Static{}).Plan(context.Background(), "task", nil); !errors.Is(err, errors.ErrPlanInvalid) {
		t.Errorf("no kinds: err = %v, want ErrPlanInvalid", err)
	}
}

func TestApplyStrategy(t *testing.T) {
	base := func(strategy string) *Plan {
		return &Plan{Strategy: strategy, Assignments: []types.Assignment{
			{WorkerID: "architect", Kind: "architect"},
			{WorkerID: "backend", Kind: "backend"},
			{WorkerID: "tester", Kind: "tester", DependsOn: []string{"backend"}},
		}}
	}

	tests := []struct {
		strategy string
		want     map[string][]string
	}{
		{StrategyParallel, map[string][]string{
			"architect": nil, "backend": nil, "tester": {"backend"},
		}},
		{StrategySequential, map[string][]string{
			"architect": nil, "backend": {"architect"}, "tester": {"backend"},
		}},
		{StrategyHybrid, map[string][]string{
			"architect": nil, "backend": {"architect"}, "tester": {"backend", "architect"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			p := base(tt.strategy)
			if err := ApplyStrategy(p); err != nil {
				t.Fatalf("ApplyStrategy failed: %v", err)
			}
			for id, want := range tt.want {
				if got := depsOf(p, id); !slices.Equal(got, want) {
					t.Errorf("%s depends on %v, want %v", id, got, want)
				}
			}
		})
	}
}

func TestApplyStrategy_Unknown(t *testing.T) {
	p := &Plan{Strategy: "swarm", Assignments: []types.Assignment{{WorkerID: "a", Kind: "a"}}}
	if err := ApplyStrategy(p); !errors.Is(err, errors.ErrPlanInvalid) {
		t.Errorf("err = %v, want ErrPlanInvalid", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		plan       *Plan
		maxWorkers int
		wantErr    error
	}{
		{"empty", &Plan{}, 0, errors.ErrPlanInvalid},
		{
			name: "too many workers",
			plan: &Plan{Assignments: []types.Assignment{
				{WorkerID: "architect", Kind: "architect"},
				{WorkerID: "backend", Kind: "backend"},
			}},
			maxWorkers: 1,
			wantErr:    errors.ErrPlanInvalid,
		},
		{
			name:    "unknown kind",
			plan:    &Plan{Assignments: []types.Assignment{{WorkerID: "ops", Kind: "devops"}}},
			wantErr: errors.ErrPlanInvalid,
		},
		{
			name: "cycle",
			plan: &Plan{Assignments: []types.Assignment{
				{WorkerID: "architect", Kind: "architect", DependsOn: []string{"backend"}},
				{WorkerID: "backend", Kind: "backend", DependsOn: []string{"architect"}},
			}},
			wantErr: errors.ErrDependencyCycle,
		},
		{
			name: "valid",
			plan: &Plan{Assignments: []types.Assignment{
				{WorkerID: "architect", Kind: "architect"},
				{WorkerID: "backend", Kind: "backend", DependsOn: []string{"architect"}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.plan, kinds, tt.maxWorkers)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate failed: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFinalize_StrategyPrecedence(t *testing.T) {
	p := &Plan{Assignments: []types.Assignment{
		{WorkerID: "architect", Kind: "architect"},
		{WorkerID: "backend", Kind: "backend"},
	}}
	got, err := Finalize(p, StrategySequential, kinds, 8)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if got.Strategy != StrategySequential {
		t.Errorf("Strategy = %q, want fallback %q", got.Strategy, StrategySequential)
	}
	if deps := depsOf(got, "backend"); !slices.Equal(deps, []string{"architect"}) {
		t.Errorf("backend depends on %v", deps)
	}

	own := &Plan{Strategy: StrategyParallel, Assignments: []types.Assignment{
		{WorkerID: "architect", Kind: "architect"},
		{WorkerID: "backend", Kind: "backend"},
	}}
	got, err = Finalize(own, StrategySequential, kinds, 8)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if got.Strategy != StrategyParallel || len(depsOf(got, "backend")) != 0 {
		t.Errorf("plan strategy was overridden: %+v", got)
	}
}

func TestParseYAML(t *testing.T) {
	doc := `
strategy: hybrid
workers:
  - worker: architect
    kind: architect
    focus: Map the module boundaries
  - worker: backend
    kind: backend
    focus: Review the storage layer
    depends_on: [architect]
`
	p, err := ParseYAML([]byte(doc))
	if err != nil {
		t.Fatalf("ParseYAML failed: %v", err)
	}
	if p.Strategy != StrategyHybrid {
		t.Errorf("Strategy = %q", p.Strategy)
	}
	if len(p.Assignments) != 2 || p.Assignments[1].Focus != "Review the storage layer" {
		t.Errorf("Assignments = %+v", p.Assignments)
	}
	if deps := depsOf(p, "backend"); !slices.Equal(deps, []string{"architect"}) {
		t.Errorf("backend depends on %v", deps)
	}
}

func TestParseYAML_Rejects(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown field": "workers:\n  - worker: a\n    role: x\n",
		"not yaml":      "workers: [",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseYAML([]byte(doc)); !errors.Is(err, errors.ErrPlanInvalid) {
				t.Errorf("err = %v, want ErrPlanInvalid", err)
			}
		})
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	doc := "workers:\n  - worker: tester\n    kind: tester\n    focus: Cover the API\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := (&File{Path: path}).Plan(context.Background(), "ignored", kinds)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if got := p.WorkerIDs(); !slices.Equal(got, []string{"tester"}) {
		t.Errorf("WorkerIDs = %v", got)
	}

	if _, err := (&File{Path: filepath.Join(t.TempDir(), "missing.yaml")}).Plan(context.Background(), "", nil); err == nil {
		t.Error("expected error for missing plan file")
	}
}

func oracleReturning(text string, err error) textgen.Generator {
	return textgen.Func(func(_ context.Context, _ textgen.Request) (*textgen.Response, error) {
		if err != nil {
			return nil, err
		}
		return &textgen.Response{Text: text}, nil
	})
}

func TestOracle(t *testing.T) {
	var prompt string
	gen := textgen.Func(func(_ context.Context, req textgen.Request) (*textgen.Response, error) {
		prompt = req.Prompt
		return &textgen.Response{Text: "Here is the plan:\n```json\n" +
			`{"strategy": "sequential", "workers": [` +
			`{"worker": "architect", "kind": "architect", "focus": "boundaries"},` +
			`{"worker": "tester", "kind": "tester", "focus": "coverage", "depends_on": ["architect"]}]}` +
			"\n```"}, nil
	})

	p, err := (&Oracle{Generator: gen}).Plan(context.Background(), "audit the cache layer", kinds)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if p.Strategy != StrategySequential {
		t.Errorf("Strategy = %q", p.Strategy)
	}
	if got := p.WorkerIDs(); !slices.Equal(got, []string{"architect", "tester"}) {
		t.Errorf("WorkerIDs = %v", got)
	}
	if !strings.Contains(prompt, "audit the cache layer") || !strings.Contains(prompt, "- backend") {
		t.Errorf("prompt missing task or kinds:\n%s", prompt)
	}
}

func TestOracle_FallsBackToStatic(t *testing.T) {
	tests := []struct {
		name string
		gen  textgen.Generator
	}{
		{"generation error", oracleReturning("", errors.ErrTimeout)},
		{"no json", oracleReturning("I cannot help with that.", nil)},
		{"unknown kind", oracleReturning(`{"workers": [{"worker": "ops", "kind": "devops", "focus": "x"}]}`, nil)},
		{"cycle", oracleReturning(`{"workers": [`+
			`{"worker": "architect", "kind": "architect", "depends_on": ["tester"]},`+
			`{"worker": "tester", "kind": "tester", "depends_on": ["architect"]}]}`, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := (&Oracle{Generator: tt.gen}).Plan(context.Background(), "task", kinds)
			if err != nil {
				t.Fatalf("Plan failed: %v", err)
			}
			if got := p.WorkerIDs(); !slices.Equal(got, kinds) {
				t.Errorf("WorkerIDs = %v, want static plan %v", got, kinds)
			}
		})
	}
}

func TestOracle_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := oracleReturning("", context.Canceled)
	if _, err := (&Oracle{Generator: gen}).Plan(ctx, "task", kinds); err == nil {
		t.Error("expected error when context is canceled")
	}
}

func TestNew(t *testing.T) {
	gen := oracleReturning("{}", nil)
	tests := []struct {
		mode    string
		gen     textgen.Generator
		want    string
		wantErr bool
	}{
		{"static", nil, "*planner.Static", false},
		{"file", nil, "*planner.File", false},
		{"oracle", gen, "*planner.Oracle", false},
		{"oracle", nil, "", true},
		{"dream", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			p, err := New(config.PlannerConfig{Mode: tt.mode, PlanFile: "plan.yaml", MaxWorkers: 4}, tt.gen, nil)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if got := fmt.Sprintf("%T", p); got != tt.want {
				t.Errorf("type = %s, want %s", got, tt.want)
			}
		})
	}
}

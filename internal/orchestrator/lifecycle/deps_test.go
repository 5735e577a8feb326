package lifecycle

import (
	"slices"
	"testing"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
)

func TestOrder(t *testing.T) {
	assignments := []types.Assignment{
		{WorkerID: "tester", DependsOn: []string{"backend", "frontend"}},
		{WorkerID: "frontend", DependsOn: []string{"architect"}},
		{WorkerID: "backend", DependsOn: []string{"architect"}},
		{WorkerID: "architect"},
		{WorkerID: "analyzer"},
	}

	got, err := Order(assignments)
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}
	want := []string{"analyzer", "architect", "backend", "frontend", "tester"}
	if !slices.Equal(got, want) {
		t.Errorf("Order = %v, want %v", got, want)
	}
}

func TestOrder_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		assignments []types.Assignment
		wantErr     error
	}{
		{
			name:        "duplicate id",
			assignments: []types.Assignment{{WorkerID: "a"}, {WorkerID: "a"}},
			wantErr:     errors.ErrPlanInvalid,
		},
		{
			name:        "invalid id",
			assignments: []types.Assignment{{WorkerID: "Bad Id"}},
			wantErr:     errors.ErrPlanInvalid,
		},
		{
			name:        "unknown dependency",
			assignments: []types.Assignment{{WorkerID: "a", DependsOn: []string{"ghost"}}},
			wantErr:     errors.ErrPlanInvalid,
		},
		{
			name:        "self dependency",
			assignments: []types.Assignment{{WorkerID: "a", DependsOn: []string{"a"}}},
			wantErr:     errors.ErrDependencyCycle,
		},
		{
			name: "cycle",
			assignments: []types.Assignment{
				{WorkerID: "a", DependsOn: []string{"c"}},
				{WorkerID: "b", DependsOn: []string{"a"}},
				{WorkerID: "c", DependsOn: []string{"b"}},
				{WorkerID: "d"},
			},
			wantErr: errors.ErrDependencyCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Order(tt.assignments)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Order error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOrder_CycleNamesWorkers(t *testing.T) {
	_, err := Order([]types.Assignment{
		{WorkerID: "a", DependsOn: []string{"b"}},
		{WorkerID: "b", DependsOn: []string{"a"}},
		{WorkerID: "c"},
	})
	var planErr *errors.PlanError
	if !errors.As(err, &planErr) {
		t.Fatalf("error %v is not a PlanError", err)
	}
	if !slices.Equal(planErr.WorkerIDs, []string{"a", "b"}) {
		t.Errorf("WorkerIDs = %v, want [a b]", planErr.WorkerIDs)
	}
}

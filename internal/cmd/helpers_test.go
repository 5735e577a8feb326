package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
)

func TestFilterWorkers(t *testing.T) {
	state := &types.State{
		SessionID: "s",
		Workers: map[string]*types.WorkerRecord{
			"backend":  {ID: "backend"},
			"frontend": {ID: "frontend"},
			"tester":   {ID: "tester"},
		},
	}

	tests := []struct {
		pattern string
		want    []string
	}{
		{"", []string{"backend", "frontend", "tester"}},
		{"*end", []string{"backend", "frontend"}},
		{"test*", []string{"tester"}},
		{"{tester,backend}", []string{"backend", "tester"}},
		{"devops", nil},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := filterWorkers(state, tt.pattern)
			if err != nil {
				t.Fatalf("filterWorkers: %v", err)
			}
			ids := got.WorkerIDs()
			if len(ids) != len(tt.want) {
				t.Fatalf("workers = %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Errorf("workers = %v, want %v", ids, tt.want)
					break
				}
			}
		})
	}

	if len(state.Workers) != 3 {
		t.Error("filterWorkers modified its input")
	}
}

func TestFilterWorkers_InvalidPattern(t *testing.T) {
	_, err := filterWorkers(&types.State{}, "[")
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestOneLine(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"multi\nline\t task", 40, "multi line task"},
		{"abcdefghij", 8, "abcde..."},
		{"ünïcödé task", 7, "ünïc..."},
	}
	for _, tt := range tests {
		if got := oneLine(tt.in, tt.n); got != tt.want {
			t.Errorf("oneLine(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestFinishMonitor_FailedSessionExitCode(t *testing.T) {
	tests := []struct {
		kind types.FailureKind
		want int
	}{
		{types.FailureComplianceViolation, errors.ExitComplianceFault},
		{types.FailureIncompleteOutput, errors.ExitAuditFailed},
		{types.FailureStartupTimeout, errors.ExitFailure},
		{types.FailureWorkerFailed, errors.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			state := types.NewState("20261019T120000Z-abcd1234")
			state.Phase = types.PhaseFailed
			state.FailureReason = "worker backend escalated"
			state.Workers["backend"] = &types.WorkerRecord{
				ID: "backend", Status: types.StatusFailed, FailureKind: tt.kind, Escalated: true,
			}

			out := new(bytes.Buffer)
			cmd := &cobra.Command{}
			cmd.SetOut(out)
			err := finishMonitor(cmd, nil, nil, state, true)
			if got := errors.ExitCode(err); got != tt.want {
				t.Errorf("exit code = %d (%v), want %d", got, err, tt.want)
			}
			if !strings.Contains(out.String(), "failed: worker backend escalated") {
				t.Errorf("output = %q", out.String())
			}
		})
	}
}

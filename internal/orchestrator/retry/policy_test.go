package retry

import (
	"strings"
	"testing"

	"github.com/Iron-Ham/hivemind/internal/config"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.MaxRespawns != 1 {
		t.Errorf("MaxRespawns = %d, want 1", p.MaxRespawns)
	}
	for _, kind := range []types.FailureKind{
		types.FailureStartupTimeout, types.FailureComplianceViolation,
		types.FailureIncompleteOutput, types.FailureWorkerFailed,
	} {
		if !p.Eligible(kind) {
			t.Errorf("Eligible(%s) = false", kind)
		}
	}
}

func TestDecide(t *testing.T) {
	failed := func(kind types.FailureKind, attempts int) *types.WorkerRecord {
		return &types.WorkerRecord{
			ID:            "w",
			Status:        types.StatusFailed,
			FailureKind:   kind,
			FailureReason: string(kind) + ": boom",
			Attempts:      attempts,
		}
	}

	tests := []struct {
		name   string
		policy Policy
		worker *types.WorkerRecord
		want   Action
	}{
		{"running worker", DefaultPolicy(), &types.WorkerRecord{Status: types.StatusRunning}, ActionNone},
		{"completed worker", DefaultPolicy(), &types.WorkerRecord{Status: types.StatusCompleted}, ActionNone},
		{"first timeout", DefaultPolicy(), failed(types.FailureStartupTimeout, 0), ActionRespawn},
		{"second timeout", DefaultPolicy(), failed(types.FailureStartupTimeout, 1), ActionEscalate},
		{"zero budget", Policy{Reasons: []types.FailureKind{types.FailureWorkerFailed}}, failed(types.FailureWorkerFailed, 0), ActionEscalate},
		{"ineligible kind", Policy{MaxRespawns: 3, Reasons: []types.FailureKind{types.FailureStartupTimeout}}, failed(types.FailureIncompleteOutput, 0), ActionEscalate},
		{"larger budget", Policy{MaxRespawns: 3, Reasons: []types.FailureKind{types.FailureWorkerFailed}}, failed(types.FailureWorkerFailed, 2), ActionRespawn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.policy.Decide(tt.worker)
			if got.Action != tt.want {
				t.Errorf("Decide() = %s (%s), want %s", got.Action, got.Reason, tt.want)
			}
		})
	}
}

func TestDecide_EscalatedWorkerIsLeftAlone(t *testing.T) {
	w := &types.WorkerRecord{Status: types.StatusFailed, FailureKind: types.FailureWorkerFailed, Escalated: true}
	if got := DefaultPolicy().Decide(w); got.Action != ActionNone {
		t.Errorf("Decide() = %s, want none", got.Action)
	}
}

func TestDecide_EscalationReasonCarriesFailure(t *testing.T) {
	w := &types.WorkerRecord{
		Status:        types.StatusFailed,
		FailureKind:   types.FailureStartupTimeout,
		FailureReason: "StartupTimeout: no worker_spawned within the startup grace window",
		Attempts:      1,
	}
	got := DefaultPolicy().Decide(w)
	if !strings.Contains(got.Reason, "budget exhausted") || !strings.Contains(got.Reason, "StartupTimeout") {
		t.Errorf("Reason = %q", got.Reason)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default().Coordination
	cfg.MaxRespawns = 4
	cfg.RespawnReasons = []string{"worker_failed"}

	p := FromConfig(cfg)
	if p.MaxRespawns != 4 || !p.Eligible(types.FailureWorkerFailed) || p.Eligible(types.FailureStartupTimeout) {
		t.Errorf("FromConfig = %+v", p)
	}
	if got := p.Remaining(&types.WorkerRecord{Attempts: 5}); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}
}

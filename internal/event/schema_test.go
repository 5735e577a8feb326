package event

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr error
	}{
		{"worker event by worker", New(WorkerSpawned, "analyzer", nil), nil},
		{"notes with path", New(NotesCreated, "analyzer", map[string]any{KeyPath: "notes/analyzer.md"}), nil},
		{"notes without path", New(NotesCreated, "analyzer", nil), ErrMissingDetail},
		{"empty reason", New(WorkerFailed, "analyzer", map[string]any{KeyReason: ""}), ErrMissingDetail},
		{"queen verdict", New(AuditPassed, QueenAgent, map[string]any{KeyWorker: "analyzer"}), nil},
		{"verdict by worker", New(AuditPassed, "analyzer", map[string]any{KeyWorker: "analyzer"}), ErrWrongAgent},
		{"lifecycle by queen", New(WorkerSpawned, QueenAgent, nil), ErrWrongAgent},
		{"no agent", New(WorkerSpawned, "", nil), ErrWrongAgent},
		{"unknown type", New("backend_analysis_started", "backend", nil), ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.event)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTypesNeverEncodeAgent(t *testing.T) {
	kinds := []string{"analyzer", "architect", "backend", "devops", "frontend", "researcher", "tester", "queen", "scribe"}
	for _, typ := range Types() {
		for _, kind := range kinds {
			if strings.Contains(string(typ), kind) {
				t.Errorf("event type %q encodes agent kind %q", typ, kind)
			}
		}
	}
}

func TestDetailString(t *testing.T) {
	e := New(WorkerFailed, "a", map[string]any{KeyReason: "boom", KeyAttempt: 2})
	if got, ok := e.DetailString(KeyReason); !ok || got != "boom" {
		t.Errorf("DetailString(reason) = %q, %v", got, ok)
	}
	if _, ok := e.DetailString(KeyAttempt); ok {
		t.Error("DetailString on non-string value reported ok")
	}
	if _, ok := e.DetailString("missing"); ok {
		t.Error("DetailString on missing key reported ok")
	}
}

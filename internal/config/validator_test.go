package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"zero grace", func(c *Config) { c.Coordination.StartupGraceSeconds = 0 }, "coordination.startup_grace_seconds"},
		{"fast poll", func(c *Config) { c.Coordination.PollIntervalMs = 1 }, "coordination.poll_interval_ms"},
		{"negative respawns", func(c *Config) { c.Coordination.MaxRespawns = -1 }, "coordination.max_respawns"},
		{"unknown respawn reason", func(c *Config) { c.Coordination.RespawnReasons = []string{"boredom"} }, "coordination.respawn_reasons"},
		{"no retries", func(c *Config) { c.Coordination.StateUpdateRetries = 0 }, "coordination.state_update_retries"},
		{"no kinds", func(c *Config) { c.Worker.Kinds = nil }, "worker.kinds"},
		{"bad kind", func(c *Config) { c.Worker.Kinds = []string{"Backend Team"} }, "worker.kinds"},
		{"bad strategy", func(c *Config) { c.Planner.Strategy = "chaotic" }, "planner.strategy"},
		{"file mode without file", func(c *Config) { c.Planner.Mode = "file" }, "planner.plan_file"},
		{"bad provider", func(c *Config) { c.TextGen.Provider = "oracle" }, "textgen.provider"},
		{"bridge without url", func(c *Config) { c.TextGen.Provider = "bridge"; c.TextGen.Endpoint = "localhost" }, "textgen.endpoint"},
		{"openai without model", func(c *Config) { c.TextGen.Provider = "openai"; c.TextGen.Model = "" }, "textgen.model"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"fast refresh", func(c *Config) { c.TUI.RefreshMs = 1 }, "tui.refresh_ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if len(errs) != 1 {
				t.Fatalf("Validate() returned %d errors, want 1: %v", len(errs), errs)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.wantField)
			}
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	single := ValidationErrors{{Field: "a", Value: 1, Message: "bad"}}
	if got, want := single.Error(), "a: bad (got: 1)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	multi := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: 2, Message: "worse"},
	}
	if got := multi.Error(); !strings.HasPrefix(got, "2 validation errors:") {
		t.Errorf("Error() = %q, want prefix %q", got, "2 validation errors:")
	}
}

func TestIsValidWorkerID(t *testing.T) {
	for id, want := range map[string]bool{
		"backend":   true,
		"tester-2":  true,
		"api_proxy": true,
		"Backend":   false,
		"2fast":     false,
		"":          false,
		"a/b":       false,
	} {
		if got := IsValidWorkerID(id); got != want {
			t.Errorf("IsValidWorkerID(%q) = %v, want %v", id, got, want)
		}
	}
}

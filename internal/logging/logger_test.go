package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNewLogger(t *testing.T) {
	t.Run("creates debug.log in session directory", func(t *testing.T) {
		dir := t.TempDir()

		logger, err := NewLogger(dir, Options{Level: LevelDebug})
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer func() { _ = logger.Close() }()

		if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
			t.Errorf("debug.log was not created: %v", err)
		}
	})

	t.Run("writes to stderr when sessionDir is empty", func(t *testing.T) {
		logger, err := NewLogger("", Options{Level: LevelInfo})
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		if logger.out != nil {
			t.Error("expected no file writer when sessionDir is empty")
		}
		if err := logger.Close(); err != nil {
			t.Errorf("Close() = %v, want nil", err)
		}
	})
}

func TestLogger_LevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, Options{Level: LevelWarn})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")
	_ = logger.Close()

	lines := readLines(t, filepath.Join(dir, FileName))
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0]["msg"] != "warn message" || lines[1]["msg"] != "error message" {
		t.Errorf("unexpected messages: %v, %v", lines[0]["msg"], lines[1]["msg"])
	}
}

func TestLogger_ContextPropagation(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, Options{Level: LevelDebug})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	child := logger.WithSession("s1").WithWorker("backend").WithPhase("monitor").With("attempt", 2)
	child.Info("respawning")
	logger.Info("plain")
	_ = logger.Close()

	lines := readLines(t, filepath.Join(dir, FileName))
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	first := lines[0]
	for key, want := range map[string]any{
		"session_id": "s1",
		"worker_id":  "backend",
		"phase":      "monitor",
		"attempt":    float64(2),
	} {
		if first[key] != want {
			t.Errorf("%s = %v, want %v", key, first[key], want)
		}
	}
	if _, ok := lines[1]["worker_id"]; ok {
		t.Error("parent logger inherited child attributes")
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.WithWorker("x").Error("ignored")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"Error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

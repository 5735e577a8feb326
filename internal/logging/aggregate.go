package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LogEntry is one parsed debug.log line.
type LogEntry struct {
	Timestamp time.Time      `json:"time"`
	Level     string         `json:"level"`
	Message   string         `json:"msg"`
	SessionID string         `json:"session_id,omitempty"`
	WorkerID  string         `json:"worker_id,omitempty"`
	Phase     string         `json:"phase,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// LogFilter selects log entries. Zero-valued fields do not filter.
type LogFilter struct {
	// Level keeps entries at or above this level (DEBUG < INFO < WARN < ERROR).
	Level           string
	Since           time.Time
	WorkerID        string
	Phase           string
	MessageContains string
}

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

var standardFields = map[string]bool{
	"time":       true,
	"level":      true,
	"msg":        true,
	"session_id": true,
	"worker_id":  true,
	"phase":      true,
}

// AggregateLogs parses {sessionDir}/debug.log, skipping malformed lines.
// Entries are returned sorted by timestamp.
func AggregateLogs(sessionDir string) ([]LogEntry, error) {
	file, err := os.Open(filepath.Join(sessionDir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no log file found in session directory: %w", err)
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var entries []LogEntry
	scanner := bufio.NewScanner(file)
	const maxScanTokenSize = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := parseLogEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

func parseLogEntry(line string) (LogEntry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogEntry{}, fmt.Errorf("invalid JSON: %w", err)
	}

	entry := LogEntry{Attrs: make(map[string]any)}
	if ts, ok := raw["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			entry.Timestamp = t
		}
	}
	entry.Level, _ = raw["level"].(string)
	entry.Message, _ = raw["msg"].(string)
	entry.SessionID, _ = raw["session_id"].(string)
	entry.WorkerID, _ = raw["worker_id"].(string)
	entry.Phase, _ = raw["phase"].(string)

	for k, v := range raw {
		if !standardFields[k] {
			entry.Attrs[k] = v
		}
	}
	return entry, nil
}

// FilterLogs returns the entries matching every set criterion.
func FilterLogs(entries []LogEntry, filter LogFilter) []LogEntry {
	var filtered []LogEntry
	for _, entry := range entries {
		if matchesFilter(entry, filter) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

func matchesFilter(entry LogEntry, filter LogFilter) bool {
	if filter.Level != "" {
		want, okWant := levelOrder[ParseLevel(filter.Level)]
		got, okGot := levelOrder[entry.Level]
		if okWant && okGot && got < want {
			return false
		}
	}
	if !filter.Since.IsZero() && entry.Timestamp.Before(filter.Since) {
		return false
	}
	if filter.WorkerID != "" && entry.WorkerID != filter.WorkerID {
		return false
	}
	if filter.Phase != "" && entry.Phase != filter.Phase {
		return false
	}
	if filter.MessageContains != "" && !strings.Contains(entry.Message, filter.MessageContains) {
		return false
	}
	return true
}

// WriteText renders entries one per line:
// [TIMESTAMP] LEVEL - MESSAGE (context) {attrs}
func WriteText(w io.Writer, entries []LogEntry) error {
	for _, entry := range entries {
		parts := []string{
			fmt.Sprintf("[%s]", entry.Timestamp.Format("2006-01-02 15:04:05.000")),
			entry.Level,
			"-",
			entry.Message,
		}

		var ctx []string
		if entry.WorkerID != "" {
			ctx = append(ctx, "worker="+entry.WorkerID)
		}
		if entry.Phase != "" {
			ctx = append(ctx, "phase="+entry.Phase)
		}
		if len(ctx) > 0 {
			parts = append(parts, fmt.Sprintf("(%s)", strings.Join(ctx, ", ")))
		}
		if len(entry.Attrs) > 0 {
			attrs, _ := json.Marshal(entry.Attrs)
			parts = append(parts, string(attrs))
		}

		if _, err := fmt.Fprintln(w, strings.Join(parts, " ")); err != nil {
			return fmt.Errorf("failed to write text entry: %w", err)
		}
	}
	return nil
}

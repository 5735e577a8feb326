package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// File and directory names inside a session directory.
const (
	WorkspaceDir   = ".hive"
	SessionsDir    = "sessions"
	StateFileName  = "state.json"
	EventsFileName = "events.jsonl"
	NotesDir       = "notes"
	ResultsDir     = "results"

	stateLockName   = "state.lock"
	eventsLockName  = "events.lock"
	monitorLockName = "monitor.lock"
	synthLockName   = "synthesis.lock"
)

// GetSessionsDir returns the directory holding every session under baseDir.
func GetSessionsDir(baseDir string) string {
	return filepath.Join(baseDir, WorkspaceDir, SessionsDir)
}

// NewSessionID returns a time-prefixed id that sorts by creation time:
// 20261019T150405Z-1a2b3c4d.
func NewSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s", now.UTC().Format("20060102T150405Z"), suffix)
}

// ValidateID rejects ids that would escape the sessions directory.
func ValidateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid session id %q", id)
	}
	return nil
}

// atomicWriteFile writes to a temp file in the same directory and renames it
// over path so readers never observe a partial document.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

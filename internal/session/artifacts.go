package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Iron-Ham/hivemind/internal/config"
	"github.com/Iron-Ham/hivemind/internal/errors"
)

// ArtifactKind selects one of a worker's two required outputs.
type ArtifactKind int

const (
	// ArtifactNotes is the free-form narrative report.
	ArtifactNotes ArtifactKind = iota
	// ArtifactResult is the structured result record.
	ArtifactResult
)

// RelPath returns the session-relative path of a worker's artifact.
func (k ArtifactKind) RelPath(workerID string) string {
	if k == ArtifactResult {
		return filepath.ToSlash(filepath.Join(ResultsDir, workerID+".json"))
	}
	return filepath.ToSlash(filepath.Join(NotesDir, workerID+".md"))
}

// WriteArtifact atomically writes a worker artifact and returns its
// session-relative path, which is what notes_created and json_created carry.
func (s *Store) WriteArtifact(id, workerID string, kind ArtifactKind, data []byte) (string, error) {
	if err := s.requireSession(id, "write artifact"); err != nil {
		return "", err
	}
	if !config.IsValidWorkerID(workerID) {
		return "", fmt.Errorf("%w: worker id %q", errors.ErrInvalidInput, workerID)
	}

	rel := kind.RelPath(workerID)
	path := filepath.Join(s.Dir(id), filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := atomicWriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return rel, nil
}

// ReadArtifact reads a file referenced by a session-relative path. Paths that
// leave the session directory are rejected.
func (s *Store) ReadArtifact(id, rel string) ([]byte, error) {
	path, err := s.resolve(id, rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// StatArtifact returns file info for a session-relative path.
func (s *Store) StatArtifact(id, rel string) (os.FileInfo, error) {
	path, err := s.resolve(id, rel)
	if err != nil {
		return nil, err
	}
	return os.Stat(path)
}

// WriteOutput atomically writes a session-level file such as the synthesis
// artifact and returns its session-relative path.
func (s *Store) WriteOutput(id, name string, data []byte) (string, error) {
	if err := s.requireSession(id, "write output"); err != nil {
		return "", err
	}
	path, err := s.resolve(id, name)
	if err != nil {
		return "", err
	}
	if err := atomicWriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return filepath.ToSlash(name), nil
}

func (s *Store) resolve(id, rel string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	if rel == "" || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: artifact path %q must be session-relative", errors.ErrInvalidInput, rel)
	}
	root := s.Dir(id)
	path := filepath.Join(root, filepath.FromSlash(rel))
	if path != root && !strings.HasPrefix(path, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: artifact path %q escapes the session", errors.ErrInvalidInput, rel)
	}
	return path, nil
}

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/event"
	"github.com/Iron-Ham/hivemind/internal/logging"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
)

// Store is the filesystem-backed session store. A Store holds no session
// data in memory, so any number of processes may open one on the same base
// directory.
type Store struct {
	baseDir string
	dir     string
	retries int
	backoff time.Duration
	logger  *logging.Logger
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithRetry sets the compare-and-swap retry budget and base backoff used by
// UpdateState.
func WithRetry(retries int, backoff time.Duration) Option {
	return func(s *Store) {
		if retries > 0 {
			s.retries = retries
		}
		if backoff >= 0 {
			s.backoff = backoff
		}
	}
}

// WithLogger sets the logger used for store diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used to stamp sessions.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore opens the session store under baseDir/.hive/sessions, creating
// the directory if needed.
func NewStore(baseDir string, opts ...Option) (*Store, error) {
	s := &Store{
		baseDir: baseDir,
		dir:     GetSessionsDir(baseDir),
		retries: 8,
		backoff: 10 * time.Millisecond,
		logger:  logging.NopLogger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return s, nil
}

// BaseDir returns the workspace root the store was opened on.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Dir returns the directory of session id.
func (s *Store) Dir(id string) string {
	return filepath.Join(s.dir, id)
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Exists reports whether session id has been created.
func (s *Store) Exists(id string) bool {
	if ValidateID(id) != nil {
		return false
	}
	_, err := os.Stat(filepath.Join(s.Dir(id), StateFileName))
	return err == nil
}

func (s *Store) requireSession(id, op string) error {
	if !s.Exists(id) {
		return errors.NewSessionError(op, errors.ErrSessionNotFound).WithSessionID(id)
	}
	return nil
}

// Create makes a new session directory with an initial state document and
// records session_created in its event log. It fails with ErrAlreadyExists
// if id is taken.
func (s *Store) Create(ctx context.Context, id, task string) (*types.State, error) {
	if err := ValidateID(id); err != nil {
		return nil, errors.NewSessionError("create session", errors.Join(errors.ErrInvalidInput, err)).WithSessionID(id)
	}

	dir := s.Dir(id)
	if err := os.Mkdir(dir, 0755); err != nil {
		if os.IsExist(err) {
			return nil, errors.NewSessionError("create session", errors.ErrAlreadyExists).WithSessionID(id)
		}
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	state, err := s.initSession(ctx, dir, id, task)
	if err != nil {
		// A half-created directory would make the id unusable.
		_ = os.RemoveAll(dir)
		return nil, err
	}

	s.logger.Info("session created", "session_id", id)
	return state, nil
}

// initSession populates a freshly created session directory.
func (s *Store) initSession(ctx context.Context, dir, id, task string) (*types.State, error) {
	for _, sub := range []string{NotesDir, ResultsDir} {
		if err := os.Mkdir(filepath.Join(dir, sub), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", sub, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, EventsFileName), nil, 0644); err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	state := types.NewState(id)
	state.Task = task
	state.CreatedAt = s.now()
	state.Revision = 1

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := atomicWriteFile(filepath.Join(dir, StateFileName), data, 0644); err != nil {
		return nil, err
	}

	created := event.New(event.SessionCreated, event.QueenAgent, map[string]any{event.KeyTask: task})
	created.Timestamp = state.CreatedAt
	if _, err := s.Append(ctx, id, created); err != nil {
		return nil, err
	}
	return state, nil
}

// MonitorLock returns the lock that keeps a single monitor per session.
func (s *Store) MonitorLock(id string) *FileLock {
	return NewFileLock(s.Dir(id), monitorLockName)
}

// SynthesisLock returns the lock that serializes synthesis of a session.
func (s *Store) SynthesisLock(id string) *FileLock {
	return NewFileLock(s.Dir(id), synthLockName)
}

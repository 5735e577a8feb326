package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
)

// ErrNoChange may be returned by an UpdateState mutation to finish without
// writing. UpdateState then returns the unmodified snapshot and a nil error.
var ErrNoChange = errors.New("no state change")

// Mutation edits a snapshot of the state document. It may run more than once
// when concurrent writers force a retry, so it must not have side effects
// outside the snapshot.
type Mutation func(*types.State) error

// LoadState reads the current state document of session id.
func (s *Store) LoadState(id string) (*types.State, error) {
	if err := s.requireSession(id, "load state"); err != nil {
		return nil, err
	}
	return s.readState(id)
}

func (s *Store) readState(id string) (*types.State, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(id), StateFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewSessionError("load state", errors.ErrSessionNotFound).WithSessionID(id)
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	var state types.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.NewSessionError("decode state", errors.Join(errors.ErrSessionCorrupted, err)).WithSessionID(id)
	}
	if state.Workers == nil {
		state.Workers = make(map[string]*types.WorkerRecord)
	}
	return &state, nil
}

// UpdateState applies mutate to the state document with optimistic
// concurrency. The mutation runs on a snapshot without holding any lock;
// the result is written under state.lock only if the document's revision is
// still the one the snapshot was read at. On a mismatch the read, mutate and
// write cycle is retried with exponential backoff. When the retry budget is
// exhausted UpdateState fails with ErrConcurrentModification.
func (s *Store) UpdateState(ctx context.Context, id string, mutate Mutation) (*types.State, error) {
	if err := s.requireSession(id, "update state"); err != nil {
		return nil, err
	}
	log := s.logger.WithSession(id)

	for attempt := 0; attempt < s.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		snapshot, err := s.readState(id)
		if err != nil {
			return nil, err
		}
		base := snapshot.Revision

		if err := mutate(snapshot); err != nil {
			if errors.Is(err, ErrNoChange) {
				return snapshot, nil
			}
			return nil, err
		}

		written, err := s.compareAndSwap(id, base, snapshot)
		if err != nil {
			return nil, err
		}
		if written {
			return snapshot, nil
		}

		log.Debug("state revision changed during update, retrying",
			"base_revision", base, "attempt", attempt+1)
		if err := sleepCtx(ctx, s.backoffFor(attempt)); err != nil {
			return nil, err
		}
	}

	log.Warn("state update retry budget exhausted", "retries", s.retries)
	return nil, errors.NewSessionError(
		fmt.Sprintf("state update gave up after %d attempts", s.retries),
		errors.ErrConcurrentModification,
	).WithSessionID(id).WithRetryable(true)
}

// compareAndSwap writes next if the on-disk revision still equals base.
func (s *Store) compareAndSwap(id string, base int64, next *types.State) (bool, error) {
	lock := NewFileLock(s.Dir(id), stateLockName)
	if err := lock.Lock(); err != nil {
		return false, errors.NewSessionError("lock state", err).WithSessionID(id).WithRetryable(true)
	}
	defer func() { _ = lock.Unlock() }()

	current, err := s.readState(id)
	if err != nil {
		return false, err
	}
	if current.Revision != base {
		return false, nil
	}

	next.Revision = base + 1
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := atomicWriteFile(filepath.Join(s.Dir(id), StateFileName), data, 0644); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) backoffFor(attempt int) time.Duration {
	d := s.backoff << attempt
	if limit := 500 * time.Millisecond; d > limit {
		d = limit
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

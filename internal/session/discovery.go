package session

import (
	"os"
	"sort"
	"time"

	"github.com/Iron-Ham/hivemind/internal/orchestrator/types"
)

// Info contains summary information about a session
type Info struct {
	ID          string      `json:"id"`
	Task        string      `json:"task"`
	Created     time.Time   `json:"created"`
	Phase       types.Phase `json:"phase"`
	WorkerCount int         `json:"worker_count"`
	Archived    bool        `json:"archived"`
	Monitored   bool        `json:"monitored"`
	SessionDir  string      `json:"session_dir"`
}

// List returns every readable session, newest first. Sessions whose state
// cannot be read are skipped.
func (s *Store) List() ([]*Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var sessions []*Info
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := s.Info(entry.Name())
		if err != nil {
			continue
		}
		sessions = append(sessions, info)
	}

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID > sessions[j].ID })
	return sessions, nil
}

// Info returns summary information about one session.
func (s *Store) Info(id string) (*Info, error) {
	state, err := s.LoadState(id)
	if err != nil {
		return nil, err
	}

	info := &Info{
		ID:          id,
		Task:        state.Task,
		Created:     state.CreatedAt,
		Phase:       state.Phase,
		WorkerCount: len(state.Workers),
		Archived:    state.Phase.IsTerminal(),
		SessionDir:  s.Dir(id),
	}

	lock := s.MonitorLock(id)
	if ok, err := lock.TryLock(); err == nil {
		if ok {
			_ = lock.Unlock()
		} else {
			info.Monitored = true
		}
	}
	return info, nil
}

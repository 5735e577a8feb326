package session

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces bursts of appends into one notification.
const watchDebounce = 50 * time.Millisecond

// WatchEvents returns a channel that receives a value whenever the event log
// of session id is written. Notifications are coalesced and the channel never
// blocks the watcher: a pending notification absorbs later ones. The channel
// is closed when ctx is done.
func (s *Store) WatchEvents(ctx context.Context, id string) (<-chan struct{}, error) {
	if err := s.requireSession(id, "watch events"); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory: atomic renames and recreations are only visible there.
	if err := watcher.Add(s.Dir(id)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch session directory: %w", err)
	}

	notify := make(chan struct{}, 1)
	log := s.logger.WithSession(id)

	go func() {
		defer close(notify)
		defer func() { _ = watcher.Close() }()

		debounce := time.NewTimer(watchDebounce)
		if !debounce.Stop() {
			<-debounce.C
		}

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != EventsFileName {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				debounce.Reset(watchDebounce)

			case <-debounce.C:
				select {
				case notify <- struct{}{}:
				default:
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("event log watcher error", "error", err.Error())
			}
		}
	}()

	return notify, nil
}

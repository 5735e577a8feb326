package session

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Iron-Ham/hivemind/internal/errors"
	"github.com/Iron-Ham/hivemind/internal/event"
)

// Cursor is an opaque, monotonic position in a session's event log. The zero
// Cursor is the start of the log.
type Cursor int64

// String encodes the cursor for command-line round trips.
func (c Cursor) String() string {
	return strconv.FormatInt(int64(c), 10)
}

// ParseCursor decodes a cursor produced by Cursor.String.
func ParseCursor(s string) (Cursor, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid cursor %q", s)
	}
	return Cursor(n), nil
}

// Record is one event read from the log together with the cursor positioned
// just after it.
type Record struct {
	Event event.Event
	Next  Cursor
}

// maxLineSize bounds a single event record.
const maxLineSize = 1024 * 1024

// Append durably appends e to the session's event log. Appends from any
// number of processes serialize on events.lock, and the record is fsynced
// before Append returns. The stored timestamp is moved forward if needed so
// the log's timestamps never decrease. It returns the event as written.
func (s *Store) Append(ctx context.Context, id string, e event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return e, err
	}
	if err := s.requireSession(id, "append event"); err != nil {
		return e, err
	}

	dir := s.Dir(id)
	lock := NewFileLock(dir, eventsLockName)
	if err := lock.Lock(); err != nil {
		return e, errors.NewSessionError("lock event log", err).WithSessionID(id).WithRetryable(true)
	}
	defer func() { _ = lock.Unlock() }()

	path := filepath.Join(dir, EventsFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return e, fmt.Errorf("failed to open event log: %w", err)
	}
	defer func() { _ = f.Close() }()

	last, err := lastTimestamp(f)
	if err != nil {
		return e, err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	e.Timestamp = e.Timestamp.UTC()
	if e.Timestamp.Before(last) {
		e.Timestamp = last
	}

	line, err := json.Marshal(e)
	if err != nil {
		return e, fmt.Errorf("failed to marshal event: %w", err)
	}
	if len(line) >= maxLineSize {
		return e, fmt.Errorf("event record exceeds %d bytes", maxLineSize)
	}
	line = append(line, '\n')

	if _, err := f.Write(line); err != nil {
		return e, fmt.Errorf("failed to append event: %w", err)
	}
	if err := f.Sync(); err != nil {
		return e, fmt.Errorf("failed to sync event log: %w", err)
	}
	return e, nil
}

// lastTimestamp returns the timestamp of the final complete record in f.
func lastTimestamp(f *os.File) (time.Time, error) {
	info, err := f.Stat()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to stat event log: %w", err)
	}
	size := info.Size()
	if size == 0 {
		return time.Time{}, nil
	}

	chunk := int64(64 * 1024)
	for {
		if chunk > size {
			chunk = size
		}
		buf := make([]byte, chunk)
		if _, err := f.ReadAt(buf, size-chunk); err != nil && err != io.EOF {
			return time.Time{}, fmt.Errorf("failed to read event log tail: %w", err)
		}

		// Drop a trailing partial line left by a crashed writer.
		end := bytes.LastIndexByte(buf, '\n')
		if end < 0 {
			if chunk == size {
				return time.Time{}, nil
			}
			chunk *= 2
			continue
		}
		buf = buf[:end]
		start := bytes.LastIndexByte(buf, '\n') + 1
		if start == 0 && chunk < size {
			chunk *= 2
			continue
		}

		var tail struct {
			Timestamp time.Time `json:"timestamp"`
		}
		if err := json.Unmarshal(buf[start:], &tail); err != nil {
			return time.Time{}, nil
		}
		return tail.Timestamp, nil
	}
}

// EventReader reads a session's event log from a cursor. Only complete
// records are returned; a record still being written is left for the next
// read. A reader is finite: Next returns io.EOF at the current end of the
// log, and a new reader opened at the last cursor continues from there.
type EventReader struct {
	file   *os.File
	reader *bufio.Reader
	pos    Cursor
	done   bool
	onBad  func(offset Cursor, err error)
}

// OpenEvents opens the event log of session id positioned at since.
func (s *Store) OpenEvents(id string, since Cursor) (*EventReader, error) {
	if err := s.requireSession(id, "read events"); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.Dir(id), EventsFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	if _, err := f.Seek(int64(since), io.SeekStart); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to seek event log: %w", err)
	}

	logger := s.logger.WithSession(id)
	return &EventReader{
		file:   f,
		reader: bufio.NewReaderSize(f, 64*1024),
		pos:    since,
		onBad: func(offset Cursor, err error) {
			logger.Warn("skipping malformed event record", "offset", int64(offset), "error", err.Error())
		},
	}, nil
}

// Next returns the next complete record, or io.EOF.
func (r *EventReader) Next() (Record, error) {
	if r.done {
		return Record{}, io.EOF
	}
	for {
		line, err := r.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// A trailing partial record is not consumed: the cursor
				// still points at its first byte.
				r.done = true
				return Record{}, io.EOF
			}
			return Record{}, fmt.Errorf("failed to read event log: %w", err)
		}

		start := r.pos
		r.pos += Cursor(len(line))

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		var e event.Event
		if err := json.Unmarshal(trimmed, &e); err != nil {
			r.onBad(start, err)
			continue
		}
		return Record{Event: e, Next: r.pos}, nil
	}
}

// Cursor returns the position after the last complete record returned.
func (r *EventReader) Cursor() Cursor {
	return r.pos
}

// Close releases the underlying file.
func (r *EventReader) Close() error {
	return r.file.Close()
}

// ReadEvents returns every complete record after since and the cursor to
// resume from.
func (s *Store) ReadEvents(id string, since Cursor) ([]Record, Cursor, error) {
	r, err := s.OpenEvents(id, since)
	if err != nil {
		return nil, since, err
	}
	defer func() { _ = r.Close() }()

	var records []Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return records, r.Cursor(), nil
		}
		if err != nil {
			return records, r.Cursor(), err
		}
		records = append(records, rec)
	}
}

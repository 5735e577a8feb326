// Package backlog persists follow-up work surfaced during sessions.
//
// Backlog items outlive the session that produced them, so they live in one
// SQLite database per workspace (<root>/.hive/backlog.db) instead of inside a
// session directory. The database runs in WAL mode so `hive backlog list`
// can read while a synthesis run is writing.
package backlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Iron-Ham/hivemind/internal/errors"
)

// ErrItemNotFound is returned when no backlog item has the requested id.
var ErrItemNotFound = errors.New("backlog item not found")

// Status is a backlog item's state.
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

// Item is one follow-up task.
type Item struct {
	ID         int64      `json:"id"`
	SessionID  string     `json:"session_id,omitempty"`
	WorkerID   string     `json:"worker_id,omitempty"`
	Text       string     `json:"text"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Filter narrows List. Zero-valued fields do not filter.
type Filter struct {
	SessionID string
	Status    Status
}

// DB wraps the backlog database.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
	now  func() time.Time
}

// Open opens the database at path, creating parent directories, and applies
// pending migrations.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create backlog directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open backlog database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	db := &DB{conn: conn, path: path, now: time.Now}
	if err := db.Migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations. It is safe to call more
// than once.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var current int
	if err := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Items},
		{2, migrationV2Dedup},
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}
	return nil
}

const migrationV1Items = `
CREATE TABLE IF NOT EXISTS items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL DEFAULT '',
	worker_id TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'open',
	created_at TEXT NOT NULL,
	resolved_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);
CREATE INDEX IF NOT EXISTS idx_items_session ON items(session_id);
`

// Re-running synthesis must not duplicate follow-ups.
const migrationV2Dedup = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_items_origin ON items(session_id, worker_id, text);
`

// Add stores a new open item and returns it with its id. An item with the
// same session, worker and text is returned unchanged instead of duplicated.
func (db *DB) Add(ctx context.Context, item Item) (*Item, error) {
	item.Text = strings.TrimSpace(item.Text)
	if item.Text == "" {
		return nil, fmt.Errorf("%w: backlog item text is empty", errors.ErrInvalidInput)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO items (session_id, worker_id, text, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, item.SessionID, item.WorkerID, item.Text, StatusOpen, formatTime(db.now())); err != nil {
		return nil, fmt.Errorf("insert backlog item: %w", err)
	}

	row := db.conn.QueryRowContext(ctx, `
		SELECT id, session_id, worker_id, text, status, created_at, resolved_at
		FROM items WHERE session_id = ? AND worker_id = ? AND text = ?
	`, item.SessionID, item.WorkerID, item.Text)
	return scanItem(row)
}

// AddAll stores items in one transaction and returns how many were new.
func (db *DB) AddAll(ctx context.Context, items []Item) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}

	added := 0
	created := formatTime(db.now())
	for _, item := range items {
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO items (session_id, worker_id, text, status, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, item.SessionID, item.WorkerID, text, StatusOpen, created)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert backlog item: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit backlog items: %w", err)
	}
	return added, nil
}

// List returns matching items, oldest first.
func (db *DB) List(ctx context.Context, f Filter) ([]Item, error) {
	query := `SELECT id, session_id, worker_id, text, status, created_at, resolved_at FROM items`
	var where []string
	var args []any
	if f.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list backlog items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Resolve marks an item resolved. Resolving a resolved item is a no-op.
func (db *DB) Resolve(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE items SET status = ?, resolved_at = COALESCE(resolved_at, ?) WHERE id = ?
	`, StatusResolved, formatTime(db.now()), id)
	if err != nil {
		return fmt.Errorf("resolve backlog item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrItemNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*Item, error) {
	var (
		item     Item
		status   string
		created  string
		resolved sql.NullString
	)
	if err := s.Scan(&item.ID, &item.SessionID, &item.WorkerID, &item.Text, &status, &created, &resolved); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("scan backlog item: %w", err)
	}
	item.Status = Status(status)
	item.CreatedAt, _ = parseTime(created)
	if resolved.Valid {
		if t, err := parseTime(resolved.String); err == nil {
			item.ResolvedAt = &t
		}
	}
	return &item, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

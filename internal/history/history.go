// Package history stores the per-assistant turn log in SQLite. It is the
// execution-history side of a thread: thread metadata lives in threads.json,
// the turns themselves live here.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/deepagents/deepagents/internal/identity"
)

// DB is a handle to one assistant's turn-history database.
type DB struct {
	db *sql.DB
}

// Turn is one recorded conversation turn.
type Turn struct {
	TurnID    string    `json:"turn_id"`
	ThreadID  string    `json:"thread_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Open opens (and migrates) the history database at path.
func Open(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// RecordTurn appends a turn to a thread's history and returns its ID.
func (d *DB) RecordTurn(threadID, role, content string) (string, error) {
	turnID := identity.GenerateTurnID()
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := d.db.Exec(
		"INSERT INTO turns (turn_id, thread_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)",
		turnID, threadID, role, content, createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert turn: %w", err)
	}
	return turnID, nil
}

// ListTurns returns a thread's turns oldest-first. limit <= 0 means all.
func (d *DB) ListTurns(threadID string, limit int) ([]Turn, error) {
	query := "SELECT turn_id, thread_id, role, content, created_at FROM turns WHERE thread_id = ? ORDER BY created_at ASC"
	args := []any{threadID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var createdAt string
		if err := rows.Scan(&t.TurnID, &t.ThreadID, &t.Role, &t.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse turn timestamp: %w", err)
		}
		t.CreatedAt = ts
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

// CountTurns returns the number of turns recorded for a thread.
func (d *DB) CountTurns(threadID string) (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM turns WHERE thread_id = ?", threadID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count turns: %w", err)
	}
	return count, nil
}

// DeleteThread removes all of a thread's turns. Used by handoff rollback to
// compensate a partially created child thread. Deleting a thread with no
// recorded turns is not an error.
func (d *DB) DeleteThread(threadID string) error {
	if _, err := d.db.Exec("DELETE FROM turns WHERE thread_id = ?", threadID); err != nil {
		return fmt.Errorf("delete thread history: %w", err)
	}
	return nil
}

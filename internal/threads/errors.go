package threads

import (
	"fmt"
	"strings"
	"time"
)

// LockTimeoutError means the advisory file lock could not be acquired within
// the configured wait. Recoverable by caller retry.
type LockTimeoutError struct {
	Path    string
	Timeout time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("store lock %s not acquired within %s (held by another process?)", e.Path, e.Timeout)
}

// CorruptError means threads.json exists but is unreadable or structurally
// wrong. Callers should archive the file and reinitialize rather than delete
// user data.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("thread store %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// NotFoundError means a thread lookup failed. It carries the set of valid IDs
// to aid interactive recovery.
type NotFoundError struct {
	ThreadID string
	ValidIDs []string
}

func (e *NotFoundError) Error() string {
	if len(e.ValidIDs) == 0 {
		return fmt.Sprintf("thread %q not found (no threads exist)", e.ThreadID)
	}
	return fmt.Sprintf("thread %q not found (valid threads: %s)", e.ThreadID, strings.Join(e.ValidIDs, ", "))
}

// StoreError wraps an I/O failure against the persisted store. Not
// recoverable by retry; fail loudly.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("thread store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

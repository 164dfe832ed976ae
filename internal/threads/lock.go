package threads

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var errLocked = errors.New("lock is held by another process")

// lockPollInterval is how often acquisition retries while waiting for a
// contended lock.
const lockPollInterval = 25 * time.Millisecond

// fileLock is a cross-process advisory lock on the store's companion
// .lock file.
type fileLock struct {
	file *os.File
	path string
}

// acquireLock acquires the advisory lock, polling until timeout.
// Returns *LockTimeoutError if the lock stays contended for the whole window.
func acquireLock(lockPath string, timeout time.Duration) (*fileLock, error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600) //nolint:gosec // G304 - path from internal state directory
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		err := flockExclusive(f)
		if err == nil {
			return &fileLock{file: f, path: lockPath}, nil
		}
		if !errors.Is(err, errLocked) {
			_ = f.Close()
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, &LockTimeoutError{Path: lockPath, Timeout: timeout}
		}
		time.Sleep(lockPollInterval)
	}
}

// release releases the lock. Safe to call multiple times.
// The lock file itself is left in place; removing it would race with a
// process that is blocked on the same path.
func (l *fileLock) release() error {
	if l == nil || l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil
	if err := flockUnlock(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("unlock: %w", err)
	}
	return f.Close()
}

//go:build unix

package threads

import (
	"os"
	"syscall"
)

// flockExclusive tries to acquire an exclusive non-blocking lock.
// Returns errLocked if the lock is held by another process.
// The lock is released by the OS when the process dies (even SIGKILL).
func flockExclusive(f *os.File) error {
	err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err == syscall.EWOULDBLOCK {
		return errLocked
	}
	return err
}

// flockUnlock releases a file lock.
func flockUnlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}

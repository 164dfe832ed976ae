//go:build windows

package threads

import (
	"os"
	"syscall"
	"unsafe"
)

var (
	kernel32       = syscall.NewLazyDLL("kernel32.dll")
	procLockFileEx = kernel32.NewProc("LockFileEx")
	procUnlockFile = kernel32.NewProc("UnlockFileEx")
)

const (
	lockfileExclusiveLock   = 0x2
	lockfileFailImmediately = 0x1

	// ERROR_LOCK_VIOLATION; not exported by package syscall.
	errorLockViolation syscall.Errno = 0x21
)

// flockExclusive tries to acquire an exclusive non-blocking lock using
// Windows LockFileEx. Returns errLocked if the lock is held elsewhere.
func flockExclusive(f *os.File) error {
	var overlapped syscall.Overlapped

	r1, _, err := procLockFileEx.Call(
		uintptr(f.Fd()),
		uintptr(lockfileExclusiveLock|lockfileFailImmediately),
		uintptr(0),
		uintptr(1),
		uintptr(0),
		uintptr(unsafe.Pointer(&overlapped)),
	)

	if r1 == 0 {
		if err == errorLockViolation {
			return errLocked
		}
		return err
	}

	return nil
}

// flockUnlock releases a file lock using Windows UnlockFileEx.
func flockUnlock(f *os.File) error {
	var overlapped syscall.Overlapped

	r1, _, err := procUnlockFile.Call(
		uintptr(f.Fd()),
		uintptr(0),
		uintptr(1),
		uintptr(0),
		uintptr(unsafe.Pointer(&overlapped)),
	)

	if r1 == 0 {
		return err
	}

	return nil
}

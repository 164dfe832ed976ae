package threads

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// archiveTimeFormat names corrupt-file archives; UTC, filename-safe.
const archiveTimeFormat = "20060102T150405Z"

// Store persists the threads.json document for one assistant directory.
//
// Every operation takes the cross-process advisory lock, so independently
// launched CLI instances sharing the directory cannot lose updates: Edit
// reads fresh data under the same lock it holds for the write.
type Store struct {
	dir     string
	timeout time.Duration
}

// NewStore creates a store over an assistant state directory.
// timeout bounds lock acquisition; zero means the package default of 5s.
func NewStore(dir string, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Store{dir: dir, timeout: timeout}
}

// Path returns the threads.json path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, "threads.json")
}

// lockPath returns the companion advisory-lock path.
func (s *Store) lockPath() string {
	return s.Path() + ".lock"
}

// Load reads the current document under the lock and returns it.
// A missing file yields an empty default document, not an error.
//
// The returned document is the caller's own copy; mutating it has no effect
// on disk. It may also go stale the moment a concurrent Edit commits —
// callers needing strict freshness must use Edit.
func (s *Store) Load() (*StoreData, error) {
	lock, err := acquireLock(s.lockPath(), s.timeout)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.release() }()

	return s.read()
}

// Edit runs fn on the current document under the lock and atomically
// persists the result.
//
// fn receives freshly-read data and mutates it in place. If fn returns an
// error the file is left untouched and fn's error is returned. The write
// goes to a temp file in the same directory, is fsynced, then renamed over
// threads.json, so a crash mid-write never leaves a partial document.
func (s *Store) Edit(fn func(*StoreData) error) error {
	lock, err := acquireLock(s.lockPath(), s.timeout)
	if err != nil {
		return err
	}
	defer func() { _ = lock.release() }()

	data, err := s.read()
	if err != nil {
		return err
	}

	if err := fn(data); err != nil {
		return err
	}

	return s.write(data)
}

// ArchiveCorruptFile renames an unreadable threads.json aside with a UTC
// timestamp suffix so a fresh store can be initialized without losing
// forensic data. Returns the archive path, or "" if there was no file.
func (s *Store) ArchiveCorruptFile() (string, error) {
	lock, err := acquireLock(s.lockPath(), s.timeout)
	if err != nil {
		return "", err
	}
	defer func() { _ = lock.release() }()

	path := s.Path()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", &StoreError{Op: "stat", Err: err}
	}

	archive := fmt.Sprintf("%s.corrupt.%s", path, time.Now().UTC().Format(archiveTimeFormat))
	if err := os.Rename(path, archive); err != nil {
		return "", &StoreError{Op: "archive", Err: err}
	}
	return archive, nil
}

// read parses threads.json. Caller must hold the lock.
func (s *Store) read() (*StoreData, error) {
	raw, err := os.ReadFile(s.Path()) //nolint:gosec // G304 - path from internal state directory
	if err != nil {
		if os.IsNotExist(err) {
			return &StoreData{Version: StoreVersion, Threads: []*ThreadRecord{}}, nil
		}
		return nil, &StoreError{Op: "read", Err: err}
	}

	var data StoreData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &CorruptError{Path: s.Path(), Err: err}
	}
	if data.Version < 1 {
		return nil, &CorruptError{Path: s.Path(), Err: fmt.Errorf("missing or invalid version field")}
	}
	if data.Threads == nil {
		data.Threads = []*ThreadRecord{}
	}
	return &data, nil
}

// write atomically replaces threads.json. Caller must hold the lock.
// Serialized with 2-space indentation and a trailing newline.
func (s *Store) write(data *StoreData) error {
	if data.Version == 0 {
		data.Version = StoreVersion
	}

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return &StoreError{Op: "marshal", Err: err}
	}
	encoded = append(encoded, '\n')

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return &StoreError{Op: "mkdir", Err: err}
	}

	tmp, err := os.CreateTemp(s.dir, "threads.json.tmp-*")
	if err != nil {
		return &StoreError{Op: "create temp", Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &StoreError{Op: "write temp", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &StoreError{Op: "sync temp", Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &StoreError{Op: "close temp", Err: err}
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		_ = os.Remove(tmpPath)
		return &StoreError{Op: "chmod temp", Err: err}
	}

	if err := os.Rename(tmpPath, s.Path()); err != nil {
		_ = os.Remove(tmpPath)
		return &StoreError{Op: "rename", Err: err}
	}
	return nil
}

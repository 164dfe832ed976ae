package cli

import (
	"errors"
	"log"

	"github.com/deepagents/deepagents/internal/threads"
)

// WithCorruptRecovery runs op; when the store reports corruption it archives
// the unreadable threads.json aside (never deletes it) and retries op once
// against the reinitialized store. Returns the archive path when one was
// created.
//
// Lock timeouts and I/O failures are not retried here: a LockTimeoutError is
// the caller's retry/abort decision, and disk errors should fail loudly.
func WithCorruptRecovery(store *threads.Store, op func() error) (string, error) {
	err := op()
	if err == nil {
		return "", nil
	}

	var corrupt *threads.CorruptError
	if !errors.As(err, &corrupt) {
		return "", err
	}

	archived, archiveErr := store.ArchiveCorruptFile()
	if archiveErr != nil {
		log.Printf("[store] could not archive corrupt file %s: %v", corrupt.Path, archiveErr)
		return "", err
	}
	log.Printf("[store] archived corrupt thread store to %s", archived)

	return archived, op()
}

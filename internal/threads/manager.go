package threads

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/deepagents/deepagents/internal/identity"
)

// createRetries bounds checked-insertion retries on a thread-ID collision.
// With 32 random bits per ID a single retry is already astronomically rare.
const createRetries = 5

// Manager provides the domain operations over a Store: ID generation,
// default-thread bootstrapping, and the current-thread pointer.
//
// The in-process current pointer is only a cache. It is reconciled against
// the persisted pointer inside every transaction, so a concurrent CLI
// invocation switching threads cannot be silently overridden by stale
// in-memory state.
type Manager struct {
	assistantID string
	store       *Store

	mu      sync.Mutex
	current string // cached pointer, revalidated against the store
}

// NewManager creates a manager for one assistant state directory.
func NewManager(assistantID, dir string, lockTimeout time.Duration) *Manager {
	return &Manager{
		assistantID: assistantID,
		store:       NewStore(dir, lockTimeout),
	}
}

// AssistantID returns the assistant this manager serves.
func (m *Manager) AssistantID() string { return m.assistantID }

// Store exposes the underlying store for collaborators that need their own
// transactions (handoff completion flips two records in one Edit).
func (m *Manager) Store() *Store { return m.store }

// CreateOptions configures CreateThread.
type CreateOptions struct {
	Name     string
	ParentID string
	Metadata map[string]any
}

// CreateThread creates a new thread, makes it current, and returns its ID.
// The generated ID is checked against the existing set inside the same
// transaction that inserts it.
func (m *Manager) CreateThread(opts CreateOptions) (string, error) {
	var threadID string
	err := m.store.Edit(func(data *StoreData) error {
		id, err := m.newUniqueID(data)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		data.Threads = append(data.Threads, &ThreadRecord{
			ID:       id,
			Created:  now,
			LastUsed: now,
			ParentID: opts.ParentID,
			Name:     opts.Name,
			Metadata: opts.Metadata,
		})
		data.CurrentThreadID = id
		threadID = id
		return nil
	})
	if err != nil {
		return "", err
	}

	m.setCachedCurrent(threadID)
	return threadID, nil
}

// newUniqueID generates a thread ID not present in data.
func (m *Manager) newUniqueID(data *StoreData) (string, error) {
	for range createRetries {
		id, err := identity.GenerateThreadID(m.assistantID)
		if err != nil {
			return "", err
		}
		if data.Find(id) == nil {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique thread ID after %d attempts", createRetries)
}

// SwitchThread makes an existing thread current and bumps its last_used.
func (m *Manager) SwitchThread(threadID string) error {
	err := m.store.Edit(func(data *StoreData) error {
		t := data.Find(threadID)
		if t == nil {
			return &NotFoundError{ThreadID: threadID, ValidIDs: data.IDs()}
		}
		t.LastUsed = time.Now().UTC()
		data.CurrentThreadID = threadID
		return nil
	})
	if err != nil {
		return err
	}

	m.setCachedCurrent(threadID)
	return nil
}

// ListThreads returns all threads sorted by last_used descending.
// Ties keep insertion order (stable sort).
func (m *Manager) ListThreads() ([]*ThreadRecord, error) {
	data, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	out := data.Threads
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastUsed.After(out[j].LastUsed)
	})
	return out, nil
}

// GetThread returns one thread record.
func (m *Manager) GetThread(threadID string) (*ThreadRecord, error) {
	data, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	t := data.Find(threadID)
	if t == nil {
		return nil, &NotFoundError{ThreadID: threadID, ValidIDs: data.IDs()}
	}
	return t, nil
}

// CurrentThreadID returns the current thread, lazily bootstrapping the
// default thread ("{assistant}:main") when the store is fresh or the
// persisted pointer no longer references an existing thread. Never returns
// an empty ID on success.
func (m *Manager) CurrentThreadID() (string, error) {
	// Fast path: trust the cache only if the store still agrees.
	data, err := m.store.Load()
	if err != nil {
		return "", err
	}
	if data.CurrentThreadID != "" && data.Find(data.CurrentThreadID) != nil {
		m.setCachedCurrent(data.CurrentThreadID)
		return data.CurrentThreadID, nil
	}

	// Fresh store or stale pointer: repair under the write lock.
	var current string
	err = m.store.Edit(func(data *StoreData) error {
		current = m.initializeDefaultThread(data)
		return nil
	})
	if err != nil {
		return "", err
	}

	m.setCachedCurrent(current)
	return current, nil
}

// initializeDefaultThread points the store at a valid thread, creating the
// default thread if none exists. Returns the resulting current ID.
func (m *Manager) initializeDefaultThread(data *StoreData) string {
	if data.CurrentThreadID != "" {
		if t := data.Find(data.CurrentThreadID); t != nil {
			return t.ID
		}
	}

	defaultID := identity.DefaultThreadID(m.assistantID)
	if data.Find(defaultID) == nil {
		now := time.Now().UTC()
		data.Threads = append(data.Threads, &ThreadRecord{
			ID:       defaultID,
			Created:  now,
			LastUsed: now,
			Name:     "Main",
		})
	}
	data.CurrentThreadID = defaultID
	return defaultID
}

// ForkThread creates a new thread recording sourceID as its parent.
// sourceID defaults to the current thread. Fails if the source is missing.
func (m *Manager) ForkThread(sourceID, name string) (string, error) {
	if sourceID == "" {
		current, err := m.CurrentThreadID()
		if err != nil {
			return "", err
		}
		sourceID = current
	}

	var threadID string
	err := m.store.Edit(func(data *StoreData) error {
		if data.Find(sourceID) == nil {
			return &NotFoundError{ThreadID: sourceID, ValidIDs: data.IDs()}
		}
		id, err := m.newUniqueID(data)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		data.Threads = append(data.Threads, &ThreadRecord{
			ID:       id,
			Created:  now,
			LastUsed: now,
			ParentID: sourceID,
			Name:     name,
		})
		data.CurrentThreadID = id
		threadID = id
		return nil
	})
	if err != nil {
		return "", err
	}

	m.setCachedCurrent(threadID)
	return threadID, nil
}

// RenameThread updates a thread's human-readable label in place.
func (m *Manager) RenameThread(threadID, newName string) error {
	return m.store.Edit(func(data *StoreData) error {
		t := data.Find(threadID)
		if t == nil {
			return &NotFoundError{ThreadID: threadID, ValidIDs: data.IDs()}
		}
		t.Name = newName
		return nil
	})
}

// UpdateThreadMetadata merges patch into the thread's metadata mapping.
// The merge is shallow: top-level keys are set, nested values are replaced
// wholesale. A nil patch value deletes the key. The reserved "handoff" key
// routes to the typed Handoff field.
func (m *Manager) UpdateThreadMetadata(threadID string, patch map[string]any) error {
	return m.store.Edit(func(data *StoreData) error {
		t := data.Find(threadID)
		if t == nil {
			return &NotFoundError{ThreadID: threadID, ValidIDs: data.IDs()}
		}
		for k, v := range patch {
			if k == MetadataHandoffKey {
				h, err := coerceHandoff(v)
				if err != nil {
					return err
				}
				t.Handoff = h
				continue
			}
			if v == nil {
				delete(t.Metadata, k)
				continue
			}
			if t.Metadata == nil {
				t.Metadata = make(map[string]any)
			}
			t.Metadata[k] = v
		}
		return nil
	})
}

// SetHandoff sets the typed handoff record on a thread.
func (m *Manager) SetHandoff(threadID string, h *HandoffMetadata) error {
	return m.store.Edit(func(data *StoreData) error {
		t := data.Find(threadID)
		if t == nil {
			return &NotFoundError{ThreadID: threadID, ValidIDs: data.IDs()}
		}
		t.Handoff = h
		return nil
	})
}

// RemoveThread deletes a thread. When the removed thread was current, the
// pointer is repaired to the most recently used survivor, or cleared so the
// next CurrentThreadID call bootstraps the default thread again.
func (m *Manager) RemoveThread(threadID string) error {
	var newCurrent string
	err := m.store.Edit(func(data *StoreData) error {
		idx := -1
		for i, t := range data.Threads {
			if t.ID == threadID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return &NotFoundError{ThreadID: threadID, ValidIDs: data.IDs()}
		}
		data.Threads = append(data.Threads[:idx], data.Threads[idx+1:]...)

		if data.CurrentThreadID == threadID {
			data.CurrentThreadID = ""
			var latest *ThreadRecord
			for _, t := range data.Threads {
				if latest == nil || t.LastUsed.After(latest.LastUsed) {
					latest = t
				}
			}
			if latest != nil {
				data.CurrentThreadID = latest.ID
			}
		}
		newCurrent = data.CurrentThreadID
		return nil
	})
	if err != nil {
		return err
	}

	m.setCachedCurrent(newCurrent)
	return nil
}

// CachedCurrentThreadID returns the last current pointer observed by this
// process without touching the store. May be stale the moment another
// process commits an Edit; critical paths must use CurrentThreadID.
func (m *Manager) CachedCurrentThreadID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) setCachedCurrent(id string) {
	m.mu.Lock()
	m.current = id
	m.mu.Unlock()
}

// coerceHandoff converts a metadata patch value into a typed handoff record.
// Accepts *HandoffMetadata, a JSON-shaped map, or nil.
func coerceHandoff(v any) (*HandoffMetadata, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case *HandoffMetadata:
		return val, nil
	case HandoffMetadata:
		return &val, nil
	default:
		encoded, err := jsonRoundTrip(v)
		if err != nil {
			return nil, fmt.Errorf("invalid handoff metadata value: %w", err)
		}
		return encoded, nil
	}
}

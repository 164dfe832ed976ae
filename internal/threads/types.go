package threads

import (
	"encoding/json"
	"fmt"
	"time"
)

// StoreVersion is the current threads.json document version.
const StoreVersion = 1

// MetadataHandoffKey is the reserved metadata key that carries HandoffMetadata.
const MetadataHandoffKey = "handoff"

// ThreadRecord is the metadata for one conversation thread.
//
// The handoff record is a typed field in memory but is persisted under the
// reserved "handoff" key of the open metadata map, so the on-disk shape stays
// a single metadata object.
type ThreadRecord struct {
	ID       string
	Created  time.Time
	LastUsed time.Time
	ParentID string
	Name     string
	Handoff  *HandoffMetadata
	Metadata map[string]any
}

// HandoffMetadata correlates a parent/child thread pair created by a handoff.
type HandoffMetadata struct {
	HandoffID       string     `json:"handoff_id"`
	SourceThreadID  string     `json:"source_thread_id"`
	ChildThreadID   string     `json:"child_thread_id"`
	Title           string     `json:"title,omitempty"`
	TLDR            string     `json:"tldr,omitempty"`
	Pending         bool       `json:"pending"`
	CleanupRequired bool       `json:"cleanup_required"`
	CreatedAt       time.Time  `json:"created_at"`
	LastCleanupAt   *time.Time `json:"last_cleanup_at,omitempty"`
}

// AwaitingFirstTurn reports whether this is a child thread that has not yet
// produced its first post-handoff response.
func (h *HandoffMetadata) AwaitingFirstTurn() bool {
	return h != nil && h.Pending && h.CleanupRequired
}

// StoreData is the single JSON document persisted as threads.json.
type StoreData struct {
	Version         int
	Threads         []*ThreadRecord
	CurrentThreadID string // empty means no current thread (persisted as null)
}

// threadRecordJSON is the wire shape of a ThreadRecord.
type threadRecordJSON struct {
	ID       string         `json:"id"`
	Created  time.Time      `json:"created"`
	LastUsed time.Time      `json:"last_used"`
	ParentID string         `json:"parent_id,omitempty"`
	Name     string         `json:"name,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// storeDataJSON is the wire shape of the threads.json document.
type storeDataJSON struct {
	Version         int             `json:"version"`
	Threads         []*ThreadRecord `json:"threads"`
	CurrentThreadID *string         `json:"current_thread_id"`
}

// MarshalJSON folds the typed Handoff field back under metadata["handoff"].
func (r *ThreadRecord) MarshalJSON() ([]byte, error) {
	wire := threadRecordJSON{
		ID:       r.ID,
		Created:  r.Created.UTC(),
		LastUsed: r.LastUsed.UTC(),
		ParentID: r.ParentID,
		Name:     r.Name,
	}

	if len(r.Metadata) > 0 || r.Handoff != nil {
		wire.Metadata = make(map[string]any, len(r.Metadata)+1)
		for k, v := range r.Metadata {
			wire.Metadata[k] = v
		}
		if r.Handoff != nil {
			wire.Metadata[MetadataHandoffKey] = r.Handoff
		}
	}

	return json.Marshal(wire)
}

// UnmarshalJSON lifts metadata["handoff"] into the typed Handoff field.
func (r *ThreadRecord) UnmarshalJSON(data []byte) error {
	var wire threadRecordJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	r.ID = wire.ID
	r.Created = wire.Created
	r.LastUsed = wire.LastUsed
	r.ParentID = wire.ParentID
	r.Name = wire.Name
	r.Handoff = nil
	r.Metadata = wire.Metadata

	if raw, ok := wire.Metadata[MetadataHandoffKey]; ok {
		encoded, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("re-encode handoff metadata: %w", err)
		}
		var h HandoffMetadata
		if err := json.Unmarshal(encoded, &h); err != nil {
			return fmt.Errorf("parse handoff metadata: %w", err)
		}
		r.Handoff = &h
		delete(wire.Metadata, MetadataHandoffKey)
		if len(wire.Metadata) == 0 {
			r.Metadata = nil
		}
	}

	return nil
}

// MarshalJSON emits null for an unset current-thread pointer.
func (d *StoreData) MarshalJSON() ([]byte, error) {
	wire := storeDataJSON{
		Version: d.Version,
		Threads: d.Threads,
	}
	if wire.Threads == nil {
		wire.Threads = []*ThreadRecord{}
	}
	if d.CurrentThreadID != "" {
		wire.CurrentThreadID = &d.CurrentThreadID
	}
	return json.Marshal(wire)
}

// UnmarshalJSON accepts null for the current-thread pointer.
func (d *StoreData) UnmarshalJSON(data []byte) error {
	var wire storeDataJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	d.Version = wire.Version
	d.Threads = wire.Threads
	d.CurrentThreadID = ""
	if wire.CurrentThreadID != nil {
		d.CurrentThreadID = *wire.CurrentThreadID
	}
	return nil
}

// Find returns the thread with the given ID, or nil.
func (d *StoreData) Find(id string) *ThreadRecord {
	for _, t := range d.Threads {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// IDs returns the IDs of all threads in insertion order.
func (d *StoreData) IDs() []string {
	ids := make([]string, 0, len(d.Threads))
	for _, t := range d.Threads {
		ids = append(ids, t.ID)
	}
	return ids
}

// Clone returns a deep copy of the document. Mutating the copy never affects
// the original.
func (d *StoreData) Clone() *StoreData {
	out := &StoreData{
		Version:         d.Version,
		CurrentThreadID: d.CurrentThreadID,
		Threads:         make([]*ThreadRecord, 0, len(d.Threads)),
	}
	for _, t := range d.Threads {
		out.Threads = append(out.Threads, t.Clone())
	}
	return out
}

// Clone returns a deep copy of the record.
func (r *ThreadRecord) Clone() *ThreadRecord {
	out := *r
	if r.Handoff != nil {
		h := *r.Handoff
		if r.Handoff.LastCleanupAt != nil {
			ts := *r.Handoff.LastCleanupAt
			h.LastCleanupAt = &ts
		}
		out.Handoff = &h
	}
	if r.Metadata != nil {
		out.Metadata = cloneValueMap(r.Metadata)
	}
	return &out
}

// jsonRoundTrip converts a JSON-shaped value (e.g. a map decoded from a
// metadata patch) into a typed handoff record.
func jsonRoundTrip(v any) (*HandoffMetadata, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var h HandoffMetadata
	if err := json.Unmarshal(encoded, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// cloneValueMap deep-copies a JSON-shaped map (nested maps and slices are
// copied, scalars are shared).
func cloneValueMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneValueMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

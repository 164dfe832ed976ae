package threads

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager("bot", t.TempDir(), time.Second)
}

func TestManager_CreateThread_IDFormat(t *testing.T) {
	mgr := newTestManager(t)

	id, err := mgr.CreateThread(CreateOptions{Name: "Demo"})
	if err != nil {
		t.Fatalf("CreateThread() failed: %v", err)
	}

	if !regexp.MustCompile(`^bot:[0-9a-f]{8}$`).MatchString(id) {
		t.Errorf("unexpected ID format: %q", id)
	}
}

func TestManager_CreateThread_Unique(t *testing.T) {
	mgr := newTestManager(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := mgr.CreateThread(CreateOptions{})
		if err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
		if seen[id] {
			t.Fatalf("duplicate thread ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestManager_CreateThread_MakesCurrent(t *testing.T) {
	mgr := newTestManager(t)

	id, err := mgr.CreateThread(CreateOptions{})
	if err != nil {
		t.Fatal(err)
	}

	current, err := mgr.CurrentThreadID()
	if err != nil {
		t.Fatal(err)
	}
	if current != id {
		t.Errorf("expected current %q, got %q", id, current)
	}
}

func TestManager_CurrentThreadID_FreshStore(t *testing.T) {
	mgr := newTestManager(t)

	current, err := mgr.CurrentThreadID()
	if err != nil {
		t.Fatalf("CurrentThreadID() failed: %v", err)
	}
	if current != "bot:main" {
		t.Errorf("expected default thread \"bot:main\", got %q", current)
	}

	// The default thread must actually exist in the store.
	if _, err := mgr.GetThread(current); err != nil {
		t.Errorf("default thread not persisted: %v", err)
	}
}

func TestManager_CurrentThreadID_RepairsStalePointer(t *testing.T) {
	mgr := newTestManager(t)

	// Persist a pointer to a thread that does not exist.
	err := mgr.Store().Edit(func(data *StoreData) error {
		data.CurrentThreadID = "bot:gone1234"
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	current, err := mgr.CurrentThreadID()
	if err != nil {
		t.Fatal(err)
	}
	if current != "bot:main" {
		t.Errorf("stale pointer should repair to the default thread, got %q", current)
	}
}

func TestManager_SwitchThread_NotFound(t *testing.T) {
	mgr := newTestManager(t)

	id, err := mgr.CreateThread(CreateOptions{Name: "Demo"})
	if err != nil {
		t.Fatal(err)
	}

	err = mgr.SwitchThread("bot:ffffffff")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.ThreadID != "bot:ffffffff" {
		t.Errorf("error should carry the offending ID, got %q", notFound.ThreadID)
	}
	if len(notFound.ValidIDs) != 1 || notFound.ValidIDs[0] != id {
		t.Errorf("error should list the one valid ID %q, got %v", id, notFound.ValidIDs)
	}
	if !strings.Contains(notFound.Error(), id) {
		t.Errorf("error message should mention the valid ID: %s", notFound.Error())
	}
}

func TestManager_SwitchThread_BumpsLastUsed(t *testing.T) {
	mgr := newTestManager(t)

	id, err := mgr.CreateThread(CreateOptions{})
	if err != nil {
		t.Fatal(err)
	}

	before, err := mgr.GetThread(id)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(10 * time.Millisecond)
	if err := mgr.SwitchThread(id); err != nil {
		t.Fatal(err)
	}

	after, err := mgr.GetThread(id)
	if err != nil {
		t.Fatal(err)
	}
	if !after.LastUsed.After(before.LastUsed) {
		t.Error("SwitchThread should bump last_used")
	}
}

func TestManager_ListThreads_Ordering(t *testing.T) {
	mgr := newTestManager(t)

	ids := make([]string, 3)
	for i := range ids {
		id, err := mgr.CreateThread(CreateOptions{})
		if err != nil {
			t.Fatal(err)
		}
		ids[i] = id
	}

	// January, March, February — list must come back March, February, January.
	stamps := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	err := mgr.Store().Edit(func(data *StoreData) error {
		for i, id := range ids {
			data.Find(id).LastUsed = stamps[i]
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	listed, err := mgr.ListThreads()
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 threads, got %d", len(listed))
	}

	want := []string{ids[1], ids[2], ids[0]}
	for i, rec := range listed {
		if rec.ID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], rec.ID)
		}
	}
}

func TestManager_ListThreads_StableOnTies(t *testing.T) {
	mgr := newTestManager(t)

	ids := make([]string, 4)
	for i := range ids {
		id, err := mgr.CreateThread(CreateOptions{})
		if err != nil {
			t.Fatal(err)
		}
		ids[i] = id
	}

	same := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	err := mgr.Store().Edit(func(data *StoreData) error {
		for _, rec := range data.Threads {
			rec.LastUsed = same
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	listed, err := mgr.ListThreads()
	if err != nil {
		t.Fatal(err)
	}
	for i, rec := range listed {
		if rec.ID != ids[i] {
			t.Errorf("tie broken out of insertion order at %d: expected %s, got %s", i, ids[i], rec.ID)
		}
	}
}

func TestManager_ForkThread(t *testing.T) {
	mgr := newTestManager(t)

	source, err := mgr.CreateThread(CreateOptions{Name: "Source"})
	if err != nil {
		t.Fatal(err)
	}

	forked, err := mgr.ForkThread("", "Fork")
	if err != nil {
		t.Fatalf("ForkThread() failed: %v", err)
	}

	rec, err := mgr.GetThread(forked)
	if err != nil {
		t.Fatal(err)
	}
	if rec.ParentID != source {
		t.Errorf("expected parent %q, got %q", source, rec.ParentID)
	}
	if rec.Name != "Fork" {
		t.Errorf("expected name Fork, got %q", rec.Name)
	}

	current, err := mgr.CurrentThreadID()
	if err != nil {
		t.Fatal(err)
	}
	if current != forked {
		t.Error("fork should become the current thread")
	}
}

func TestManager_ForkThread_MissingSource(t *testing.T) {
	mgr := newTestManager(t)

	_, err := mgr.ForkThread("bot:00000000", "Fork")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestManager_RenameThread(t *testing.T) {
	mgr := newTestManager(t)

	id, err := mgr.CreateThread(CreateOptions{Name: "Old"})
	if err != nil {
		t.Fatal(err)
	}

	if err := mgr.RenameThread(id, "New"); err != nil {
		t.Fatal(err)
	}

	rec, err := mgr.GetThread(id)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Name != "New" {
		t.Errorf("expected name New, got %q", rec.Name)
	}

	var notFound *NotFoundError
	if err := mgr.RenameThread("bot:00000000", "X"); !errors.As(err, &notFound) {
		t.Errorf("expected NotFoundError for missing thread, got %v", err)
	}
}

func TestManager_UpdateThreadMetadata_ShallowMerge(t *testing.T) {
	mgr := newTestManager(t)

	id, err := mgr.CreateThread(CreateOptions{
		Metadata: map[string]any{
			"keep":   "original",
			"nested": map[string]any{"a": float64(1), "b": float64(2)},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Nested values are replaced wholesale, not deep-merged.
	err = mgr.UpdateThreadMetadata(id, map[string]any{
		"nested": map[string]any{"c": float64(3)},
		"added":  "yes",
	})
	if err != nil {
		t.Fatal(err)
	}

	rec, err := mgr.GetThread(id)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Metadata["keep"] != "original" {
		t.Error("untouched keys must survive the merge")
	}
	if rec.Metadata["added"] != "yes" {
		t.Error("new keys must be added")
	}
	nested, ok := rec.Metadata["nested"].(map[string]any)
	if !ok {
		t.Fatalf("nested value has wrong type: %T", rec.Metadata["nested"])
	}
	if _, exists := nested["a"]; exists {
		t.Error("nested maps must be replaced wholesale, not deep-merged")
	}
	if nested["c"] != float64(3) {
		t.Errorf("unexpected nested value: %+v", nested)
	}
}

func TestManager_UpdateThreadMetadata_HandoffKey(t *testing.T) {
	mgr := newTestManager(t)

	id, err := mgr.CreateThread(CreateOptions{})
	if err != nil {
		t.Fatal(err)
	}

	h := &HandoffMetadata{
		HandoffID:       "ho_TEST",
		SourceThreadID:  "bot:main",
		ChildThreadID:   id,
		Pending:         true,
		CleanupRequired: true,
		CreatedAt:       time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := mgr.UpdateThreadMetadata(id, map[string]any{MetadataHandoffKey: h}); err != nil {
		t.Fatal(err)
	}

	rec, err := mgr.GetThread(id)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Handoff == nil || rec.Handoff.HandoffID != "ho_TEST" {
		t.Fatalf("handoff key should land in the typed field: %+v", rec.Handoff)
	}
	if !rec.Handoff.AwaitingFirstTurn() {
		t.Error("pending + cleanup_required should read as awaiting first turn")
	}
	if _, exists := rec.Metadata[MetadataHandoffKey]; exists {
		t.Error("handoff must not duplicate into the open metadata map")
	}
}

func TestManager_RemoveThread_RepairsPointer(t *testing.T) {
	mgr := newTestManager(t)

	first, err := mgr.CreateThread(CreateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := mgr.CreateThread(CreateOptions{})
	if err != nil {
		t.Fatal(err)
	}

	// second is current; removing it must repoint to the survivor.
	if err := mgr.RemoveThread(second); err != nil {
		t.Fatal(err)
	}

	current, err := mgr.CurrentThreadID()
	if err != nil {
		t.Fatal(err)
	}
	if current != first {
		t.Errorf("expected pointer repaired to %q, got %q", first, current)
	}

	var notFound *NotFoundError
	if err := mgr.RemoveThread(second); !errors.As(err, &notFound) {
		t.Errorf("removing twice should be NotFound, got %v", err)
	}
}

func TestManager_RemoveLastThread_BootstrapsDefault(t *testing.T) {
	mgr := newTestManager(t)

	id, err := mgr.CreateThread(CreateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := mgr.RemoveThread(id); err != nil {
		t.Fatal(err)
	}

	current, err := mgr.CurrentThreadID()
	if err != nil {
		t.Fatal(err)
	}
	if current != "bot:main" {
		t.Errorf("empty store should bootstrap the default thread, got %q", current)
	}
}

package handoff

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deepagents/deepagents/internal/threads"
)

// fakeDeleter records DeleteThread calls and optionally fails them.
type fakeDeleter struct {
	deleted []string
	err     error
}

func (f *fakeDeleter) DeleteThread(threadID string) error {
	f.deleted = append(f.deleted, threadID)
	return f.err
}

func acceptanceFixture(t *testing.T) (*threads.Manager, string) {
	t.Helper()
	dir := t.TempDir()
	mgr := threads.NewManager("bot", dir, time.Second)
	return mgr, filepath.Join(dir, "agent.md")
}

func TestApplyAcceptance_Success(t *testing.T) {
	mgr, agentFile := acceptanceFixture(t)
	history := &fakeDeleter{}

	source, err := mgr.CreateThread(threads.CreateOptions{Name: "Source"})
	if err != nil {
		t.Fatal(err)
	}

	childID, err := ApplyAcceptance(mgr, history, agentFile, source, Summary{
		Title:    "Refactor auth",
		TLDR:     "move token parsing into middleware",
		Markdown: "## Context\nDetails of the work so far.",
	})
	if err != nil {
		t.Fatalf("ApplyAcceptance() failed: %v", err)
	}

	// Child exists, is current, and is pending.
	child, err := mgr.GetThread(childID)
	if err != nil {
		t.Fatal(err)
	}
	if child.ParentID != source {
		t.Errorf("expected parent %q, got %q", source, child.ParentID)
	}
	if child.Name != "Refactor auth" {
		t.Errorf("child should be named after the title, got %q", child.Name)
	}
	if !child.Handoff.AwaitingFirstTurn() {
		t.Errorf("child should be pending with cleanup required: %+v", child.Handoff)
	}
	if child.Handoff.SourceThreadID != source || child.Handoff.ChildThreadID != childID {
		t.Errorf("handoff pair mis-stamped: %+v", child.Handoff)
	}
	if !strings.HasPrefix(child.Handoff.HandoffID, "ho_") {
		t.Errorf("unexpected handoff ID: %q", child.Handoff.HandoffID)
	}

	current, err := mgr.CurrentThreadID()
	if err != nil {
		t.Fatal(err)
	}
	if current != childID {
		t.Error("child should become current")
	}

	// Parent carries the settled side of the pair.
	parent, err := mgr.GetThread(source)
	if err != nil {
		t.Fatal(err)
	}
	if parent.Handoff == nil || parent.Handoff.HandoffID != child.Handoff.HandoffID {
		t.Errorf("parent not stamped with the same handoff: %+v", parent.Handoff)
	}
	if parent.Handoff.Pending || parent.Handoff.CleanupRequired {
		t.Errorf("parent side must be settled: %+v", parent.Handoff)
	}

	// Summary landed in the agent file block.
	block, err := ReadSummaryBlock(agentFile)
	if err != nil {
		t.Fatal(err)
	}
	if block != "## Context\nDetails of the work so far." {
		t.Errorf("unexpected block content: %q", block)
	}

	if len(history.deleted) != 0 {
		t.Errorf("success path must not delete history: %v", history.deleted)
	}
}

func TestApplyAcceptance_DefaultsToCurrentSource(t *testing.T) {
	mgr, agentFile := acceptanceFixture(t)

	source, err := mgr.CreateThread(threads.CreateOptions{})
	if err != nil {
		t.Fatal(err)
	}

	childID, err := ApplyAcceptance(mgr, &fakeDeleter{}, agentFile, "", Summary{Markdown: "body"})
	if err != nil {
		t.Fatal(err)
	}

	child, err := mgr.GetThread(childID)
	if err != nil {
		t.Fatal(err)
	}
	if child.Handoff.SourceThreadID != source {
		t.Errorf("expected current thread %q as source, got %q", source, child.Handoff.SourceThreadID)
	}
	// Untitled handoffs get a descriptive fallback name.
	if !strings.Contains(child.Name, source) {
		t.Errorf("fallback name should mention the source, got %q", child.Name)
	}
}

func TestApplyAcceptance_RollbackOnMissingSource(t *testing.T) {
	mgr, agentFile := acceptanceFixture(t)
	history := &fakeDeleter{}

	// Bootstrap the store, then target a source that does not exist. Steps 1
	// and 2 succeed; stamping the missing source fails and must unwind.
	if _, err := mgr.CurrentThreadID(); err != nil {
		t.Fatal(err)
	}
	before, err := mgr.ListThreads()
	if err != nil {
		t.Fatal(err)
	}

	_, err = ApplyAcceptance(mgr, history, agentFile, "bot:00000000", Summary{Markdown: "body"})

	var notFound *threads.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected the original NotFoundError to propagate, got %v", err)
	}

	// The child thread created in step 2 is gone again.
	after, err := mgr.ListThreads()
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != len(before) {
		t.Errorf("child thread not rolled back: %d threads before, %d after", len(before), len(after))
	}

	// Its history was deleted too.
	if len(history.deleted) != 1 {
		t.Fatalf("expected exactly one history deletion, got %v", history.deleted)
	}
	if !strings.HasPrefix(history.deleted[0], "bot:") {
		t.Errorf("unexpected deleted thread ID: %q", history.deleted[0])
	}

	// And the block was re-cleared.
	block, err := ReadSummaryBlock(agentFile)
	if err != nil {
		t.Fatal(err)
	}
	if block != SummaryPlaceholder {
		t.Errorf("block should be cleared on rollback, got %q", block)
	}
}

func TestApplyAcceptance_CompensationFailureIsLoggedNotRaised(t *testing.T) {
	mgr, agentFile := acceptanceFixture(t)
	history := &fakeDeleter{err: errors.New("db unavailable")}

	if _, err := mgr.CurrentThreadID(); err != nil {
		t.Fatal(err)
	}

	_, err := ApplyAcceptance(mgr, history, agentFile, "bot:00000000", Summary{Markdown: "body"})

	// The original failure propagates, not the compensation failure.
	var notFound *threads.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if strings.Contains(err.Error(), "db unavailable") {
		t.Errorf("compensation failure leaked into the returned error: %v", err)
	}
}

func TestApplyAcceptance_NilHistory(t *testing.T) {
	mgr, agentFile := acceptanceFixture(t)

	_, err := ApplyAcceptance(mgr, nil, agentFile, "", Summary{Markdown: "body"})
	if err == nil {
		t.Fatal("expected an error when no history deleter is provided")
	}
}

func TestApplyAcceptance_ExplicitHandoffID(t *testing.T) {
	mgr, agentFile := acceptanceFixture(t)

	source, err := mgr.CreateThread(threads.CreateOptions{})
	if err != nil {
		t.Fatal(err)
	}

	childID, err := ApplyAcceptance(mgr, &fakeDeleter{}, agentFile, source, Summary{
		HandoffID: "ho_EXPLICIT",
		Markdown:  "body",
	})
	if err != nil {
		t.Fatal(err)
	}

	child, err := mgr.GetThread(childID)
	if err != nil {
		t.Fatal(err)
	}
	if child.Handoff.HandoffID != "ho_EXPLICIT" {
		t.Errorf("caller-supplied handoff ID ignored: %q", child.Handoff.HandoffID)
	}
}

func TestCompleteHandoff(t *testing.T) {
	mgr, agentFile := acceptanceFixture(t)

	source, err := mgr.CreateThread(threads.CreateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	childID, err := ApplyAcceptance(mgr, &fakeDeleter{}, agentFile, source, Summary{Markdown: "body"})
	if err != nil {
		t.Fatal(err)
	}

	if err := CompleteHandoff(mgr, agentFile, childID); err != nil {
		t.Fatalf("CompleteHandoff() failed: %v", err)
	}

	child, err := mgr.GetThread(childID)
	if err != nil {
		t.Fatal(err)
	}
	if child.Handoff.AwaitingFirstTurn() {
		t.Error("child still pending after completion")
	}
	if child.Handoff.LastCleanupAt == nil {
		t.Error("last_cleanup_at not set on the child")
	}

	parent, err := mgr.GetThread(source)
	if err != nil {
		t.Fatal(err)
	}
	if parent.Handoff.Pending || parent.Handoff.CleanupRequired {
		t.Errorf("parent side not settled: %+v", parent.Handoff)
	}
	if parent.Handoff.LastCleanupAt == nil {
		t.Error("last_cleanup_at not set on the parent")
	}

	block, err := ReadSummaryBlock(agentFile)
	if err != nil {
		t.Fatal(err)
	}
	if block != SummaryPlaceholder {
		t.Errorf("summary block should be cleared, got %q", block)
	}
}

func TestCompleteHandoff_ParentGone(t *testing.T) {
	mgr, agentFile := acceptanceFixture(t)

	source, err := mgr.CreateThread(threads.CreateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	childID, err := ApplyAcceptance(mgr, &fakeDeleter{}, agentFile, source, Summary{Markdown: "body"})
	if err != nil {
		t.Fatal(err)
	}

	// Deleting the parent between acceptance and completion is tolerated.
	if err := mgr.RemoveThread(source); err != nil {
		t.Fatal(err)
	}

	if err := CompleteHandoff(mgr, agentFile, childID); err != nil {
		t.Fatalf("completion should tolerate a missing parent: %v", err)
	}

	child, err := mgr.GetThread(childID)
	if err != nil {
		t.Fatal(err)
	}
	if child.Handoff.AwaitingFirstTurn() {
		t.Error("child not settled")
	}
}

func TestCompleteHandoff_ReStampedParent(t *testing.T) {
	mgr, agentFile := acceptanceFixture(t)

	source, err := mgr.CreateThread(threads.CreateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	childID, err := ApplyAcceptance(mgr, &fakeDeleter{}, agentFile, source, Summary{Markdown: "first"})
	if err != nil {
		t.Fatal(err)
	}

	// The parent hands off again before the first child completes. Completing
	// the first child must not touch the parent's newer handoff record.
	newer := &threads.HandoffMetadata{
		HandoffID:      "ho_NEWER",
		SourceThreadID: source,
		Pending:        false,
		CreatedAt:      time.Now().UTC(),
	}
	if err := mgr.SetHandoff(source, newer); err != nil {
		t.Fatal(err)
	}

	if err := CompleteHandoff(mgr, agentFile, childID); err != nil {
		t.Fatal(err)
	}

	parent, err := mgr.GetThread(source)
	if err != nil {
		t.Fatal(err)
	}
	if parent.Handoff.HandoffID != "ho_NEWER" {
		t.Errorf("parent's newer handoff was replaced: %+v", parent.Handoff)
	}
	if parent.Handoff.LastCleanupAt != nil {
		t.Error("completion must not stamp cleanup on a different handoff")
	}
}

func TestCompleteHandoff_NoHandoffRecorded(t *testing.T) {
	mgr, agentFile := acceptanceFixture(t)

	id, err := mgr.CreateThread(threads.CreateOptions{})
	if err != nil {
		t.Fatal(err)
	}

	err = CompleteHandoff(mgr, agentFile, id)
	if err == nil || !strings.Contains(err.Error(), "no handoff recorded") {
		t.Errorf("expected a no-handoff error, got %v", err)
	}
}

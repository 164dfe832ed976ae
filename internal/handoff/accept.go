package handoff

import (
	"fmt"
	"log"
	"time"

	"github.com/deepagents/deepagents/internal/identity"
	"github.com/deepagents/deepagents/internal/threads"
)

// HistoryDeleter deletes a thread's execution history. It is a mandatory
// collaborator of ApplyAcceptance: rollback must be able to remove the
// child's history, so acceptance cannot run without it.
type HistoryDeleter interface {
	DeleteThread(threadID string) error
}

// Summary is an accepted handoff summary produced by an external
// summarization step. Consumed as opaque input.
type Summary struct {
	HandoffID string // correlation ID; generated when empty
	Title     string
	TLDR      string
	Markdown  string // block content written into agent.md
}

// sagaStep pairs a forward action with its compensation. Compensations run
// in reverse order on failure; their errors are logged, never raised.
type sagaStep struct {
	name       string
	run        func() error
	compensate func() error
}

// ApplyAcceptance applies an accepted handoff summary:
//
//  1. write the summary into the shared agent file's block
//  2. create the child thread (made current)
//  3. stamp HandoffMetadata on child (pending, cleanup required) and
//     parent (settled)
//
// On any failure after step 1 the completed steps are compensated in
// reverse: the block is re-cleared and the child thread and its history are
// removed. This is best-effort, not all-or-nothing — a crash between steps
// leaves partial state. The original error always propagates; compensation
// failures only reach the log.
//
// sourceThreadID defaults to the current thread. Returns the child thread ID.
func ApplyAcceptance(mgr *threads.Manager, history HistoryDeleter, agentFilePath, sourceThreadID string, sum Summary) (string, error) {
	if history == nil {
		return "", fmt.Errorf("history deleter is required for handoff acceptance")
	}

	if sourceThreadID == "" {
		current, err := mgr.CurrentThreadID()
		if err != nil {
			return "", fmt.Errorf("resolve source thread: %w", err)
		}
		sourceThreadID = current
	}

	handoffID := sum.HandoffID
	if handoffID == "" {
		handoffID = identity.GenerateHandoffID()
	}

	childName := sum.Title
	if childName == "" {
		childName = "Handoff from " + sourceThreadID
	}

	var childID string
	now := time.Now().UTC()

	steps := []sagaStep{
		{
			name: "write summary block",
			run: func() error {
				return WriteSummaryBlockFile(agentFilePath, sum.Markdown)
			},
			compensate: func() error {
				return ClearSummaryBlockFile(agentFilePath)
			},
		},
		{
			name: "create child thread",
			run: func() error {
				id, err := mgr.CreateThread(threads.CreateOptions{
					Name:     childName,
					ParentID: sourceThreadID,
				})
				if err != nil {
					return err
				}
				childID = id
				return nil
			},
			compensate: func() error {
				if err := mgr.RemoveThread(childID); err != nil {
					return err
				}
				return history.DeleteThread(childID)
			},
		},
		{
			name: "stamp handoff metadata",
			run: func() error {
				child := &threads.HandoffMetadata{
					HandoffID:       handoffID,
					SourceThreadID:  sourceThreadID,
					ChildThreadID:   childID,
					Title:           sum.Title,
					TLDR:            sum.TLDR,
					Pending:         true,
					CleanupRequired: true,
					CreatedAt:       now,
				}
				if err := mgr.SetHandoff(childID, child); err != nil {
					return err
				}

				parent := &threads.HandoffMetadata{
					HandoffID:       handoffID,
					SourceThreadID:  sourceThreadID,
					ChildThreadID:   childID,
					Title:           sum.Title,
					TLDR:            sum.TLDR,
					Pending:         false,
					CleanupRequired: false,
					CreatedAt:       now,
				}
				return mgr.SetHandoff(sourceThreadID, parent)
			},
		},
	}

	for i, step := range steps {
		if err := step.run(); err != nil {
			rollback(steps[:i])
			return "", fmt.Errorf("%s: %w", step.name, err)
		}
	}

	return childID, nil
}

// rollback walks compensations in reverse order, logging failures.
func rollback(completed []sagaStep) {
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.compensate == nil {
			continue
		}
		if err := step.compensate(); err != nil {
			log.Printf("[handoff] rollback of %q failed: %v", step.name, err)
		}
	}
}

// CompleteHandoff marks a child thread's first post-handoff turn as done:
// the shared file's summary block is cleared, then pending and
// cleanup_required flip to false and last_cleanup_at is set on both ends of
// the pair inside one store transaction.
func CompleteHandoff(mgr *threads.Manager, agentFilePath, childThreadID string) error {
	if err := ClearSummaryBlockFile(agentFilePath); err != nil {
		return fmt.Errorf("clear summary block: %w", err)
	}

	now := time.Now().UTC()
	return mgr.Store().Edit(func(data *threads.StoreData) error {
		child := data.Find(childThreadID)
		if child == nil {
			return &threads.NotFoundError{ThreadID: childThreadID, ValidIDs: data.IDs()}
		}
		if child.Handoff == nil {
			return fmt.Errorf("thread %q has no handoff recorded", childThreadID)
		}

		child.Handoff.Pending = false
		child.Handoff.CleanupRequired = false
		ts := now
		child.Handoff.LastCleanupAt = &ts

		// The parent is informational lineage only; it may have been deleted
		// independently, or re-stamped by a newer handoff.
		if parent := data.Find(child.Handoff.SourceThreadID); parent != nil {
			if parent.Handoff != nil && parent.Handoff.HandoffID == child.Handoff.HandoffID {
				parent.Handoff.Pending = false
				parent.Handoff.CleanupRequired = false
				pts := now
				parent.Handoff.LastCleanupAt = &pts
			}
		}
		return nil
	})
}

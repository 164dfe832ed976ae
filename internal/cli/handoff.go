package cli

import (
	"fmt"
	"time"

	"github.com/deepagents/deepagents/internal/handoff"
	"github.com/deepagents/deepagents/internal/threads"
)

// HandoffAcceptOptions contains options for accepting a handoff summary.
type HandoffAcceptOptions struct {
	SourceThreadID string // empty means current thread
	Title          string
	TLDR           string
	Markdown       string // summary body for the agent-file block
}

// HandoffAcceptResult is the result of handoff accept.
type HandoffAcceptResult struct {
	ChildThreadID  string `json:"child_thread_id"`
	SourceThreadID string `json:"source_thread_id"`
	HandoffID      string `json:"handoff_id"`
}

// HandoffAccept applies an accepted handoff summary: the summary lands in
// the agent file's block and a pending child thread is created and made
// current.
func HandoffAccept(mgr *threads.Manager, history handoff.HistoryDeleter, agentFilePath string, opts HandoffAcceptOptions) (*HandoffAcceptResult, error) {
	childID, err := handoff.ApplyAcceptance(mgr, history, agentFilePath, opts.SourceThreadID, handoff.Summary{
		Title:    opts.Title,
		TLDR:     opts.TLDR,
		Markdown: opts.Markdown,
	})
	if err != nil {
		return nil, err
	}

	child, err := mgr.GetThread(childID)
	if err != nil {
		return nil, err
	}

	result := &HandoffAcceptResult{ChildThreadID: childID}
	if child.Handoff != nil {
		result.SourceThreadID = child.Handoff.SourceThreadID
		result.HandoffID = child.Handoff.HandoffID
	}
	return result, nil
}

// FormatHandoffAccept formats the acceptance result for display.
func FormatHandoffAccept(result *HandoffAcceptResult) string {
	out := fmt.Sprintf("✓ Handoff accepted: %s\n", result.HandoffID)
	out += fmt.Sprintf("  Child thread: %s (now current)\n", result.ChildThreadID)
	out += fmt.Sprintf("  Source:       %s\n", result.SourceThreadID)
	out += "  The child is pending until its first turn completes.\n"
	return out
}

// HandoffComplete marks the child's first post-handoff turn as done and
// clears the summary block.
func HandoffComplete(mgr *threads.Manager, agentFilePath, childThreadID string) error {
	if childThreadID == "" {
		current, err := mgr.CurrentThreadID()
		if err != nil {
			return err
		}
		childThreadID = current
	}
	return handoff.CompleteHandoff(mgr, agentFilePath, childThreadID)
}

// HandoffShowResult is the result of handoff show.
type HandoffShowResult struct {
	ThreadID        string `json:"thread_id"`
	HandoffID       string `json:"handoff_id,omitempty"`
	SourceThreadID  string `json:"source_thread_id,omitempty"`
	ChildThreadID   string `json:"child_thread_id,omitempty"`
	Title           string `json:"title,omitempty"`
	TLDR            string `json:"tldr,omitempty"`
	Pending         bool   `json:"pending"`
	CleanupRequired bool   `json:"cleanup_required"`
	CreatedAt       string `json:"created_at,omitempty"`
	LastCleanupAt   string `json:"last_cleanup_at,omitempty"`
	SummaryBlock    string `json:"summary_block"`
}

// HandoffShow reports a thread's handoff state plus the current content of
// the shared summary block.
func HandoffShow(mgr *threads.Manager, agentFilePath, threadID string) (*HandoffShowResult, error) {
	if threadID == "" {
		current, err := mgr.CurrentThreadID()
		if err != nil {
			return nil, err
		}
		threadID = current
	}

	t, err := mgr.GetThread(threadID)
	if err != nil {
		return nil, err
	}

	block, err := handoff.ReadSummaryBlock(agentFilePath)
	if err != nil {
		return nil, err
	}

	result := &HandoffShowResult{ThreadID: threadID, SummaryBlock: block}
	if h := t.Handoff; h != nil {
		result.HandoffID = h.HandoffID
		result.SourceThreadID = h.SourceThreadID
		result.ChildThreadID = h.ChildThreadID
		result.Title = h.Title
		result.TLDR = h.TLDR
		result.Pending = h.Pending
		result.CleanupRequired = h.CleanupRequired
		result.CreatedAt = h.CreatedAt.UTC().Format(time.RFC3339)
		if h.LastCleanupAt != nil {
			result.LastCleanupAt = h.LastCleanupAt.UTC().Format(time.RFC3339)
		}
	}
	return result, nil
}

// FormatHandoffShow formats the handoff state for display.
func FormatHandoffShow(result *HandoffShowResult) string {
	out := fmt.Sprintf("Thread: %s\n", result.ThreadID)
	if result.HandoffID == "" {
		out += "  No handoff recorded.\n"
	} else {
		out += fmt.Sprintf("  Handoff:  %s\n", result.HandoffID)
		out += fmt.Sprintf("  Source:   %s\n", result.SourceThreadID)
		out += fmt.Sprintf("  Child:    %s\n", result.ChildThreadID)
		if result.Title != "" {
			out += fmt.Sprintf("  Title:    %s\n", result.Title)
		}
		if result.TLDR != "" {
			out += fmt.Sprintf("  TL;DR:    %s\n", result.TLDR)
		}
		out += fmt.Sprintf("  Pending:  %v (cleanup required: %v)\n", result.Pending, result.CleanupRequired)
		if result.LastCleanupAt != "" {
			out += fmt.Sprintf("  Cleaned:  %s\n", result.LastCleanupAt)
		}
	}
	out += "\nSummary block:\n"
	out += wordWrap(result.SummaryBlock, wrapWidth()) + "\n"
	return out
}

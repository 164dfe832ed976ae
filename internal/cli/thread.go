package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/deepagents/deepagents/internal/threads"
)

// ThreadInfo is one thread as presented by thread list/show.
// JSON mode marshals this directly; human mode uses FormatThreadList.
type ThreadInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
	Created  string `json:"created"`
	LastUsed string `json:"last_used"`
	Current  bool   `json:"current"`
	Pending  bool   `json:"handoff_pending,omitempty"`
}

// ThreadListResult is the result of the thread list operation.
type ThreadListResult struct {
	Threads []ThreadInfo `json:"threads"`
	Current string       `json:"current_thread_id"`
}

// ThreadList returns all threads, most recently used first.
func ThreadList(mgr *threads.Manager) (*ThreadListResult, error) {
	current, err := mgr.CurrentThreadID()
	if err != nil {
		return nil, err
	}
	records, err := mgr.ListThreads()
	if err != nil {
		return nil, err
	}

	result := &ThreadListResult{Current: current}
	for _, t := range records {
		result.Threads = append(result.Threads, threadInfo(t, current))
	}
	return result, nil
}

func threadInfo(t *threads.ThreadRecord, current string) ThreadInfo {
	return ThreadInfo{
		ID:       t.ID,
		Name:     t.Name,
		ParentID: t.ParentID,
		Created:  t.Created.UTC().Format(time.RFC3339),
		LastUsed: t.LastUsed.UTC().Format(time.RFC3339),
		Current:  t.ID == current,
		Pending:  t.Handoff.AwaitingFirstTurn(),
	}
}

// FormatThreadList formats the thread list for human display.
func FormatThreadList(result *ThreadListResult) string {
	if len(result.Threads) == 0 {
		return "No threads found.\n"
	}

	var out strings.Builder
	out.WriteString(fmt.Sprintf("  %-24s %-28s %s\n", "THREAD", "NAME", "LAST USED"))
	out.WriteString("  " + strings.Repeat("─", 70) + "\n")

	for _, t := range result.Threads {
		marker := " "
		if t.Current {
			marker = "*"
		}

		name := t.Name
		if name == "" {
			name = "·"
		}
		if t.Pending {
			name += " (handoff pending)"
		}

		lastUsed, err := time.Parse(time.RFC3339, t.LastUsed)
		rel := t.LastUsed
		if err == nil {
			rel = formatRelativeTime(lastUsed)
		}

		out.WriteString(fmt.Sprintf("%s %-24s %-28s %s\n",
			marker, truncate(t.ID, 24), truncate(name, 28), rel))
	}

	out.WriteString(fmt.Sprintf("\n%d thread(s); * = current\n", len(result.Threads)))
	return out.String()
}

// ThreadCreateResult is the result of thread new/fork.
type ThreadCreateResult struct {
	ThreadID string `json:"thread_id"`
	Name     string `json:"name,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
}

// ThreadCreate creates a new thread and makes it current.
func ThreadCreate(mgr *threads.Manager, name string) (*ThreadCreateResult, error) {
	id, err := mgr.CreateThread(threads.CreateOptions{Name: name})
	if err != nil {
		return nil, err
	}
	return &ThreadCreateResult{ThreadID: id, Name: name}, nil
}

// ThreadFork forks sourceID (current thread when empty) into a new thread.
func ThreadFork(mgr *threads.Manager, sourceID, name string) (*ThreadCreateResult, error) {
	id, err := mgr.ForkThread(sourceID, name)
	if err != nil {
		return nil, err
	}
	t, err := mgr.GetThread(id)
	if err != nil {
		return nil, err
	}
	return &ThreadCreateResult{ThreadID: id, Name: name, ParentID: t.ParentID}, nil
}

// FormatThreadCreate formats the creation result for display.
func FormatThreadCreate(result *ThreadCreateResult) string {
	out := fmt.Sprintf("✓ Thread created: %s\n", result.ThreadID)
	if result.Name != "" {
		out += fmt.Sprintf("  Name:   %s\n", result.Name)
	}
	if result.ParentID != "" {
		out += fmt.Sprintf("  Parent: %s\n", result.ParentID)
	}
	out += "  Now current.\n"
	return out
}

// ThreadSwitch makes an existing thread current.
func ThreadSwitch(mgr *threads.Manager, threadID string) error {
	return mgr.SwitchThread(threadID)
}

// ThreadRename renames a thread.
func ThreadRename(mgr *threads.Manager, threadID, newName string) error {
	return mgr.RenameThread(threadID, newName)
}

// ThreadRemove deletes a thread's metadata and its recorded history.
func ThreadRemove(mgr *threads.Manager, history interface{ DeleteThread(string) error }, threadID string) error {
	if err := mgr.RemoveThread(threadID); err != nil {
		return err
	}
	if history != nil {
		if err := history.DeleteThread(threadID); err != nil {
			return fmt.Errorf("thread removed but history cleanup failed: %w", err)
		}
	}
	return nil
}

// ThreadCurrentResult is the result of the thread current operation.
type ThreadCurrentResult struct {
	ThreadID string `json:"thread_id"`
	Name     string `json:"name,omitempty"`
}

// ThreadCurrent returns the current thread, bootstrapping the default thread
// on a fresh store.
func ThreadCurrent(mgr *threads.Manager) (*ThreadCurrentResult, error) {
	id, err := mgr.CurrentThreadID()
	if err != nil {
		return nil, err
	}
	t, err := mgr.GetThread(id)
	if err != nil {
		return nil, err
	}
	return &ThreadCurrentResult{ThreadID: id, Name: t.Name}, nil
}

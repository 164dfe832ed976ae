package cli

import (
	"fmt"
	"strings"

	"github.com/deepagents/deepagents/internal/history"
	"github.com/deepagents/deepagents/internal/threads"
)

// HistoryShowResult is the result of history show.
type HistoryShowResult struct {
	ThreadID string         `json:"thread_id"`
	Turns    []history.Turn `json:"turns"`
	Total    int            `json:"total"`
}

// HistoryShow returns a thread's recorded turns, oldest first.
// threadID defaults to the current thread.
func HistoryShow(mgr *threads.Manager, db *history.DB, threadID string, limit int) (*HistoryShowResult, error) {
	if threadID == "" {
		current, err := mgr.CurrentThreadID()
		if err != nil {
			return nil, err
		}
		threadID = current
	}

	// Surface NotFound with the valid set before touching the database.
	if _, err := mgr.GetThread(threadID); err != nil {
		return nil, err
	}

	turns, err := db.ListTurns(threadID, limit)
	if err != nil {
		return nil, err
	}
	total, err := db.CountTurns(threadID)
	if err != nil {
		return nil, err
	}

	return &HistoryShowResult{ThreadID: threadID, Turns: turns, Total: total}, nil
}

// FormatHistoryShow formats a thread's turn history for display.
func FormatHistoryShow(result *HistoryShowResult) string {
	var out strings.Builder
	out.WriteString(fmt.Sprintf("Thread: %s\n\n", result.ThreadID))

	if len(result.Turns) == 0 {
		out.WriteString("No turns recorded.\n")
		return out.String()
	}

	width := wrapWidth()
	for _, turn := range result.Turns {
		out.WriteString(fmt.Sprintf("[%s] %s (%s)\n",
			turn.Role, turn.TurnID, formatRelativeTime(turn.CreatedAt)))
		out.WriteString(wordWrap(turn.Content, width))
		out.WriteString("\n\n")
	}

	out.WriteString(fmt.Sprintf("Showing %d of %d turn(s)\n", len(result.Turns), result.Total))
	return out.String()
}

package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deepagents/deepagents/internal/handoff"
	"github.com/deepagents/deepagents/internal/threads"
)

// handleListThreads lists threads, most recently used first.
func (s *Server) handleListThreads(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input ListThreadsInput,
) (*gomcp.CallToolResult, ListThreadsOutput, error) {
	current, err := s.mgr.CurrentThreadID()
	if err != nil {
		return nil, ListThreadsOutput{}, fmt.Errorf("resolve current thread: %w", err)
	}

	records, err := s.mgr.ListThreads()
	if err != nil {
		return nil, ListThreadsOutput{}, fmt.Errorf("list threads: %w", err)
	}

	if input.Limit > 0 && len(records) > input.Limit {
		records = records[:input.Limit]
	}

	out := ListThreadsOutput{Threads: make([]ThreadInfo, 0, len(records))}
	for _, t := range records {
		out.Threads = append(out.Threads, ThreadInfo{
			ThreadID: t.ID,
			Name:     t.Name,
			ParentID: t.ParentID,
			LastUsed: t.LastUsed.UTC().Format(time.RFC3339),
			Current:  t.ID == current,
		})
	}
	out.Count = len(out.Threads)
	return nil, out, nil
}

// handleCreateThread creates a thread and makes it current.
func (s *Server) handleCreateThread(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input CreateThreadInput,
) (*gomcp.CallToolResult, CreateThreadOutput, error) {
	id, err := s.mgr.CreateThread(threads.CreateOptions{Name: input.Name})
	if err != nil {
		return nil, CreateThreadOutput{}, fmt.Errorf("create thread: %w", err)
	}
	return nil, CreateThreadOutput{ThreadID: id}, nil
}

// handleSwitchThread makes an existing thread current.
func (s *Server) handleSwitchThread(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input SwitchThreadInput,
) (*gomcp.CallToolResult, SwitchThreadOutput, error) {
	if input.ThreadID == "" {
		return nil, SwitchThreadOutput{}, fmt.Errorf("'thread_id' is required")
	}
	if err := s.mgr.SwitchThread(input.ThreadID); err != nil {
		return nil, SwitchThreadOutput{}, err
	}
	return nil, SwitchThreadOutput{ThreadID: input.ThreadID, Status: "switched"}, nil
}

// handleForkThread forks a thread, defaulting to the current one.
func (s *Server) handleForkThread(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input ForkThreadInput,
) (*gomcp.CallToolResult, ForkThreadOutput, error) {
	id, err := s.mgr.ForkThread(input.SourceThreadID, input.Name)
	if err != nil {
		return nil, ForkThreadOutput{}, err
	}
	t, err := s.mgr.GetThread(id)
	if err != nil {
		return nil, ForkThreadOutput{}, err
	}
	return nil, ForkThreadOutput{ThreadID: id, ParentID: t.ParentID}, nil
}

// handleAcceptHandoff runs the handoff acceptance saga.
func (s *Server) handleAcceptHandoff(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input AcceptHandoffInput,
) (*gomcp.CallToolResult, AcceptHandoffOutput, error) {
	if input.Markdown == "" {
		return nil, AcceptHandoffOutput{}, fmt.Errorf("'markdown' is required")
	}

	childID, err := handoff.ApplyAcceptance(s.mgr, s.db, s.agentFile, input.SourceThreadID, handoff.Summary{
		Title:    input.Title,
		TLDR:     input.TLDR,
		Markdown: input.Markdown,
	})
	if err != nil {
		return nil, AcceptHandoffOutput{}, err
	}

	child, err := s.mgr.GetThread(childID)
	if err != nil {
		return nil, AcceptHandoffOutput{}, err
	}

	out := AcceptHandoffOutput{ChildThreadID: childID}
	if child.Handoff != nil {
		out.HandoffID = child.Handoff.HandoffID
	}
	return nil, out, nil
}

// handleCompleteHandoff flips the pending/cleanup flags after the child's
// first turn and clears the summary block.
func (s *Server) handleCompleteHandoff(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input CompleteHandoffInput,
) (*gomcp.CallToolResult, CompleteHandoffOutput, error) {
	childID := input.ChildThreadID
	if childID == "" {
		current, err := s.mgr.CurrentThreadID()
		if err != nil {
			return nil, CompleteHandoffOutput{}, err
		}
		childID = current
	}

	if err := handoff.CompleteHandoff(s.mgr, s.agentFile, childID); err != nil {
		return nil, CompleteHandoffOutput{}, err
	}
	return nil, CompleteHandoffOutput{ChildThreadID: childID, Status: "completed"}, nil
}

// handleRecordTurn appends a turn to a thread's history.
func (s *Server) handleRecordTurn(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input RecordTurnInput,
) (*gomcp.CallToolResult, RecordTurnOutput, error) {
	if input.Content == "" {
		return nil, RecordTurnOutput{}, fmt.Errorf("'content' is required")
	}
	if input.Role != "user" && input.Role != "assistant" {
		return nil, RecordTurnOutput{}, fmt.Errorf("invalid role %q: must be user or assistant", input.Role)
	}

	threadID := input.ThreadID
	if threadID == "" {
		current, err := s.mgr.CurrentThreadID()
		if err != nil {
			return nil, RecordTurnOutput{}, err
		}
		threadID = current
	} else if _, err := s.mgr.GetThread(threadID); err != nil {
		return nil, RecordTurnOutput{}, err
	}

	turnID, err := s.db.RecordTurn(threadID, input.Role, input.Content)
	if err != nil {
		return nil, RecordTurnOutput{}, err
	}
	return nil, RecordTurnOutput{TurnID: turnID, ThreadID: threadID}, nil
}

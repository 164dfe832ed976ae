// Package mcp exposes thread management over the Model Context Protocol so
// agent harnesses can drive the same operations as the CLI.
package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deepagents/deepagents/internal/config"
	"github.com/deepagents/deepagents/internal/history"
	"github.com/deepagents/deepagents/internal/paths"
	"github.com/deepagents/deepagents/internal/threads"
)

// Server is the DeepAgents MCP server that exposes thread tools.
type Server struct {
	assistantID string
	agentFile   string
	mgr         *threads.Manager
	db          *history.DB
	version     string
	server      *gomcp.Server
}

// Option configures the MCP server.
type Option func(*Server)

// WithVersion sets the server version string.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates an MCP server for one assistant. It resolves the
// assistant state directory and opens the turn-history database.
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	dir, err := paths.EnsureAssistantDir(cfg.AssistantID)
	if err != nil {
		return nil, fmt.Errorf("resolve assistant directory: %w", err)
	}

	db, err := history.Open(paths.HistoryDBPath(dir))
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	s := &Server{
		assistantID: cfg.AssistantID,
		agentFile:   paths.AgentFilePath(dir),
		mgr:         threads.NewManager(cfg.AssistantID, dir, cfg.LockTimeout),
		db:          db,
		version:     "dev",
	}

	for _, opt := range opts {
		opt(s)
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "deepagents",
			Version: s.version,
		},
		nil,
	)

	s.registerTools()

	return s, nil
}

// Run starts the MCP server on stdin/stdout. It blocks until the client
// disconnects or the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	defer func() { _ = s.db.Close() }()
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// registerTools registers all MCP tool handlers with the server.
func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_threads",
		Description: "List the assistant's conversation threads, most recently used first",
	}, s.handleListThreads)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_thread",
		Description: "Create a new conversation thread and make it current",
	}, s.handleCreateThread)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "switch_thread",
		Description: "Make an existing thread the current one",
	}, s.handleSwitchThread)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "fork_thread",
		Description: "Fork a thread into a new one that records its parent lineage",
	}, s.handleForkThread)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "accept_handoff",
		Description: "Accept a handoff summary: write it into the shared agent file and start a pending child thread",
	}, s.handleAcceptHandoff)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "complete_handoff",
		Description: "Mark a child thread's first post-handoff turn as done and clear the summary block",
	}, s.handleCompleteHandoff)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "record_turn",
		Description: "Record a conversation turn into a thread's history",
	}, s.handleRecordTurn)
}

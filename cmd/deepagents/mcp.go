package main

import (
	"github.com/spf13/cobra"

	"github.com/deepagents/deepagents/internal/config"
	"github.com/deepagents/deepagents/internal/mcp"
)

// mcpCmd serves the thread tools over MCP stdio for agent harnesses.
func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve thread management tools over MCP (stdio)",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing the
assistant's thread operations (list, create, switch, fork, handoff
accept/complete, record_turn) as tools.

Register with an MCP-capable client, e.g.:
  { "command": "deepagents", "args": ["mcp"] }`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagAssistant)
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(cfg, mcp.WithVersion(Version))
			if err != nil {
				return err
			}
			return server.Run(cmd.Context())
		},
	}
}

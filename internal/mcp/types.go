package mcp

// ListThreadsInput is the input for the list_threads MCP tool.
type ListThreadsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Max threads to return. Default: all"`
}

// ThreadInfo represents a single thread returned by list_threads.
type ThreadInfo struct {
	ThreadID string `json:"thread_id"`
	Name     string `json:"name,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
	LastUsed string `json:"last_used"`
	Current  bool   `json:"current"`
}

// ListThreadsOutput is the output for the list_threads MCP tool.
type ListThreadsOutput struct {
	Threads []ThreadInfo `json:"threads"`
	Count   int          `json:"count"`
}

// CreateThreadInput is the input for the create_thread MCP tool.
type CreateThreadInput struct {
	Name string `json:"name,omitempty" jsonschema:"Optional human-readable thread label"`
}

// CreateThreadOutput is the output for the create_thread MCP tool.
type CreateThreadOutput struct {
	ThreadID string `json:"thread_id" jsonschema:"ID of the created thread, now current"`
}

// SwitchThreadInput is the input for the switch_thread MCP tool.
type SwitchThreadInput struct {
	ThreadID string `json:"thread_id" jsonschema:"Thread to make current"`
}

// SwitchThreadOutput is the output for the switch_thread MCP tool.
type SwitchThreadOutput struct {
	ThreadID string `json:"thread_id"`
	Status   string `json:"status" jsonschema:"Result status: switched"`
}

// ForkThreadInput is the input for the fork_thread MCP tool.
type ForkThreadInput struct {
	SourceThreadID string `json:"source_thread_id,omitempty" jsonschema:"Thread to fork. Default: current thread"`
	Name           string `json:"name,omitempty" jsonschema:"Optional label for the fork"`
}

// ForkThreadOutput is the output for the fork_thread MCP tool.
type ForkThreadOutput struct {
	ThreadID string `json:"thread_id" jsonschema:"ID of the forked thread, now current"`
	ParentID string `json:"parent_id"`
}

// AcceptHandoffInput is the input for the accept_handoff MCP tool.
type AcceptHandoffInput struct {
	SourceThreadID string `json:"source_thread_id,omitempty" jsonschema:"Thread being summarized. Default: current thread"`
	Title          string `json:"title,omitempty" jsonschema:"Short summary title"`
	TLDR           string `json:"tldr,omitempty" jsonschema:"One-line summary"`
	Markdown       string `json:"markdown" jsonschema:"Accepted summary body written into the agent file"`
}

// AcceptHandoffOutput is the output for the accept_handoff MCP tool.
type AcceptHandoffOutput struct {
	ChildThreadID string `json:"child_thread_id" jsonschema:"Pending child thread, now current"`
	HandoffID     string `json:"handoff_id"`
}

// CompleteHandoffInput is the input for the complete_handoff MCP tool.
type CompleteHandoffInput struct {
	ChildThreadID string `json:"child_thread_id,omitempty" jsonschema:"Child thread whose first turn completed. Default: current thread"`
}

// CompleteHandoffOutput is the output for the complete_handoff MCP tool.
type CompleteHandoffOutput struct {
	ChildThreadID string `json:"child_thread_id"`
	Status        string `json:"status" jsonschema:"Result status: completed"`
}

// RecordTurnInput is the input for the record_turn MCP tool.
type RecordTurnInput struct {
	ThreadID string `json:"thread_id,omitempty" jsonschema:"Thread to record into. Default: current thread"`
	Role     string `json:"role" jsonschema:"Turn author: user or assistant"`
	Content  string `json:"content" jsonschema:"Turn content"`
}

// RecordTurnOutput is the output for the record_turn MCP tool.
type RecordTurnOutput struct {
	TurnID   string `json:"turn_id"`
	ThreadID string `json:"thread_id"`
}

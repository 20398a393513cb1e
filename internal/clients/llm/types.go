package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry of a chat conversation in the OpenAI-compatible wire
// shape shared by all configured providers.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a directive emitted by the model naming a capability and its
// JSON-encoded arguments.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool declares a capability the model may invoke.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is a single chat-style invocation. Prior messages are sent
// verbatim, in order, between the system message and the new user message.
type Request struct {
	System   string
	User     string
	Messages []Message

	// Optional json_schema response constraint.
	SchemaName string
	Schema     map[string]any

	Tools []Tool

	// Model is a registry id (for example "gemini-2.5-flash"), not a
	// provider model string.
	Model string
}

// Invoker sends one chat request and returns the assistant's reply. A nil
// message with a non-nil error means generation failed (transport retries
// exhausted, or a non-retryable error); every caller must handle that case
// explicitly rather than relying on panics or sentinel content.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Message, error)
}

package agent

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry of the conversation sent to the model.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is a tool invocation requested by the model. Arguments is the raw
// JSON object text.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

type Response struct {
	Content   string
	ToolCalls []ToolCall
}

// Model is the hosted language model. It decides which tools to call and
// writes the final reply.
type Model interface {
	Complete(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error)
}

package domain

// Document is a single immutable corpus record. Chunked documents are
// represented as derived Documents whose metadata carries the parent id.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// SearchResult pairs a retrieved document with its similarity score.
type SearchResult struct {
	Document Document
	Score    float64
}

// Role tags a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of a conversation. The slice of messages making up a
// turn is append-only; entries are never mutated in place.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is a model-issued request to invoke a registered tool.
// It is emitted by the model, never constructed locally.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolResult carries a tool's output back into the conversation.
// CallID must match the originating ToolCall.ID exactly.
type ToolResult struct {
	CallID  string
	Content string
}

// ToolParam describes a single argument of a tool schema.
type ToolParam struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// ToolSchema declares a callable capability to the model ahead of time.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  []ToolParam
}

// ChatResponse is a single model response, possibly carrying tool calls.
// Empty Content alongside tool calls is valid: it signals "answer pending
// tool result".
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
}

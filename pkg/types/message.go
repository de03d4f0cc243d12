package types

// Role identifies the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of a conversation. A message with RoleAssistant may
// carry both Content and ToolCalls; a message with RoleTool carries the
// result of exactly one call and must set ToolCallID. Agent/Model/Tools are
// set only on a RoleUser message, recording what the sender asked for;
// ModelID/ProviderID/Tokens/Error/Finish/Cost describe what actually
// produced a RoleAssistant message.
type Message struct {
	ID         string        `json:"id"`
	SessionID  string        `json:"sessionID"`
	Role       Role          `json:"role"`
	Content    string        `json:"content,omitempty"`
	ToolCalls  []ToolCall    `json:"toolCalls,omitempty"`
	ToolCallID string        `json:"toolCallID,omitempty"`
	Time       MessageTime   `json:"time"`

	// Set on a user message to steer how it's processed.
	Agent  string          `json:"agent,omitempty"`
	Model  *ModelRef       `json:"model,omitempty"`
	System *string         `json:"system,omitempty"`
	Tools  map[string]bool `json:"tools,omitempty"`

	// Set on an assistant message once it's produced.
	ModelID    string        `json:"modelID,omitempty"`
	ProviderID string        `json:"providerID,omitempty"`
	Mode       string        `json:"mode,omitempty"`
	Finish     *string       `json:"finish,omitempty"`
	Cost       float64       `json:"cost,omitempty"`
	Tokens     *TokenUsage   `json:"tokens,omitempty"`
	Error      *MessageError `json:"error,omitempty"`
}

// ModelRef identifies a model by provider, e.g. {"anthropic", "claude-sonnet-4-20250514"}.
type ModelRef struct {
	ProviderID string `json:"providerID"`
	ModelID    string `json:"modelID"`
}

// ToolCall is a model-requested invocation of a tool.
//
// ID is opaque and provider-chosen; for Gemini the function name serves as
// the id (see provider.Adapter doc on the Gemini convention). Arguments is
// the raw JSON argument text exactly as the provider emitted it. Signature
// is an opaque thought-continuation token Gemini attaches to function
// calls; other providers leave it empty.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Signature string `json:"signature,omitempty"`
}

// MessageTime contains timestamps for a message.
type MessageTime struct {
	Created int64  `json:"created"`
	Updated *int64 `json:"updated,omitempty"`
}

// TokenUsage contains token usage statistics for a message.
type TokenUsage struct {
	Input     int        `json:"input"`
	Output    int        `json:"output"`
	Reasoning int        `json:"reasoning,omitempty"`
	Cache     CacheUsage `json:"cache,omitempty"`
}

// CacheUsage contains cache hit/write statistics.
type CacheUsage struct {
	Read  int `json:"read"`
	Write int `json:"write"`
}

// MessageError represents an error that occurred during message processing.
type MessageError struct {
	Type    string `json:"type"` // "api" | "auth" | "output_length" | "unknown"
	Message string `json:"message"`
}

// NewUnknownError wraps an error whose category wasn't identified by the
// provider adapter (as opposed to a classified auth/rate-limit/length
// failure), so the client still gets a MessageError shape to render.
func NewUnknownError(message string) *MessageError {
	return &MessageError{Type: "unknown", Message: message}
}

package domain

// Tool describes a capability the model can call
type Tool struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  JSONSchema `json:"inputSchema"`
}

type JSONSchema map[string]any

// ToolCallRequest is one model-issued tool invocation. Immutable once received.
type ToolCallRequest struct {
	ToolCallID     string         `json:"toolCallId"`
	Name           string         `json:"name"`
	RoundID        int            `json:"roundId"`
	TurnID         string         `json:"turnId"`
	ConversationID string         `json:"conversationId"`
	Input          map[string]any `json:"input,omitempty"`
}

// StringInput returns the named input as a string. ok is false when the key
// is missing or holds a non-string value.
func (r *ToolCallRequest) StringInput(key string) (string, bool) {
	if r == nil || r.Input == nil {
		return "", false
	}
	s, ok := r.Input[key].(string)
	return s, ok
}

// IntInput accepts JSON numbers (float64 after decoding) and Go ints.
func (r *ToolCallRequest) IntInput(key string) (int, bool) {
	if r == nil || r.Input == nil {
		return 0, false
	}
	switch v := r.Input[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

type ToolStatus string

const (
	ToolStatusRunning   ToolStatus = "running"
	ToolStatusCompleted ToolStatus = "completed"
	ToolStatusError     ToolStatus = "error"
	ToolStatusCancelled ToolStatus = "cancelled"
)

// ToolInvocationResult is the terminal outcome of one ToolCallRequest
type ToolInvocationResult struct {
	ToolCallID string     `json:"toolCallId"`
	Status     ToolStatus `json:"status"`
	Message    string     `json:"message"`
}

// ToolCallSummary is the history view of a tool call
type ToolCallSummary struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Status       ToolStatus       `json:"status"`
	InvokeParams *ToolCallRequest `json:"invokeParams,omitempty"`
}

// AgentRound is one unit of model activity within a turn
type AgentRound struct {
	RoundID   int               `json:"roundId"`
	Reply     string            `json:"reply"`
	ToolCalls []ToolCallSummary `json:"toolCalls,omitempty"`
}

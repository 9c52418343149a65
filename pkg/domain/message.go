package domain

import "strings"

// Role discriminates the Message variants.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// ToolCall represents a request from the model to run a tool.
// Compatible with OpenAI/Anthropic tool call shapes.
type ToolCall struct {
	ID   string         `json:"id" yaml:"id" mapstructure:"id"`
	Name string         `json:"name" yaml:"name" mapstructure:"name"`
	Args map[string]any `json:"args,omitempty" yaml:"args,omitempty" mapstructure:"args"`
}

// Message is one entry of the conversation.
//
// Which fields are meaningful depends on Role:
//   - RoleUser, RoleSystem: Content.
//   - RoleAssistant: Content and ToolCalls.
//   - RoleTool: ToolCallID, Content and IsError.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
}

// UserMessage builds a user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// SystemMessage builds a system instruction.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// AssistantMessage builds a model turn.
func AssistantMessage(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolResultMessage answers the tool call identified by callID.
func ToolResultMessage(callID, content string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, Content: content}
}

// ToolErrorMessage answers callID with a failure description the model can react to.
func ToolErrorMessage(callID, content string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, Content: content, IsError: true}
}

// HasToolCalls reports whether an assistant message requests tools.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// IsDegenerate reports an assistant output with neither tool calls nor text.
func (m Message) IsDegenerate() bool {
	return !m.HasToolCalls() && strings.TrimSpace(m.Content) == ""
}

// Clone deep-copies the message, including tool call arguments.
func (m Message) Clone() Message {
	out := m
	if m.ToolCalls != nil {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			out.ToolCalls[i] = tc.Clone()
		}
	}
	return out
}

// Clone deep-copies the call arguments.
func (tc ToolCall) Clone() ToolCall {
	out := tc
	if tc.Args != nil {
		out.Args = deepCopyMap(tc.Args)
	}
	return out
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return val
	}
}

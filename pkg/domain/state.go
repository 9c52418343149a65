package domain

import (
	"fmt"
	"time"
)

// ExecutionStatus defines the current mode of a session.
type ExecutionStatus string

const (
	StatusIdle      ExecutionStatus = "idle"      // Waiting for the next user message
	StatusRunning   ExecutionStatus = "running"   // A turn is in progress
	StatusSuspended ExecutionStatus = "suspended" // Waiting for a human approval decision
)

// Profile is the optional snapshot of the customer taken at session start.
type Profile map[string]any

// Clone deep-copies the profile.
func (p Profile) Clone() Profile {
	if p == nil {
		return nil
	}
	return Profile(deepCopyMap(p))
}

// ConversationState is the data every node reads and writes.
type ConversationState struct {
	// Messages is append-only.
	Messages []Message `json:"messages"`

	// Profile is the customer snapshot, nil when unknown.
	Profile Profile `json:"profile,omitempty"`

	// Stack holds the delegated contexts.
	Stack DialogStack `json:"dialog_stack"`
}

// NewConversationState creates an empty state.
func NewConversationState() *ConversationState {
	return &ConversationState{Messages: []Message{}}
}

// Append adds messages at the end of the history.
func (s *ConversationState) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
}

// Last returns the latest message.
func (s *ConversationState) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// LastAssistant returns the latest assistant message.
func (s *ConversationState) LastAssistant() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// PendingCalls returns the unanswered calls of the latest assistant message.
func (s *ConversationState) PendingCalls() []ToolCall {
	idx := -1
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	answered := make(map[string]bool)
	for _, m := range s.Messages[idx+1:] {
		if m.Role == RoleTool {
			answered[m.ToolCallID] = true
		}
	}
	var calls []ToolCall
	for _, call := range s.Messages[idx].ToolCalls {
		if !answered[call.ID] {
			calls = append(calls, call.Clone())
		}
	}
	return calls
}

// ActiveContext returns the context on top of the dialog stack.
func (s *ConversationState) ActiveContext() ContextID {
	return s.Stack.Top()
}

// Validate checks that every tool result answers a call emitted earlier in the state.
func (s *ConversationState) Validate() error {
	emitted := make(map[string]bool)
	for i, m := range s.Messages {
		switch m.Role {
		case RoleAssistant:
			for _, tc := range m.ToolCalls {
				emitted[tc.ID] = true
			}
		case RoleTool:
			if !emitted[m.ToolCallID] {
				return fmt.Errorf("message %d: tool result references unknown call %q", i, m.ToolCallID)
			}
		case RoleUser, RoleSystem:
		default:
			return fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
	}
	return nil
}

// Clone deep-copies the state so nodes can work on a private copy.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	out := &ConversationState{
		Messages: make([]Message, len(s.Messages)),
		Stack:    NewDialogStack(s.Stack.Frames()...),
	}
	for i, m := range s.Messages {
		out.Messages[i] = m.Clone()
	}
	if s.Profile != nil {
		out.Profile = s.Profile.Clone()
	}
	return out
}

// Checkpoint is the persisted snapshot of a session between node executions.
type Checkpoint struct {
	SessionID string            `json:"session_id"`
	State     ConversationState `json:"state"`

	// PendingNode is the node that runs next, empty when the turn is over.
	PendingNode NodeID `json:"pending_node,omitempty"`

	Status ExecutionStatus `json:"status"`

	// Turn counts user messages accepted by the session.
	Turn int `json:"turn"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewCheckpoint creates an idle checkpoint with an empty state.
func NewCheckpoint(sessionID string) *Checkpoint {
	return &Checkpoint{
		SessionID: sessionID,
		State:     *NewConversationState(),
		Status:    StatusIdle,
	}
}

// Clone deep-copies the checkpoint.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	out := *c
	out.State = *c.State.Clone()
	return &out
}

// Pending rebuilds the approval a suspended checkpoint waits on, nil otherwise.
func (c *Checkpoint) Pending() *PendingApproval {
	if c == nil || c.Status != StatusSuspended {
		return nil
	}
	return &PendingApproval{Node: c.PendingNode, ToolCalls: c.State.PendingCalls()}
}

// PendingApproval is returned to the caller when a turn suspends before a gated node.
type PendingApproval struct {
	Node      NodeID     `json:"node"`
	ToolCalls []ToolCall `json:"tool_calls"`
}

// Outcome is the result of one caller-facing turn.
// Exactly one of Reply and Pending is set.
type Outcome struct {
	SessionID string           `json:"session_id"`
	Reply     *Message         `json:"reply,omitempty"`
	Pending   *PendingApproval `json:"pending,omitempty"`
}

// Suspended reports whether the turn stopped for an approval decision.
func (o *Outcome) Suspended() bool {
	return o != nil && o.Pending != nil
}

// SessionInit describes a new session.
type SessionInit struct {
	// SessionID is generated when empty.
	SessionID string `json:"session_id,omitempty" mapstructure:"session_id"`

	// CustomerID, when non-zero, is used to snapshot the customer's profile.
	CustomerID int `json:"customer_id,omitempty" mapstructure:"customer_id"`

	// Profile seeds the snapshot directly and skips the lookup.
	Profile Profile `json:"profile,omitempty" mapstructure:"profile"`
}

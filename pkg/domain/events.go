package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter  EventType = "node_enter"
	EventNodeLeave  EventType = "node_leave"
	EventToolCall   EventType = "tool_call"
	EventToolReturn EventType = "tool_return"
	EventSuspend    EventType = "suspend"
	EventResume     EventType = "resume"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID   NodeID `json:"node_id"`
	NodeKind string `json:"node_kind"`
}

// ToolEvent represents a tool execution.
type ToolEvent struct {
	EventBase
	NodeID   NodeID        `json:"node_id"`
	ToolName string        `json:"tool_name"`
	CallID   string        `json:"call_id"`
	Input    any           `json:"input,omitempty"`
	Output   any           `json:"output,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// ApprovalEvent represents a suspension or its resolution.
type ApprovalEvent struct {
	EventBase
	NodeID   NodeID `json:"node_id"`
	Calls    int    `json:"calls"`
	Approved bool   `json:"approved,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run synchronously on the session's goroutine, except tool hooks which may run
// on tool worker goroutines.
type LifecycleHooks struct {
	OnNodeEnter  func(context.Context, *NodeEvent)
	OnNodeLeave  func(context.Context, *NodeEvent)
	OnToolCall   func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
	OnSuspend    func(context.Context, *ApprovalEvent)
	OnResume     func(context.Context, *ApprovalEvent)
}

// Merge returns hooks calling h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter:  chain(h.OnNodeEnter, other.OnNodeEnter),
		OnNodeLeave:  chain(h.OnNodeLeave, other.OnNodeLeave),
		OnToolCall:   chain(h.OnToolCall, other.OnToolCall),
		OnToolReturn: chain(h.OnToolReturn, other.OnToolReturn),
		OnSuspend:    chain(h.OnSuspend, other.OnSuspend),
		OnResume:     chain(h.OnResume, other.OnResume),
	}
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}

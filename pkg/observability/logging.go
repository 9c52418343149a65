package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/relay/pkg/domain"
)

// LogHooks returns lifecycle hooks that write every event to logger at debug level,
// except approvals which are logged at info.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "session_id", e.SessionID, "node", e.NodeID, "kind", e.NodeKind)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave", "session_id", e.SessionID, "node", e.NodeID)
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_call", "session_id", e.SessionID, "tool", e.ToolName, "call_id", e.CallID)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_return",
				"session_id", e.SessionID,
				"tool", e.ToolName,
				"is_error", e.IsError,
				"duration", e.Duration,
			)
		},
		OnSuspend: func(ctx context.Context, e *domain.ApprovalEvent) {
			logger.InfoContext(ctx, "suspend", "session_id", e.SessionID, "node", e.NodeID, "calls", e.Calls)
		},
		OnResume: func(ctx context.Context, e *domain.ApprovalEvent) {
			logger.InfoContext(ctx, "resume", "session_id", e.SessionID, "node", e.NodeID, "approved", e.Approved)
		},
	}
}

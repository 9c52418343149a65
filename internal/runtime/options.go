package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/relay/pkg/domain"
)

// DefaultMaxSteps bounds node executions per turn.
const DefaultMaxSteps = 25

// DefaultInterruptBefore lists the nodes that need human approval before running.
var DefaultInterruptBefore = []domain.NodeID{domain.NodeCustomerSensitiveTools}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithMaxAttempts bounds corrective retries of an assistant node.
func WithMaxAttempts(n int) EngineOption {
	return func(e *Engine) {
		e.maxAttempts = n
	}
}

// WithMaxSteps bounds node executions per turn.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithToolConcurrency bounds parallel tool calls within one tool node.
func WithToolConcurrency(n int) EngineOption {
	return func(e *Engine) {
		e.toolConcurrency = n
	}
}

// WithInterruptBefore replaces the set of nodes that suspend the turn for approval.
// An empty call disables approvals entirely.
func WithInterruptBefore(nodes ...domain.NodeID) EngineOption {
	return func(e *Engine) {
		e.interrupt = make(map[domain.NodeID]bool, len(nodes))
		for _, n := range nodes {
			e.interrupt[n] = true
		}
	}
}

// WithInstructions overrides the per-context system prompts.
func WithInstructions(fn InstructionsFunc) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.instructions = fn
		}
	}
}

// WithClock overrides the time source used for checkpoint timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides how new session IDs are generated.
func WithIDGenerator(gen func() string) EngineOption {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/relay/internal/logging"
	"github.com/aretw0/relay/internal/presentation/graph"
	"github.com/aretw0/relay/internal/runtime"
	"github.com/aretw0/relay/pkg/adapters/memory"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/persistence/middleware"
	"github.com/aretw0/relay/pkg/ports"
	"github.com/aretw0/relay/pkg/runner"
	"github.com/aretw0/relay/pkg/session"
)

// Engine is the high-level entry point for the Relay library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime *runtime.Engine

	store       ports.CheckpointStore
	middlewares []middleware.Middleware
	locker      ports.DistributedLocker
	lockTTL     time.Duration
	runtimeOpts []runtime.EngineOption
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets the checkpoint store. Defaults to an in-memory store.
func WithStore(store ports.CheckpointStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithStoreMiddleware wraps the store; the first middleware is the outermost.
func WithStoreMiddleware(mws ...middleware.Middleware) Option {
	return func(e *Engine) {
		e.middlewares = append(e.middlewares, mws...)
	}
}

// WithLocker enables cross-replica session locking.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = locker
		e.lockTTL = ttl
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxAttempts bounds corrective retries of an assistant.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxAttempts(n))
	}
}

// WithMaxSteps bounds node executions per turn.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxSteps(n))
	}
}

// WithToolConcurrency bounds parallel tool calls within one tool node.
func WithToolConcurrency(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithToolConcurrency(n))
	}
}

// WithInterruptBefore replaces the set of nodes that wait for a human decision.
func WithInterruptBefore(nodes ...domain.NodeID) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithInterruptBefore(nodes...))
	}
}

// WithInstructions overrides the per-context system prompts.
func WithInstructions(fn func(domain.ContextID, domain.Profile) string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithInstructions(fn))
	}
}

// New initializes a Relay engine around a completion backend and a tool provider.
func New(completion ports.CompletionService, provider ports.ToolProvider, opts ...Option) (*Engine, error) {
	if completion == nil {
		return nil, errors.New("relay: completion service is required")
	}
	if provider == nil {
		return nil, errors.New("relay: tool provider is required")
	}

	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	store := middleware.Chain(eng.store, eng.middlewares...)

	sessionOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(eng.locker), session.WithLockTTL(eng.lockTTL))
	}
	sessions := session.NewManager(store, sessionOpts...)

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)

	eng.runtime = runtime.NewEngine(completion, provider, sessions, runtimeOpts...)
	return eng, nil
}

// StartSession creates a session, optionally snapshotting a customer's profile.
func (e *Engine) StartSession(ctx context.Context, init domain.SessionInit) (string, error) {
	return e.runtime.Start(ctx, init)
}

// PostMessage sanitizes the text and runs one turn of the session.
func (e *Engine) PostMessage(ctx context.Context, sessionID, text string) (*domain.Outcome, error) {
	clean, err := runner.SanitizeInput(text)
	if err != nil {
		return nil, err
	}
	return e.runtime.PostMessage(ctx, sessionID, clean)
}

// ResolveApproval approves or denies the pending tool calls of a suspended session.
func (e *Engine) ResolveApproval(ctx context.Context, sessionID string, approved bool, reason string) (*domain.Outcome, error) {
	if !approved {
		clean, err := runner.SanitizeInput(reason)
		if err != nil {
			return nil, err
		}
		reason = clean
	}
	return e.runtime.ResolveApproval(ctx, sessionID, approved, reason)
}

// Checkpoint returns the latest persisted snapshot of a session.
func (e *Engine) Checkpoint(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	return e.runtime.Checkpoint(ctx, sessionID)
}

// DeleteSession removes a session.
func (e *Engine) DeleteSession(ctx context.Context, sessionID string) error {
	return e.runtime.Delete(ctx, sessionID)
}

// ListSessions returns the known session IDs.
func (e *Engine) ListSessions(ctx context.Context) ([]string, error) {
	return e.runtime.List(ctx)
}

// Inspect returns the execution graph.
func (e *Engine) Inspect() []domain.Node {
	return runtime.Inspect()
}

// Mermaid renders the execution graph. With a session ID, the session's pending node is highlighted.
func (e *Engine) Mermaid(ctx context.Context, sessionID string) (string, error) {
	overlay := &graph.GraphOverlay{Gated: e.runtime.InterruptBefore()}
	if sessionID != "" {
		cp, err := e.runtime.Checkpoint(ctx, sessionID)
		if err != nil {
			return "", err
		}
		overlay.CurrentNode = cp.PendingNode
	}
	return graph.GenerateMermaid(runtime.Inspect(), overlay), nil
}

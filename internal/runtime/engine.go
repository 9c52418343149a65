package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/relay/internal/logging"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
	"github.com/aretw0/relay/pkg/session"
	"github.com/google/uuid"
)

// Engine drives conversations through the execution graph.
// It checkpoints after every node and suspends before nodes in the interrupt set.
type Engine struct {
	sessions *session.Manager
	provider ports.ToolProvider

	assistant *Assistant
	tools     *ToolRunner

	completion      ports.CompletionService
	instructions    InstructionsFunc
	maxAttempts     int
	toolConcurrency int
	maxSteps        int
	interrupt       map[domain.NodeID]bool
	hooks           domain.LifecycleHooks
	logger          *slog.Logger
	now             func() time.Time
	newID           func() string
}

// NewEngine wires the engine to its collaborators.
func NewEngine(completion ports.CompletionService, provider ports.ToolProvider, sessions *session.Manager, opts ...EngineOption) *Engine {
	e := &Engine{
		sessions:     sessions,
		provider:     provider,
		completion:   completion,
		instructions: DefaultInstructions,
		maxSteps:     DefaultMaxSteps,
		logger:       logging.NewNop(),
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
	}
	WithInterruptBefore(DefaultInterruptBefore...)(e)

	for _, opt := range opts {
		opt(e)
	}

	e.assistant = NewAssistant(e.completion, e.instructions, e.maxAttempts, e.logger)
	e.tools = NewToolRunner(e.provider, e.toolConcurrency, e.hooks, e.logger)
	return e
}

// Sessions returns the session manager guarding the checkpoint store.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// InterruptBefore returns the nodes that suspend a turn for approval, in graph order.
func (e *Engine) InterruptBefore() []domain.NodeID {
	var out []domain.NodeID
	for _, n := range graph {
		if e.interrupt[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out
}

// Start creates a session and persists its first idle checkpoint.
func (e *Engine) Start(ctx context.Context, init domain.SessionInit) (string, error) {
	id := init.SessionID
	if id == "" {
		id = e.newID()
	}

	cp := domain.NewCheckpoint(id)
	switch {
	case init.Profile != nil:
		cp.State.Profile = init.Profile.Clone()
	case init.CustomerID != 0:
		profile, err := e.fetchProfile(ctx, init.CustomerID)
		if err != nil {
			return "", err
		}
		cp.State.Profile = profile
	}
	if len(cp.State.Profile) > 0 {
		cp.State.Append(domain.SystemMessage(introduction(cp.State.Profile)))
	}

	err := e.sessions.WithLock(ctx, id, func(ctx context.Context) error {
		store := e.sessions.Store()
		if _, err := store.Load(ctx, id); err == nil {
			return domain.ErrSessionExists
		} else if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to check session existence: %w", err)
		}
		cp.UpdatedAt = e.now()
		if err := store.Save(ctx, id, cp); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	e.logger.Info("session started", "session_id", id, "profile", cp.State.Profile != nil)
	return id, nil
}

func (e *Engine) fetchProfile(ctx context.Context, customerID int) (domain.Profile, error) {
	out, err := e.provider.Invoke(ctx, domain.ToolGetCustomerInfo, map[string]any{"customer_id": customerID})
	if err != nil {
		return nil, fmt.Errorf("%w: customer %d: %w", domain.ErrProfileUnavailable, customerID, err)
	}
	if m, ok := out.(map[string]any); ok {
		return domain.Profile(m).Clone(), nil
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode customer %d: %w", customerID, err)
	}
	var profile domain.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("%w: customer %d is not an object: %w", domain.ErrProfileUnavailable, customerID, err)
	}
	return profile, nil
}

// PostMessage appends a user message and runs the turn until it ends or suspends.
// Unknown sessions start empty.
func (e *Engine) PostMessage(ctx context.Context, sessionID, text string) (*domain.Outcome, error) {
	var out *domain.Outcome
	err := e.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		cp, err := session.LoadOrNew(ctx, e.sessions.Store(), sessionID)
		if err != nil {
			return err
		}

		switch cp.Status {
		case domain.StatusSuspended:
			return domain.ErrApprovalPending
		case domain.StatusRunning:
			// A replica died mid-turn. Its partial work is kept and the turn is abandoned.
			closed := closeDangling(&cp.State, "turn interrupted before this call completed")
			e.logger.Warn("recovering stale running session", "session_id", sessionID, "node", cp.PendingNode, "closed_calls", closed)
		}

		cp.State.Append(domain.UserMessage(text))
		cp.Turn++
		cp.Status = domain.StatusRunning
		cp.PendingNode = EntryNode(cp.State.Stack)
		if err := e.save(ctx, cp); err != nil {
			return err
		}

		out, err = e.run(ctx, cp, cp.PendingNode)
		return err
	})
	return out, err
}

// ResolveApproval answers a suspended turn.
// Approval runs the pending node with the state unchanged. Denial answers every pending
// call with the reason and hands the turn back to the active assistant.
func (e *Engine) ResolveApproval(ctx context.Context, sessionID string, approved bool, reason string) (*domain.Outcome, error) {
	var out *domain.Outcome
	err := e.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		cp, err := e.sessions.Store().Load(ctx, sessionID)
		if err != nil {
			return err
		}
		if cp.Status != domain.StatusSuspended || cp.PendingNode == "" {
			return domain.ErrNotSuspended
		}

		pending := cp.State.PendingCalls()
		if e.hooks.OnResume != nil {
			e.hooks.OnResume(ctx, &domain.ApprovalEvent{
				EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventResume, SessionID: sessionID},
				NodeID:    cp.PendingNode,
				Calls:     len(pending),
				Approved:  approved,
				Reason:    reason,
			})
		}

		next := cp.PendingNode
		if !approved {
			for _, call := range pending {
				cp.State.Append(domain.ToolResultMessage(call.ID, domain.DenialContent(reason)))
			}
			next = EntryNode(cp.State.Stack)
			e.logger.Info("action denied", "session_id", sessionID, "node", cp.PendingNode, "calls", len(pending))
		} else {
			e.logger.Info("action approved", "session_id", sessionID, "node", cp.PendingNode, "calls", len(pending))
		}

		cp.Status = domain.StatusRunning
		cp.PendingNode = next
		if err := e.save(ctx, cp); err != nil {
			return err
		}

		out, err = e.run(ctx, cp, next)
		return err
	})
	return out, err
}

// Checkpoint returns the latest persisted checkpoint of a session.
func (e *Engine) Checkpoint(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	return e.sessions.Load(ctx, sessionID)
}

// Delete removes a session.
func (e *Engine) Delete(ctx context.Context, sessionID string) error {
	return e.sessions.Delete(ctx, sessionID)
}

// List returns the stored session IDs.
func (e *Engine) List(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// run executes nodes from start until the turn ends, suspends or fails.
// cp is the last persisted checkpoint; nodes work on a clone so a failing node leaves it intact.
func (e *Engine) run(ctx context.Context, cp *domain.Checkpoint, start domain.NodeID) (*domain.Outcome, error) {
	logger := e.logger.With("session_id", cp.SessionID)
	node := start

	for steps := 0; ; steps++ {
		if steps >= e.maxSteps {
			return nil, e.abort(ctx, cp, fmt.Errorf("%w: %d", domain.ErrMaxStepsExceeded, e.maxSteps))
		}
		if err := ctx.Err(); err != nil {
			return nil, e.abort(ctx, cp, err)
		}

		work := cp.State.Clone()
		next, reply, err := e.execute(ctx, cp.SessionID, node, work)
		if err != nil {
			logger.Error("node failed", "node", node, "err", err)
			return nil, e.abort(ctx, cp, err)
		}

		saved := &domain.Checkpoint{
			SessionID:   cp.SessionID,
			State:       *work,
			PendingNode: next,
			Status:      domain.StatusRunning,
			Turn:        cp.Turn,
		}
		switch {
		case next == domain.NodeEnd:
			saved.PendingNode = ""
			saved.Status = domain.StatusIdle
		case e.interrupt[next]:
			saved.Status = domain.StatusSuspended
		}
		if err := e.save(ctx, saved); err != nil {
			return nil, err
		}
		cp = saved

		logger.Debug("node done", "node", node, "next", next)

		switch saved.Status {
		case domain.StatusIdle:
			return &domain.Outcome{SessionID: cp.SessionID, Reply: reply}, nil
		case domain.StatusSuspended:
			pending := &domain.PendingApproval{Node: next, ToolCalls: cp.State.PendingCalls()}
			if e.hooks.OnSuspend != nil {
				e.hooks.OnSuspend(ctx, &domain.ApprovalEvent{
					EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventSuspend, SessionID: cp.SessionID},
					NodeID:    next,
					Calls:     len(pending.ToolCalls),
				})
			}
			logger.Info("awaiting approval", "node", next, "calls", len(pending.ToolCalls))
			return &domain.Outcome{SessionID: cp.SessionID, Pending: pending}, nil
		}
		node = next
	}
}

// execute runs one node on st and returns the node that follows it.
// reply is set when the turn ends.
func (e *Engine) execute(ctx context.Context, sessionID string, id domain.NodeID, st *domain.ConversationState) (next domain.NodeID, reply *domain.Message, err error) {
	n, ok := LookupNode(id)
	if !ok {
		return "", nil, fmt.Errorf("unknown node %q", id)
	}

	e.fireNode(ctx, e.hooks.OnNodeEnter, domain.EventNodeEnter, sessionID, n)
	defer func() {
		if err == nil {
			e.fireNode(ctx, e.hooks.OnNodeLeave, domain.EventNodeLeave, sessionID, n)
		}
	}()

	switch n.Kind {
	case domain.NodeKindAssistant:
		msg, err := e.assistant.Run(ctx, st, n.Context)
		if err != nil {
			return "", nil, err
		}
		next, err := Route(msg, st.Stack)
		if err != nil {
			return "", nil, err
		}
		st.Append(msg)
		if next == domain.NodeEnd {
			reply = &msg
		}
		return next, reply, nil

	case domain.NodeKindTools:
		last, _ := st.LastAssistant()
		st.Append(e.tools.Run(ctx, sessionID, id, last.ToolCalls)...)
		return domain.AssistantNodeFor(n.Context), nil, nil

	case domain.NodeKindEnter:
		last, _ := st.LastAssistant()
		Enter(st, n.Context, last)
		return domain.AssistantNodeFor(n.Context), nil, nil

	case domain.NodeKindLeave:
		last, _ := st.LastAssistant()
		popped, ok := Leave(st, last)
		if !ok {
			e.logger.Debug("leave on empty dialog stack", "session_id", sessionID)
		} else {
			e.logger.Debug("context left", "session_id", sessionID, "context", popped)
		}
		return EntryNode(st.Stack), nil, nil
	}

	return "", nil, fmt.Errorf("node %q has unknown kind %q", id, n.Kind)
}

// abort demotes the last good checkpoint to idle and returns cause.
func (e *Engine) abort(ctx context.Context, cp *domain.Checkpoint, cause error) error {
	demoted := cp.Clone()
	closeDangling(&demoted.State, "turn aborted before this call ran")
	demoted.Status = domain.StatusIdle
	demoted.PendingNode = ""

	if err := e.save(context.WithoutCancel(ctx), demoted); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (e *Engine) save(ctx context.Context, cp *domain.Checkpoint) error {
	cp.UpdatedAt = e.now()
	if err := e.sessions.Store().Save(ctx, cp.SessionID, cp); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (e *Engine) fireNode(ctx context.Context, hook func(context.Context, *domain.NodeEvent), typ domain.EventType, sessionID string, n domain.Node) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: typ, SessionID: sessionID},
		NodeID:    n.ID,
		NodeKind:  n.Kind,
	})
}

package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
	"golang.org/x/sync/errgroup"
)

// DefaultToolConcurrency bounds parallel tool invocations within one node.
const DefaultToolConcurrency = 4

// ToolRunner executes the tool calls of one assistant message.
type ToolRunner struct {
	provider ports.ToolProvider
	limit    int
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
}

// NewToolRunner builds a tool node runner.
func NewToolRunner(provider ports.ToolProvider, limit int, hooks domain.LifecycleHooks, logger *slog.Logger) *ToolRunner {
	if limit <= 0 {
		limit = DefaultToolConcurrency
	}
	return &ToolRunner{provider: provider, limit: limit, hooks: hooks, logger: logger}
}

// Run invokes every call and returns exactly one result per call, in input order.
// Failures are converted into error results and never affect sibling calls.
func (r *ToolRunner) Run(ctx context.Context, sessionID string, node domain.NodeID, calls []domain.ToolCall) []domain.Message {
	results := make([]domain.Message, len(calls))

	var g errgroup.Group
	g.SetLimit(r.limit)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = r.invoke(ctx, sessionID, node, call)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (r *ToolRunner) invoke(ctx context.Context, sessionID string, node domain.NodeID, call domain.ToolCall) domain.Message {
	event := &domain.ToolEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventToolCall, SessionID: sessionID},
		NodeID:    node,
		ToolName:  call.Name,
		CallID:    call.ID,
		Input:     call.Args,
	}
	if r.hooks.OnToolCall != nil {
		r.hooks.OnToolCall(ctx, event)
	}

	start := time.Now()
	out, err := r.call(ctx, call)
	duration := time.Since(start)

	var msg domain.Message
	if err != nil {
		r.logger.Warn("tool failed", "session_id", sessionID, "tool", call.Name, "err", err)
		msg = domain.ToolErrorMessage(call.ID, ToolErrorContent(err))
	} else {
		msg = domain.ToolResultMessage(call.ID, encodeResult(out))
	}

	if r.hooks.OnToolReturn != nil {
		ret := *event
		ret.Type = domain.EventToolReturn
		ret.Timestamp = time.Now()
		ret.Output = msg.Content
		ret.IsError = msg.IsError
		ret.Duration = duration
		r.hooks.OnToolReturn(ctx, &ret)
	}
	return msg
}

func (r *ToolRunner) call(ctx context.Context, call domain.ToolCall) (out any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("tool %s panicked: %v", call.Name, p)
		}
	}()

	tool, ok := domain.ParseTool(call.Name)
	if !ok || tool.IsControl() {
		return nil, fmt.Errorf("unknown tool %q", call.Name)
	}
	args := call.Clone().Args
	if args == nil {
		args = map[string]any{}
	}
	return r.provider.Invoke(ctx, tool, args)
}

// ToolErrorContent is the result text of a failed tool call.
func ToolErrorContent(err error) string {
	return fmt.Sprintf("Error: %v\nPlease fix your request.", err)
}

func encodeResult(out any) string {
	switch v := out.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return "null"
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprint(out)
	}
	return string(data)
}

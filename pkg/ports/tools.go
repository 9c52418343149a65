package ports

import (
	"context"

	"github.com/aretw0/relay/pkg/domain"
)

// ToolProvider executes a single tool call.
// A returned error is reported back to the model as the call's result; it never aborts a turn.
type ToolProvider interface {
	Invoke(ctx context.Context, tool domain.Tool, args map[string]any) (any, error)
}

// ToolProviderFunc adapts a function to ToolProvider.
type ToolProviderFunc func(ctx context.Context, tool domain.Tool, args map[string]any) (any, error)

// Invoke calls f.
func (f ToolProviderFunc) Invoke(ctx context.Context, tool domain.Tool, args map[string]any) (any, error) {
	return f(ctx, tool, args)
}

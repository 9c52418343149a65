package ports

import (
	"context"

	"github.com/aretw0/relay/pkg/domain"
)

// CompletionRequest is everything a completion backend needs to produce one assistant turn.
type CompletionRequest struct {
	// Context is the assistant the turn is produced for.
	Context domain.ContextID

	// Instructions is the system prompt of the context.
	Instructions string

	// Messages is the conversation so far, including any corrective messages.
	Messages []domain.Message

	// Profile is the customer snapshot, if any.
	Profile domain.Profile

	// Tools are the schemas bound to the context.
	Tools []domain.ToolSpec
}

// CompletionService produces one assistant message.
// Transport or model failures are returned as errors; the engine wraps them in
// domain.CompletionError.
type CompletionService interface {
	Complete(ctx context.Context, req CompletionRequest) (domain.Message, error)
}

// CompletionFunc adapts a function to CompletionService.
type CompletionFunc func(ctx context.Context, req CompletionRequest) (domain.Message, error)

// Complete calls f.
func (f CompletionFunc) Complete(ctx context.Context, req CompletionRequest) (domain.Message, error) {
	return f(ctx, req)
}

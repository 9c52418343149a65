package runtime

import (
	"context"
	"log/slog"

	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
	"github.com/google/uuid"
)

// DefaultMaxAttempts bounds completions per assistant node execution.
const DefaultMaxAttempts = 3

// Assistant produces one assistant message for a context.
type Assistant struct {
	completion   ports.CompletionService
	instructions InstructionsFunc
	maxAttempts  int
	logger       *slog.Logger
}

// NewAssistant builds an assistant node runner.
func NewAssistant(completion ports.CompletionService, instructions InstructionsFunc, maxAttempts int, logger *slog.Logger) *Assistant {
	if instructions == nil {
		instructions = DefaultInstructions
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Assistant{
		completion:   completion,
		instructions: instructions,
		maxAttempts:  maxAttempts,
		logger:       logger,
	}
}

// Run asks the completion service for one usable message.
// Degenerate outputs are retried with a corrective message that never reaches the state;
// after maxAttempts the fixed apology is returned instead.
func (a *Assistant) Run(ctx context.Context, st *domain.ConversationState, c domain.ContextID) (domain.Message, error) {
	req := ports.CompletionRequest{
		Context:      c,
		Instructions: a.instructions(c, st.Profile),
		Messages:     st.Clone().Messages,
		Profile:      st.Profile,
		Tools:        domain.SpecsFor(c),
	}

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		msg, err := a.completion.Complete(ctx, req)
		if err != nil {
			return domain.Message{}, &domain.CompletionError{Context: c, Err: err}
		}
		msg.Role = domain.RoleAssistant
		msg.ToolCallID = ""
		msg.IsError = false

		if !msg.IsDegenerate() {
			assignCallIDs(&msg)
			return msg, nil
		}

		a.logger.Debug("degenerate completion", "context", c, "attempt", attempt)
		req.Messages = append(req.Messages, domain.UserMessage(domain.CorrectiveInstruction))
	}

	a.logger.Warn("completion retries exhausted", "context", c, "attempts", a.maxAttempts)
	return domain.AssistantMessage(domain.ApologyMessage), nil
}

// assignCallIDs gives every call a unique ID within the message.
func assignCallIDs(msg *domain.Message) {
	seen := make(map[string]bool, len(msg.ToolCalls))
	for i := range msg.ToolCalls {
		id := msg.ToolCalls[i].ID
		if id == "" || seen[id] {
			id = "call_" + uuid.NewString()
			msg.ToolCalls[i].ID = id
		}
		seen[id] = true
	}
}

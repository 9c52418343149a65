package runner

import (
	"context"

	"github.com/aretw0/relay/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Input reads the next customer message.
	Input(ctx context.Context) (string, error)

	// Reply presents the assistant's answer.
	Reply(ctx context.Context, msg domain.Message) error

	// Approval presents gated tool calls and reads the decision.
	// A denial carries the reason the model sees.
	Approval(ctx context.Context, pending *domain.PendingApproval) (approved bool, reason string, err error)

	// SystemOutput presents a meta-message to the user (errors, status updates).
	SystemOutput(ctx context.Context, msg string) error
}

// Conversation is the part of the engine the runner drives.
type Conversation interface {
	PostMessage(ctx context.Context, sessionID, text string) (*domain.Outcome, error)
	ResolveApproval(ctx context.Context, sessionID string, approved bool, reason string) (*domain.Outcome, error)
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

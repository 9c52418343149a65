package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/relay/internal/logging"
	"github.com/aretw0/relay/pkg/domain"
)

// Runner handles the chat loop of a session using the provided IO.
// This allows for easy testing and integration with different frontends (CLI, TUI, etc).
type Runner struct {
	Handler IOHandler
	Logger  *slog.Logger

	// Pending resumes a session that was left waiting for an approval.
	Pending *domain.PendingApproval
}

// NewRunner creates a Runner reading Stdin and writing Stdout.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{Logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	return r
}

// Run reads messages until EOF or an exit command.
// Failed turns are reported and the loop continues; only IO and context errors end it.
func (r *Runner) Run(ctx context.Context, conv Conversation, sessionID string) error {
	logger := r.Logger.With("session_id", sessionID)

	if r.Pending != nil {
		if err := r.settle(ctx, conv, sessionID, &domain.Outcome{SessionID: sessionID, Pending: r.Pending}); err != nil {
			return err
		}
		r.Pending = nil
	}

	for {
		text, err := r.Handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if isExit(text) {
			_ = r.Handler.SystemOutput(ctx, "Goodbye!")
			return nil
		}
		if text == "" {
			continue
		}

		outcome, err := conv.PostMessage(ctx, sessionID, text)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("turn failed", "err", err)
			if err := r.Handler.SystemOutput(ctx, fmt.Sprintf("Error: %v", err)); err != nil {
				return err
			}
			continue
		}
		if err := r.settle(ctx, conv, sessionID, outcome); err != nil {
			return err
		}
	}
}

// settle resolves approvals until the turn produces a reply.
func (r *Runner) settle(ctx context.Context, conv Conversation, sessionID string, outcome *domain.Outcome) error {
	for outcome.Suspended() {
		approved, reason, err := r.Handler.Approval(ctx, outcome.Pending)
		if err != nil {
			return err
		}
		r.Logger.Info("approval decided", "session_id", sessionID, "node", outcome.Pending.Node, "approved", approved)

		next, err := conv.ResolveApproval(ctx, sessionID, approved, reason)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return r.Handler.SystemOutput(ctx, fmt.Sprintf("Error: %v", err))
		}
		outcome = next
	}
	if outcome.Reply == nil {
		return nil
	}
	return r.Handler.Reply(ctx, *outcome.Reply)
}

func isExit(text string) bool {
	switch strings.ToLower(text) {
	case "exit", "quit", "q":
		return true
	}
	return false
}

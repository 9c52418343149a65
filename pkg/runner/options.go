package runner

import (
	"log/slog"

	"github.com/aretw0/relay/pkg/domain"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.Logger = logger
		}
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithPending resumes a session suspended before a gated node.
func WithPending(pending *domain.PendingApproval) Option {
	return func(r *Runner) {
		r.Pending = pending
	}
}

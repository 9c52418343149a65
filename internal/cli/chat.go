package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/runner"
)

// ChatOptions configure an interactive session.
type ChatOptions struct {
	// SessionID resumes the session when it exists and names the new one otherwise.
	SessionID  string
	CustomerID int

	// JSON switches to NDJSON input and output.
	JSON bool

	In       io.Reader
	Out      io.Writer
	Renderer runner.ContentRenderer

	// Quiet suppresses the session status lines.
	Quiet bool
}

// RunChat starts or resumes a session and runs the chat loop until EOF, exit or ctx is done.
func RunChat(ctx context.Context, app *App, opts ChatOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	quiet := opts.Quiet || opts.JSON

	sessionID, pending, resumed, err := openSession(ctx, app, opts)
	if err != nil {
		return fmt.Errorf("failed to init session: %w", err)
	}

	logger := app.Logger.With("session_id", sessionID)
	if resumed {
		logger.Info("session resumed", "pending", pending != nil)
		if !quiet {
			printSystemMessage(opts.Out, "Resuming session '%s'.", sessionID)
		}
	} else {
		logger.Info("session created", "customer_id", opts.CustomerID)
		if !quiet {
			printSystemMessage(opts.Out, "Session '%s' active. Type 'exit' to leave.", sessionID)
		}
	}

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(opts.In, opts.Out)
	} else {
		handler = runner.NewTextHandler(opts.In, opts.Out, runner.WithTextHandlerRenderer(opts.Renderer))
	}

	r := runner.NewRunner(
		runner.WithLogger(app.Logger),
		runner.WithInputHandler(handler),
		runner.WithPending(pending),
	)
	return handleExecutionError(r.Run(ctx, app.Engine, sessionID))
}

func openSession(ctx context.Context, app *App, opts ChatOptions) (string, *domain.PendingApproval, bool, error) {
	if opts.SessionID != "" {
		cp, err := app.Engine.Checkpoint(ctx, opts.SessionID)
		switch {
		case err == nil:
			return cp.SessionID, cp.Pending(), true, nil
		case !errors.Is(err, domain.ErrSessionNotFound):
			return "", nil, false, err
		}
	}

	id, err := app.Engine.StartSession(ctx, domain.SessionInit{
		SessionID:  opts.SessionID,
		CustomerID: opts.CustomerID,
	})
	return id, nil, false, err
}

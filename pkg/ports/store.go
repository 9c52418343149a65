package ports

import (
	"context"

	"github.com/aretw0/relay/pkg/domain"
)

// CheckpointStore defines the interface for persisting session checkpoints.
// This allows for durable execution, enabling "Stop & Resume" workflows.
//
// Implementations must be safe for concurrent use across sessions and keep the previous
// checkpoint readable if a Save does not complete (crash consistency). Writes to the same
// session are last-writer-wins.
type CheckpointStore interface {
	// Save persists the checkpoint for a given session ID.
	Save(ctx context.Context, sessionID string, cp *domain.Checkpoint) error

	// Load retrieves the latest checkpoint for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Checkpoint, error)

	// Delete removes the checkpoint for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of stored sessions.
	List(ctx context.Context) ([]string, error)
}

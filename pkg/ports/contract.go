package ports

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/relay/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCheckpointStoreContract runs a suite of tests to verify that a CheckpointStore
// implementation adheres to the defined interface contract.
func RunCheckpointStoreContract(t *testing.T, store CheckpointStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		cp := domain.NewCheckpoint(sessionID)
		cp.State.Profile = domain.Profile{"FirstName": "Ada", "CustomerId": 1}
		cp.State.Append(
			domain.UserMessage("update my email"),
			domain.AssistantMessage("", domain.ToolCall{
				ID:   "call-1",
				Name: domain.ToolUpdateProfile.String(),
				Args: map[string]any{"field": "Email", "new_value": "x@y.com"},
			}),
		)
		cp.State.Stack.Push(domain.ContextCustomerProfile)
		cp.PendingNode = domain.NodeCustomerSensitiveTools
		cp.Status = domain.StatusSuspended
		cp.Turn = 3

		err := store.Save(ctx, sessionID, cp)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, domain.NodeCustomerSensitiveTools, loaded.PendingNode)
		assert.Equal(t, domain.StatusSuspended, loaded.Status)
		assert.Equal(t, 3, loaded.Turn)
		assert.Equal(t, domain.ContextCustomerProfile, loaded.State.Stack.Top())
		require.Len(t, loaded.State.Messages, 2)
		require.Len(t, loaded.State.Messages[1].ToolCalls, 1)
		assert.Equal(t, "call-1", loaded.State.Messages[1].ToolCalls[0].ID)
		assert.Equal(t, "x@y.com", loaded.State.Messages[1].ToolCalls[0].Args["new_value"])
		assert.Equal(t, "Ada", loaded.State.Profile["FirstName"])
		// JSON persistence turns numbers into float64; only existence is part of the contract.
		assert.NotNil(t, loaded.State.Profile["CustomerId"])
	})

	t.Run("Load returns an isolated copy", func(t *testing.T) {
		cp := domain.NewCheckpoint(sessionID)
		cp.State.Append(domain.UserMessage("original"))
		require.NoError(t, store.Save(ctx, sessionID, cp))

		// Mutating the saved value after Save must not leak into the store.
		cp.State.Messages[0].Content = "mutated"

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "original", loaded.State.Messages[0].Content)

		loaded.State.Append(domain.UserMessage("extra"))
		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Len(t, again.State.Messages, 1)
	})

	t.Run("Last writer wins", func(t *testing.T) {
		first := domain.NewCheckpoint(sessionID)
		first.Turn = 1
		second := domain.NewCheckpoint(sessionID)
		second.Turn = 2

		require.NoError(t, store.Save(ctx, sessionID, first))
		require.NoError(t, store.Save(ctx, sessionID, second))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, 2, loaded.Turn)
	})

	t.Run("Concurrent sessions", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := sessionID + "-concurrent-" + string(rune('a'+i))
				cp := domain.NewCheckpoint(id)
				cp.Turn = i
				assert.NoError(t, store.Save(ctx, id, cp))
				loaded, err := store.Load(ctx, id)
				if assert.NoError(t, err) {
					assert.Equal(t, i, loaded.Turn)
				}
				assert.NoError(t, store.Delete(ctx, id))
			}(i)
		}
		wg.Wait()
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewCheckpoint(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewCheckpoint(id1))
		_ = store.Save(ctx, id2, domain.NewCheckpoint(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

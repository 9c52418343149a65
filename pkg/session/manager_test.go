package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/relay/pkg/adapters/memory"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
	"github.com/aretw0/relay/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s SlowStore) Save(ctx context.Context, sessionID string, cp *domain.Checkpoint) error {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Save(ctx, sessionID, cp)
}

func (s SlowStore) Load(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Load(ctx, sessionID)
}

func TestManager_WithLockSerializesReadModifyWrite(t *testing.T) {
	store := SlowStore{memory.NewStore()}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	require.NoError(t, manager.Store().Save(ctx, id, domain.NewCheckpoint(id)))

	var wg sync.WaitGroup
	const writers = 10
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.WithLock(ctx, id, func(ctx context.Context) error {
				cp, err := manager.Store().Load(ctx, id)
				if err != nil {
					return err
				}
				cp.Turn++
				return manager.Store().Save(ctx, id, cp)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	cp, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, writers, cp.Turn, "no increment may be lost")
}

func TestLoadOrNew(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	cp, err := session.LoadOrNew(ctx, store, "fresh")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIdle, cp.Status)
	assert.True(t, cp.UpdatedAt.IsZero())

	_, err = store.Load(ctx, "fresh")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "a fresh checkpoint is not persisted")

	saved := domain.NewCheckpoint("kept")
	saved.Turn = 3
	require.NoError(t, store.Save(ctx, "kept", saved))
	cp, err = session.LoadOrNew(ctx, store, "kept")
	require.NoError(t, err)
	assert.Equal(t, 3, cp.Turn)
}

func TestManager_LoadMissing(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	_, err := manager.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

type countingLocker struct {
	locks   atomic.Int32
	unlocks atomic.Int32
	fail    bool
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if l.fail {
		return nil, errors.New("unavailable")
	}
	l.locks.Add(1)
	return func(ctx context.Context) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.unlocks.Add(1)
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &countingLocker{}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker))

	ctx, cancel := context.WithCancel(context.Background())
	err := manager.WithLock(ctx, "s", func(ctx context.Context) error {
		cancel()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), locker.locks.Load())
	assert.Equal(t, int32(1), locker.unlocks.Load(), "unlock must survive a cancelled turn")
}

func TestManager_DistributedLockerFailure(t *testing.T) {
	manager := session.NewManager(memory.NewStore(), session.WithLocker(&countingLocker{fail: true}))

	called := false
	err := manager.WithLock(context.Background(), "s", func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

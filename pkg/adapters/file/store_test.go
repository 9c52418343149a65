package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/relay/pkg/adapters/file"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Store implements CheckpointStore
var _ ports.CheckpointStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunCheckpointStoreContract(t, store)
}

func TestFileStore_InterruptedSaveKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	cp := domain.NewCheckpoint("s1")
	cp.Turn = 1
	require.NoError(t, store.Save(ctx, "s1", cp))

	// A crash between CreateTemp and Rename leaves a stray temp file behind.
	stray := filepath.Join(dir, "tmp-s1-123.json")
	require.NoError(t, os.WriteFile(stray, []byte(`{"session_id":`), 0o644))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Turn)

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, sessions, "temp files are not sessions")
}

func TestFileStore_RejectsUnsafeIDs(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "../escape", `a\b`, ".."} {
		assert.Error(t, store.Save(ctx, id, domain.NewCheckpoint(id)), id)
		_, err := store.Load(ctx, id)
		assert.Error(t, err, id)
	}
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "missing"))
	sessions, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	data := []byte(`[{"content": "hello world"}]`)
	require.NoError(t, store.Put(ctx, "corpora/articles.json", data))

	_, err := os.Stat(filepath.Join(tmpDir, "corpora", "articles.json"))
	require.NoError(t, err)

	got, err := store.Get(ctx, "corpora/articles.json")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// Overwrite
	require.NoError(t, store.Put(ctx, "corpora/articles.json", []byte("[]")))
	got, err = store.Get(ctx, "corpora/articles.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), got)

	require.NoError(t, store.Put(ctx, "result.json", []byte("{}")))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"corpora/articles.json", "result.json"}, names)

	names, err = store.List(ctx, "corpora/")
	require.NoError(t, err)
	assert.Equal(t, []string{"corpora/articles.json"}, names)
}

func TestLocalStore_NotFound(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_AbsolutePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abs.txt")
	store := NewLocalStore("")

	require.NoError(t, store.Put(context.Background(), path, []byte("x")))
	got, err := store.Get(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}

func TestLocalStore_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewLocalStore(t.TempDir())
	assert.ErrorIs(t, store.Put(ctx, "a", nil), context.Canceled)
	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

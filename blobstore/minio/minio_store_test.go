package minio

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/neardup/blobstore"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("MINIO_ENDPOINT", "")
	t.Setenv("MINIO_ACCESS_KEY", "ak")
	t.Setenv("MINIO_SECRET_KEY", "sk")
	t.Setenv("MINIO_SECURE", "true")

	cfg := ConfigFromEnv()
	assert.Equal(t, DefaultEndpoint, cfg.Endpoint)
	assert.Equal(t, "ak", cfg.AccessKey)
	assert.Equal(t, "sk", cfg.SecretKey)
	assert.True(t, cfg.Secure)

	_, err := Dial(Config{})
	assert.Error(t, err)
}

func TestTranslateError(t *testing.T) {
	assert.ErrorIs(t, translateError(minio.ErrorResponse{Code: "NoSuchKey"}), blobstore.ErrNotFound)

	other := errors.New("boom")
	assert.Equal(t, other, translateError(other))
}

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	client, err := Dial(Config{
		Endpoint:  DefaultEndpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	bucket := "test-neardup"
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	data := []byte(`[{"content": "hello minio world"}]`)
	require.NoError(t, store.Put(ctx, "articles.json", data))

	got, err := store.Get(ctx, "articles.json")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "articles.json")

	_, err = store.Get(ctx, "missing.json")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	_ = client.RemoveObject(ctx, bucket, "test-prefix/articles.json", minio.RemoveObjectOptions{})
}

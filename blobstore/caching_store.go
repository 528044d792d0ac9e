package blobstore

import (
	"context"
	"errors"
	"log/slog"
)

// CachingStore reads through a remote Store and keeps a copy of every blob
// it fetched in a cache Store, typically a LocalStore. Blobs are treated as
// immutable: a cached copy is never revalidated.
type CachingStore struct {
	inner  Store
	cache  Store
	logger *slog.Logger
}

// NewCachingStore creates a new CachingStore. A nil logger discards.
func NewCachingStore(inner, cache Store, logger *slog.Logger) *CachingStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CachingStore{inner: inner, cache: cache, logger: logger}
}

// Get returns the cached copy of name, fetching and caching it on a miss.
// A failure to populate the cache is logged, not returned.
func (s *CachingStore) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := s.cache.Get(ctx, name)
	if err == nil {
		s.logger.DebugContext(ctx, "blob cache hit", "name", name, "bytes", len(data))
		return data, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	data, err = s.inner.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(ctx, name, data); err != nil {
		s.logger.WarnContext(ctx, "blob cache fill failed", "name", name, "error", err)
	}
	return data, nil
}

// Put writes through to the inner store and refreshes the cached copy.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	if err := s.inner.Put(ctx, name, data); err != nil {
		return err
	}
	return s.cache.Put(ctx, name, data)
}

// List lists the inner store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

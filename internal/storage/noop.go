package storage

import "context"

// NoOpProvider discards every write. Useful when share-card caching is
// disabled; cards are recomposed per request.
type NoOpProvider struct{}

// Get always misses.
func (NoOpProvider) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Put discards the blob.
func (NoOpProvider) Put(context.Context, string, string, []byte) error { return nil }

// Clear has nothing to clear.
func (NoOpProvider) Clear(context.Context) error { return nil }

// Close is a no-op.
func (NoOpProvider) Close() error { return nil }

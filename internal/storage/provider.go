// Package storage defines the blob store behind the share-card cache and
// its local, GCS, and no-op implementations.
package storage

import "context"

// Provider stores generated share-card blobs keyed by object name.
type Provider interface {
	// Get returns the blob and true, or false when the key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores the blob under key, replacing any previous value.
	Put(ctx context.Context, key string, contentType string, data []byte) error
	// Clear removes every stored blob. Called when the snapshot the
	// blobs were derived from is replaced.
	Clear(ctx context.Context) error
	// Close releases any underlying clients.
	Close() error
}

// Package storage holds the key-value transport the session snapshot is written
// to. Every backend keeps exactly one JSON blob under one key.
package storage

import "context"

// DefaultKey is the key the session blob is stored under.
const DefaultKey = "dartKeeperState"

// Store is an opaque single-blob key-value store.
type Store interface {
	// Load returns the stored blob. found is false when nothing was saved yet.
	Load(ctx context.Context) (data []byte, found bool, err error)
	// Save replaces the stored blob in one operation.
	Save(ctx context.Context, data []byte) error
	// Clear removes the stored blob.
	Clear(ctx context.Context) error
	Close() error
}

package storage

import (
	"context"
	"time"
)

// Delimiter separates the segments of a storage key.
const Delimiter = "/"

// ObjectMeta describes a single stored object.
type ObjectMeta struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Storage defines the contract for flat key/blob backends.
// Implementations must be safe for concurrent use and are only expected to
// be atomic per key.
type Storage interface {
	// Put stores data with the given key, replacing any previous value.
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves data for the given key.
	// Returns os.ErrNotExist if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Head returns the metadata of the given key without reading its data.
	// Returns os.ErrNotExist if the key does not exist.
	Head(ctx context.Context, key string) (ObjectMeta, error)

	// List returns all objects whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]ObjectMeta, error)

	// Delete removes the data for the given key.
	// Returns nil if the key does not exist (idempotent).
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the storage backend.
	Close() error
}

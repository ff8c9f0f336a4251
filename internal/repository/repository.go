// Package repository defines the key-value store contract every backend implements.
//
// A Store knows nothing about the shape of what it holds: values are opaque
// serialized blobs, one per key. The typed view lives in internal/storage.
package repository

import "context"

// Store is a single-device key-value store of whole values.
//
// Get reports a missing key as (nil, false, nil). Remove of a missing key is
// not an error. Errors are reserved for backend I/O failures.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

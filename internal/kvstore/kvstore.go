// ABOUTME: KV interface shared by all persistence backends
// ABOUTME: Open picks a backend implementation by name

package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a key has no value
var ErrNotFound = errors.New("key not found")

// Backend names accepted by Open
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendPebble = "pebble"
)

// KV is a flat key to bytes store.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Open creates the named backend. path is ignored for memory.
func Open(backend, path string) (KV, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemory(), nil
	case BackendSQLite:
		return NewSQLite(path)
	case BackendPebble:
		return NewPebble(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

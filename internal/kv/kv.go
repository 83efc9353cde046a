// Package kv provides the key-value storage backends that hold all site
// content. Records are opaque JSON values under flat string keys.
package kv

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("key not found")

// Store is the adapter contract every backend implements. GetByPrefix
// returns matching values in unspecified order; callers that need a
// particular order re-sort. Concurrent writers to the same key race with
// last-write-wins semantics.
type Store interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	Delete(ctx context.Context, key string) error
	GetByPrefix(ctx context.Context, prefix string) ([]json.RawMessage, error)
	Ping(ctx context.Context) error
	Close() error
}

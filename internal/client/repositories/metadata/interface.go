// Package metadata is the client's persistent-object layer: a small
// collection-scoped key/value store on top of the local SQLite database.
package metadata

import (
	"context"
)

// Repository stores opaque values under keys within one collection.
// Get returns common.ErrNotFound (wrapped) when the key is absent.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

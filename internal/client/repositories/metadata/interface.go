// Package metadata is a small key/value table in the local SQLite database.
// The cache keeps its users, entries and selection here and the auth service
// keeps the session token.
package metadata

import (
	"context"
)

// Repository stores opaque values by key.
//
// Get returns (nil, nil) for a missing key so callers can fall back to a
// default without matching an error.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeleteKeys(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}

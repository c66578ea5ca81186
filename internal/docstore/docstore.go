// Package docstore is the remote document store: JSON documents addressed by
// slash-separated paths such as accounts/{account}/entries/{id}.
//
// Backends differ in transport only. All of them return common.ErrNotFound
// from Get for a missing document and wrap transport failures with
// common.ErrUnavailable.
package docstore

import (
	"context"
	"strings"
)

// Store is implemented by every backend.
type Store interface {
	// Put creates or replaces the document at path.
	Put(ctx context.Context, path string, body []byte) error
	// Get returns the document at path or common.ErrNotFound.
	Get(ctx context.Context, path string) ([]byte, error)
	// List returns the direct children of collection keyed by document id.
	// Deeper paths are not included.
	List(ctx context.Context, collection string) (map[string][]byte, error)
	// Delete removes the document at path. A missing document is not an
	// error.
	Delete(ctx context.Context, path string) error
}

// Join builds a document path from its segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// Split returns the collection part of path and the final segment (the
// document id).
func Split(path string) (collection, id string) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

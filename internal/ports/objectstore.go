// Package ports declares the interfaces the service consumes from
// external collaborators (object storage, work queue).
package ports

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by Stat, Move and Remove when no object
// exists at the given key. Adapters translate their provider-specific
// not-found signal into this sentinel.
var ErrObjectNotFound = errors.New("object not found")

// MaxListPageSize is the upper bound adapters enforce on a single List
// call. Callers that need a full directory must paginate with offset
// until a short page comes back.
const MaxListPageSize = 1000

// ObjectInfo describes one entry returned by List.
type ObjectInfo struct {
	// Name is the entry's base name relative to the listed prefix.
	Name string
	// Size is the object's size in bytes; zero for prefixes.
	Size int64
	// IsPrefix marks the entry as a sub-directory rather than an object.
	IsPrefix bool
}

// PutObjectInput carries one object upload.
type PutObjectInput struct {
	Key         string
	ContentType string
	Reader      io.Reader
	Size        int64
}

// ObjectStore is a hierarchical blob store. Keys use "/" separators;
// the first segment is the storage area, the second the account id.
type ObjectStore interface {
	Provider() string

	// List returns one page of the immediate children of prefix,
	// starting at offset, at most limit entries (capped at
	// MaxListPageSize). It does not recurse.
	List(ctx context.Context, prefix string, offset, limit int) ([]ObjectInfo, error)

	Put(ctx context.Context, in PutObjectInput) error
	Stat(ctx context.Context, key string) (ObjectInfo, error)

	// Move renames an object. Returns ErrObjectNotFound when src does
	// not exist; fails rather than overwriting an existing dst.
	Move(ctx context.Context, src, dst string) error

	Remove(ctx context.Context, key string) error
}

// IsNotFound reports whether err indicates a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

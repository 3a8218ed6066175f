// Package blob abstracts the object store behind the share service.
//
// Upload and download bytes never transit the server on the fast path:
// clients talk to the store directly through presigned URLs minted here. The
// only in-process byte path is Put, used by the bounded multipart upload
// endpoint.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrAuth marks credential or signature failures from the object store.
// These are fatal and must not be retried.
var ErrAuth = errors.New("blob store authentication failed")

// ObjectInfo describes an object returned by Head.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Store is the object-store adapter used by the API layer and the janitor.
//
// Presign methods mint time-limited URLs; a zero ttl selects the store's
// configured default. Delete is idempotent: deleting an absent object
// succeeds. Head returns (nil, nil) for an absent object.
type Store interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Put(ctx context.Context, key, contentType string, size int64, body io.Reader) error
	Delete(ctx context.Context, key string) error
	Head(ctx context.Context, key string) (*ObjectInfo, error)
}

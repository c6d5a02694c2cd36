package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by ObjectStorage implementations when the
// requested object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage defines the interface for object storage operations.
// Buckets are addressed per call because payload locators carry their own
// bucket.
type ObjectStorage interface {
	// Download downloads an object. Returns ErrObjectNotFound if absent.
	Download(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// Upload uploads an object
	Upload(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error

	// Exists checks if an object exists
	Exists(ctx context.Context, bucket, key string) (bool, error)
}

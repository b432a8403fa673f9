// Package storage writes objects to S3, Google Cloud Storage or MinIO behind
// one small interface. The bucket is part of the driver configuration.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrBucketRequired is returned when a driver is built without a bucket.
var ErrBucketRequired = errors.New("storage: bucket is required")

// Storage writes objects.
type Storage interface {
	io.Closer

	// Put stores r under key. size may be -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

package storage

import (
	"context"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSOptions configures Google Cloud Storage.
type GCSOptions struct {
	Bucket        string
	ClientOptions []option.ClientOption
}

// GCS implements Storage using Google Cloud Storage.
type GCS struct {
	client *gcs.Client
	bucket string
}

// NewGCS creates a GCS client.
func NewGCS(ctx context.Context, opts GCSOptions) (*GCS, error) {
	if opts.Bucket == "" {
		return nil, ErrBucketRequired
	}

	client, err := gcs.NewClient(ctx, opts.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("storage: gcs new client: %w", err)
	}

	return &GCS{client: client, bucket: opts.Bucket}, nil
}

// Put streams r into a new object writer.
func (g *GCS) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) error {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("storage: gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: gcs close %s: %w", key, err)
	}
	return nil
}

// Close closes the GCS client.
func (g *GCS) Close() error {
	return g.client.Close()
}

package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOOptions configures MinIO client initialization.
type MinIOOptions struct {
	Bucket       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
	Region       string
	UseSSL       bool
}

// MinIO implements Storage using MinIO.
type MinIO struct {
	client *minio.Client
	bucket string
}

// NewMinIO constructs a MinIO client.
func NewMinIO(opts MinIOOptions) (*MinIO, error) {
	if opts.Bucket == "" {
		return nil, ErrBucketRequired
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, opts.SessionToken),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: minio new client: %w", err)
	}

	return &MinIO{client: client, bucket: opts.Bucket}, nil
}

// Put uploads r with PutObject.
func (m *MinIO) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("storage: minio put %s: %w", key, err)
	}
	return nil
}

// Close is a no-op for MinIO.
func (m *MinIO) Close() error {
	return nil
}

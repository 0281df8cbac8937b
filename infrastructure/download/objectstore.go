package download

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mosaic-data/mosaic/internal/ports"
)

var _ ports.Downloader = (*ObjectStore)(nil)

// ObjectStore downloads one object from an S3-compatible store.
type ObjectStore struct {
	client *minio.Client
	bucket string
	key    string
}

// ObjectStoreOptions locates and authenticates an object download.
type ObjectStoreOptions struct {
	Endpoint string
	Bucket   string
	Key      string

	// AccessKey and SecretKey may both be empty for anonymous access.
	AccessKey string
	SecretKey string

	UseSSL bool
}

// NewObjectStore creates an object store downloader.
func NewObjectStore(opts ObjectStoreOptions) (*ObjectStore, error) {
	if opts.Endpoint == "" || opts.Bucket == "" || opts.Key == "" {
		return nil, fmt.Errorf("endpoint, bucket, and key are all required")
	}

	mopts := &minio.Options{Secure: opts.UseSSL}
	if opts.AccessKey != "" {
		mopts.Creds = credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, "")
	}

	client, err := minio.New(opts.Endpoint, mopts)
	if err != nil {
		return nil, fmt.Errorf("object store client for %s: %w", opts.Endpoint, err)
	}

	return &ObjectStore{client: client, bucket: opts.Bucket, key: opts.Key}, nil
}

// Retrieve fetches the configured object in full.
func (o *ObjectStore) Retrieve(ctx context.Context) ([]byte, error) {
	obj, err := o.client.GetObject(ctx, o.bucket, o.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", o.bucket, o.key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", o.bucket, o.key, err)
	}
	return data, nil
}

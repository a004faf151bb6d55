package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrObjectNotFound is returned when a key does not exist in the bucket.
var ErrObjectNotFound = errors.New("snapshot object not found")

// ObjectReader fetches whole objects by key.
type ObjectReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// BucketConfig locates the S3-compatible bucket holding device exports.
type BucketConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
}

// BucketReader reads export objects from an S3-compatible bucket (R2, MinIO).
type BucketReader struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewBucketReader constructs the bucket adapter.
func NewBucketReader(cfg BucketConfig, logger *slog.Logger) (*BucketReader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("snapshot bucket is required")
	}
	client, err := minio.New(sanitizeEndpoint(cfg.Endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       strings.HasPrefix(strings.ToLower(cfg.Endpoint), "https"),
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init snapshot client: %w", err)
	}
	return &BucketReader{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.With("component", "healthstore.snapshot.bucket"),
	}, nil
}

// Get downloads the object body.
func (r *BucketReader) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := r.client.GetObject(ctx, r.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapObjectErr(key, err)
	}
	defer obj.Close()
	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		return nil, mapObjectErr(key, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapObjectErr(key, err)
	}
	r.logger.Debug("snapshot object fetched", "key", key, "bytes", len(data))
	return data, nil
}

func mapObjectErr(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}
	return fmt.Errorf("get %s: %w", key, err)
}

// sanitizeEndpoint strips scheme and path since minio.New wants host[:port].
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if host, _, found := strings.Cut(raw, "/"); found {
		return host
	}
	return raw
}

var _ ObjectReader = (*BucketReader)(nil)

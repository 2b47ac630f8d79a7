package worker

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/documentdeletion/internal/gcp"
	"go.uber.org/zap"
)

// ObjectStoreBackend removes every object under the document's prefix in one bucket.
type ObjectStoreBackend struct {
	bucketName string
	bucket     *storage.BucketHandle
	logger     *zap.Logger
}

func NewObjectStoreBackend(client *storage.Client, bucketName string, logger *zap.Logger) *ObjectStoreBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ObjectStoreBackend{
		bucketName: bucketName,
		bucket:     client.Bucket(bucketName),
		logger:     logger,
	}
}

func (b *ObjectStoreBackend) Delete(ctx context.Context, target Target) error {
	prefix := target.ObjectPrefix
	if prefix == "" {
		return fmt.Errorf("%w: object prefix", errMissingBackendLocator)
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	count, err := gcp.DeletePrefix(ctx, b.bucket, prefix)
	if err != nil {
		return fmt.Errorf("gs://%s/%s: %w", b.bucketName, prefix, err)
	}
	b.logger.Debug("Deleted objects under prefix.",
		zap.String("bucket", b.bucketName),
		zap.String("prefix", prefix),
		zap.Int("objectCount", count),
	)
	return nil
}

package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// maxConcurrentDeletes bounds the object deletes in flight for one prefix.
const maxConcurrentDeletes = 10

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
// An existing object is not a failure in an idempotent workflow.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName, content string) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := io.Copy(writer, strings.NewReader(content)); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			zap.L().Info("Object already exists, skipping write.", zap.String("object", objectName))
			return nil
		}
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			zap.L().Info("Object already exists, skipping write.", zap.String("object", objectName))
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// newDeleteBackOff mirrors the upload retry policy of the ingestion functions:
// exponential from one second, a handful of attempts, bounded by ctx.
func newDeleteBackOff(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 8 * time.Second
	bo.MaxElapsedTime = time.Minute
	return backoff.WithContext(backoff.WithMaxRetries(bo, 3), ctx)
}

// DeleteObject removes a single object. A missing object counts as deleted.
func DeleteObject(ctx context.Context, bucket *storage.BucketHandle, objectName string) error {
	op := func() error {
		err := bucket.Object(objectName).Delete(ctx)
		if err == nil || errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code < http.StatusInternalServerError && gerr.Code != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		zap.L().Warn("Object delete failed, will retry.",
			zap.String("object", objectName),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	}
	if err := backoff.RetryNotify(op, newDeleteBackOff(ctx), notify); err != nil {
		return fmt.Errorf("delete %s: %w", objectName, err)
	}
	return nil
}

// DeletePrefix removes every object under prefix and returns how many were listed.
// Every listed object gets its delete attempt even after a sibling fails; the
// first failure is returned. An empty prefix is refused so a bad locator can
// never wipe a bucket.
func DeletePrefix(ctx context.Context, bucket *storage.BucketHandle, prefix string) (int, error) {
	if prefix == "" {
		return 0, fmt.Errorf("refusing to delete an empty prefix")
	}

	var eg errgroup.Group
	eg.SetLimit(maxConcurrentDeletes)

	count := 0
	it := bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			_ = eg.Wait()
			return count, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
		}
		count++
		name := attrs.Name
		eg.Go(func() error {
			return DeleteObject(ctx, bucket, name)
		})
	}
	if err := eg.Wait(); err != nil {
		return count, err
	}
	return count, nil
}

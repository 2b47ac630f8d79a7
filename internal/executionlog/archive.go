package executionlog

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/documentdeletion/internal/gcp"
	"github.com/Lllllllleong/documentdeletion/internal/models"
)

// GCSArchive writes each execution's outcome entry, with its full history, to a
// write-once object. Transition entries are ignored.
type GCSArchive struct {
	bucket *storage.BucketHandle
}

func NewGCSArchive(client *storage.Client, bucketName string) *GCSArchive {
	return &GCSArchive{bucket: client.Bucket(bucketName)}
}

// ObjectName is the archive location of an execution's outcome.
func ObjectName(entry models.ExecutionEntry) string {
	return fmt.Sprintf("executions/%s/%s/%s.json", entry.WorkspaceID, entry.DocumentID, entry.ExecutionID)
}

func (a *GCSArchive) Record(ctx context.Context, entry models.ExecutionEntry) error {
	if entry.Kind != models.EntryOutcome {
		return nil
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal execution outcome: %w", err)
	}
	return gcp.SaveToGCSAtomically(ctx, a.bucket, ObjectName(entry), string(body))
}

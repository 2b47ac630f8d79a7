package executionlog

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/documentdeletion/internal/models"
)

// FirestoreLog stores one summary record per execution and appends every entry
// to its "transitions" sub-collection.
type FirestoreLog struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreLog(client *firestore.Client, collection string) *FirestoreLog {
	if collection == "" {
		collection = "deletionExecutions"
	}
	return &FirestoreLog{client: client, collection: collection}
}

func (l *FirestoreLog) Record(ctx context.Context, entry models.ExecutionEntry) error {
	summaryRef := l.client.Collection(l.collection).Doc(entry.ExecutionID)

	if _, _, err := summaryRef.Collection("transitions").Add(ctx, entry); err != nil {
		return fmt.Errorf("failed to append execution entry: %w", err)
	}

	summary := map[string]interface{}{
		"workspaceId": entry.WorkspaceID,
		"documentId":  entry.DocumentID,
		"updatedAt":   firestore.ServerTimestamp,
	}
	switch entry.Kind {
	case models.EntryTransition:
		if entry.Transition != nil {
			summary["state"] = string(entry.Transition.State)
		}
	case models.EntryOutcome:
		summary["outcome"] = string(entry.Outcome)
		if entry.Cause != "" {
			summary["cause"] = entry.Cause
		}
	}
	if _, err := summaryRef.Set(ctx, summary, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to update execution summary: %w", err)
	}
	return nil
}

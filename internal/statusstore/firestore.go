package statusstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/documentdeletion/internal/gcp"
	"github.com/Lllllllleong/documentdeletion/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore keeps document status on the Firestore document records.
type FirestoreStore struct {
	client      *firestore.Client
	collections gcp.Collections
}

func NewFirestoreStore(client *firestore.Client, collections gcp.Collections) *FirestoreStore {
	return &FirestoreStore{client: client, collections: collections}
}

// CompareAndSetStatus reads and conditionally updates the record in one transaction,
// so concurrent writers to the same document serialize on Firestore's contention handling.
func (s *FirestoreStore) CompareAndSetStatus(ctx context.Context, key models.DocumentKey, expected Precondition, update Update) (bool, error) {
	ref := s.collections.DocumentRef(s.client, key)

	var applied bool
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		applied = false // the function may be retried

		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return nil
		}
		if err != nil {
			return err
		}

		var doc models.Document
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		if !expected.Allows(doc.Status) {
			return nil
		}

		updates := []firestore.Update{
			{Path: "status", Value: string(update.Status)},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		}
		if update.ErrorDetails != "" {
			updates = append(updates, firestore.Update{Path: "errorDetails", Value: update.ErrorDetails})
		} else {
			updates = append(updates, firestore.Update{Path: "errorDetails", Value: firestore.Delete})
		}
		if update.ExecutionID != "" {
			updates = append(updates, firestore.Update{Path: "workflowExecutionId", Value: update.ExecutionID})
		}
		applied = true
		return tx.Update(ref, updates)
	})
	if err != nil {
		return false, fmt.Errorf("failed to set status %s on %s: %w", update.Status, key, err)
	}
	return applied, nil
}

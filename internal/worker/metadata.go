package worker

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/documentdeletion/internal/gcp"
	"github.com/Lllllllleong/documentdeletion/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreMetadata reads documents and workspaces from the metadata collections.
type FirestoreMetadata struct {
	client      *firestore.Client
	collections gcp.Collections
}

func NewFirestoreMetadata(client *firestore.Client, collections gcp.Collections) *FirestoreMetadata {
	return &FirestoreMetadata{client: client, collections: collections}
}

func (m *FirestoreMetadata) Document(ctx context.Context, key models.DocumentKey) (*models.Document, error) {
	snap, err := m.collections.DocumentRef(m.client, key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	var doc models.Document
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", key, err)
	}
	doc.WorkspaceID = key.WorkspaceID
	doc.DocumentID = key.DocumentID
	return &doc, nil
}

func (m *FirestoreMetadata) Capabilities(ctx context.Context, workspaceID string) (Capabilities, error) {
	snap, err := m.collections.WorkspaceRef(m.client, workspaceID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Capabilities{}, ErrWorkspaceNotFound
	}
	if err != nil {
		return Capabilities{}, err
	}
	var ws models.Workspace
	if err := snap.DataTo(&ws); err != nil {
		return Capabilities{}, fmt.Errorf("decode workspace %s: %w", workspaceID, err)
	}
	return CapabilitiesOf(workspaceID, &ws), nil
}

// Finalizable reports whether a document in status s may be moved to deleted.
// An error status belongs to the orchestrator that gave up on the run and is
// left for a resubmission to clear.
func Finalizable(s models.Status) bool {
	return s == models.StatusDeleting || s == models.StatusProcessed
}

// MarkDeleted moves a deleting or processed document to deleted and decrements
// the workspace counters in the same transaction so a repeated call cannot
// release the usage twice.
func (m *FirestoreMetadata) MarkDeleted(ctx context.Context, doc *models.Document) (bool, error) {
	key := doc.Key()
	docRef := m.collections.DocumentRef(m.client, key)
	wsRef := m.collections.WorkspaceRef(m.client, key.WorkspaceID)

	var marked bool
	err := m.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		marked = false

		snap, err := tx.Get(docRef)
		if status.Code(err) == codes.NotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var current models.Document
		if err := snap.DataTo(&current); err != nil {
			return fmt.Errorf("decode document %s: %w", key, err)
		}
		if !Finalizable(current.Status) {
			return nil
		}

		if err := tx.Update(docRef, []firestore.Update{
			{Path: "status", Value: string(models.StatusDeleted)},
			{Path: "deletedAt", Value: firestore.ServerTimestamp},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
			{Path: "errorDetails", Value: firestore.Delete},
		}); err != nil {
			return err
		}
		marked = true
		return tx.Set(wsRef, map[string]interface{}{
			"documentCount": firestore.Increment(-1),
			"sizeInBytes":   firestore.Increment(-current.SizeInBytes),
			"updatedAt":     firestore.ServerTimestamp,
		}, firestore.MergeAll)
	})
	if err != nil {
		return false, err
	}
	return marked, nil
}

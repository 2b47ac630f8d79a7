package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/documentdeletion/internal/models"
)

// Collections names the Firestore collections holding workspace and document metadata.
// Documents live in a sub-collection of their workspace.
type Collections struct {
	Workspaces string
	Documents  string
}

// DefaultCollections returns the collection names used when none are configured.
func DefaultCollections() Collections {
	return Collections{Workspaces: "workspaces", Documents: "documents"}
}

// WorkspaceRef returns the reference of a workspace record.
func (c Collections) WorkspaceRef(client *firestore.Client, workspaceID string) *firestore.DocumentRef {
	return client.Collection(c.Workspaces).Doc(workspaceID)
}

// DocumentRef returns the reference of the document record addressed by key.
func (c Collections) DocumentRef(client *firestore.Client, key models.DocumentKey) *firestore.DocumentRef {
	return c.WorkspaceRef(client, key.WorkspaceID).Collection(c.Documents).Doc(key.DocumentID)
}

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
// It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

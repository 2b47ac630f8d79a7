package models

import (
	"fmt"
	"time"
)

// Status is the lifecycle status stored on a document record.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusDeleting  Status = "deleting"
	StatusDeleted   Status = "deleted"
	StatusError     Status = "error"
)

// DocumentKey identifies a document inside its workspace.
type DocumentKey struct {
	WorkspaceID string `json:"workspaceId"`
	DocumentID  string `json:"documentId"`
}

func (k DocumentKey) String() string {
	return fmt.Sprintf("%s/%s", k.WorkspaceID, k.DocumentID)
}

// ObjectPrefix is the default object-store prefix under which a document's artifacts live.
func (k DocumentKey) ObjectPrefix() string {
	return fmt.Sprintf("%s/%s/", k.WorkspaceID, k.DocumentID)
}

// Document is the metadata record for an ingested document in Firestore.
// Locator fields are only read by the deletion worker.
type Document struct {
	WorkspaceID         string    `firestore:"workspaceId,omitempty"`
	DocumentID          string    `firestore:"documentId,omitempty"`
	Status              Status    `firestore:"status,omitempty"`
	ErrorDetails        string    `firestore:"errorDetails,omitempty"`
	SizeInBytes         int64     `firestore:"sizeInBytes,omitempty"`
	ObjectPrefix        string    `firestore:"objectPrefix,omitempty"`
	WorkflowExecutionID string    `firestore:"workflowExecutionId,omitempty"` // For traceability
	CreatedAt           time.Time `firestore:"createdAt,omitempty"`
	UpdatedAt           time.Time `firestore:"updatedAt,omitempty"`
	DeletedAt           time.Time `firestore:"deletedAt,omitempty"`
}

// Key returns the composite identity of the document.
func (d *Document) Key() DocumentKey {
	return DocumentKey{WorkspaceID: d.WorkspaceID, DocumentID: d.DocumentID}
}

// Prefix returns the stored object prefix, falling back to the key-derived default.
func (d *Document) Prefix() string {
	if d.ObjectPrefix != "" {
		return d.ObjectPrefix
	}
	return d.Key().ObjectPrefix()
}

// VectorStoreConfig describes the relational vector table holding a workspace's chunks.
type VectorStoreConfig struct {
	Enabled bool   `firestore:"enabled"`
	Table   string `firestore:"table,omitempty"`
}

// SearchIndexConfig describes the search index holding a workspace's chunks.
type SearchIndexConfig struct {
	Enabled bool   `firestore:"enabled"`
	Index   string `firestore:"index,omitempty"`
}

// ManagedSearchConfig marks a workspace as synced to the managed search data source bucket.
type ManagedSearchConfig struct {
	Enabled bool `firestore:"enabled"`
}

// Workspace groups documents and records which backends hold their artifacts.
type Workspace struct {
	Name          string              `firestore:"name,omitempty"`
	VectorStore   VectorStoreConfig   `firestore:"vectorStore"`
	SearchIndex   SearchIndexConfig   `firestore:"searchIndex"`
	ManagedSearch ManagedSearchConfig `firestore:"managedSearch"`
	DocumentCount int64               `firestore:"documentCount"`
	SizeInBytes   int64               `firestore:"sizeInBytes"`
	UpdatedAt     time.Time           `firestore:"updatedAt,omitempty"`
}

// Package worker removes one document's artifacts from every backend enabled for
// its workspace. It reports only success or failure; partial deletions are kept.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Lllllllleong/documentdeletion/internal/models"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrDocumentNotFound      = errors.New("document not found")
	ErrWorkspaceNotFound     = errors.New("workspace not found")
	ErrBackend               = errors.New("backend deletion failed")
	ErrBackendNotConfigured  = errors.New("backend enabled for workspace but not configured")
	errMissingBackendLocator = errors.New("backend locator missing")
)

// Kind names a storage backend holding document artifacts.
type Kind string

const (
	KindUploads     Kind = "uploads"
	KindProcessing  Kind = "processing"
	KindDataSource  Kind = "dataSource"
	KindSearchIndex Kind = "searchIndex"
	KindVectorStore Kind = "vectorStore"
)

// Capabilities is the set of optional backends enabled for a workspace,
// resolved once per deletion and passed to every backend.
type Capabilities struct {
	VectorStore   bool
	VectorTable   string
	SearchIndex   bool
	IndexName     string
	ManagedSearch bool
}

// CapabilitiesOf resolves the capability set recorded on a workspace.
func CapabilitiesOf(workspaceID string, ws *models.Workspace) Capabilities {
	caps := Capabilities{
		VectorStore:   ws.VectorStore.Enabled,
		VectorTable:   ws.VectorStore.Table,
		SearchIndex:   ws.SearchIndex.Enabled,
		IndexName:     ws.SearchIndex.Index,
		ManagedSearch: ws.ManagedSearch.Enabled,
	}
	if caps.VectorStore && caps.VectorTable == "" {
		caps.VectorTable = DefaultVectorTable(workspaceID)
	}
	if caps.SearchIndex && caps.IndexName == "" {
		caps.IndexName = DefaultIndexName(workspaceID)
	}
	return caps
}

// Kinds lists the backends a deletion must clear, object stores first.
func (c Capabilities) Kinds() []Kind {
	kinds := []Kind{KindUploads, KindProcessing}
	if c.ManagedSearch {
		kinds = append(kinds, KindDataSource)
	}
	if c.SearchIndex {
		kinds = append(kinds, KindSearchIndex)
	}
	if c.VectorStore {
		kinds = append(kinds, KindVectorStore)
	}
	return kinds
}

// Target is everything a backend needs to locate a document's artifacts.
type Target struct {
	Key          models.DocumentKey
	ObjectPrefix string
	Capabilities Capabilities
}

// Backend deletes a document's artifacts from one store. Deleting artifacts that
// are already gone must succeed.
type Backend interface {
	Delete(ctx context.Context, target Target) error
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, target Target) error

func (f BackendFunc) Delete(ctx context.Context, target Target) error {
	return f(ctx, target)
}

// Metadata reads and finalizes the document and workspace records.
type Metadata interface {
	// Document returns ErrDocumentNotFound when the record is gone.
	Document(ctx context.Context, key models.DocumentKey) (*models.Document, error)
	// Capabilities returns ErrWorkspaceNotFound when the workspace is gone.
	Capabilities(ctx context.Context, workspaceID string) (Capabilities, error)
	// MarkDeleted sets the document to deleted and releases its workspace usage once.
	// It reports false without writing when the document is gone or its status is
	// not Finalizable.
	MarkDeleted(ctx context.Context, doc *models.Document) (bool, error)
}

// Deleter composes the per-backend deletions of a document.
type Deleter struct {
	metadata Metadata
	backends map[Kind]Backend
	logger   *zap.Logger
}

func NewDeleter(metadata Metadata, backends map[Kind]Backend, logger *zap.Logger) *Deleter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deleter{metadata: metadata, backends: backends, logger: logger}
}

// Delete removes the document from every enabled backend, best-effort, and marks
// it deleted only when all of them succeeded.
func (d *Deleter) Delete(ctx context.Context, req models.DeletionRequest) (*models.WorkerResponse, error) {
	key := req.Key()
	logCtx := d.logger.With(zap.String("workspaceId", key.WorkspaceID), zap.String("documentId", key.DocumentID))

	doc, err := d.metadata.Document(ctx, key)
	if errors.Is(err, ErrDocumentNotFound) {
		logCtx.Info("Document record not found, treating as already deleted.")
		return &models.WorkerResponse{Status: "success", AlreadyDeleted: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", key, err)
	}
	if doc.Status == models.StatusDeleted {
		logCtx.Info("Document already deleted.")
		return &models.WorkerResponse{Status: "success", AlreadyDeleted: true}, nil
	}

	caps, err := d.metadata.Capabilities(ctx, key.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace %s: %w", key.WorkspaceID, err)
	}

	target := Target{Key: key, ObjectPrefix: doc.Prefix(), Capabilities: caps}
	kinds := caps.Kinds()
	if err := d.deleteAll(ctx, logCtx, target, kinds); err != nil {
		return nil, err
	}

	marked, err := d.metadata.MarkDeleted(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to mark %s deleted: %w", key, err)
	}
	logCtx.Info("Document artifacts deleted.", zap.Int("backendCount", len(kinds)), zap.Bool("marked", marked))

	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return &models.WorkerResponse{Status: "success", Backends: names}, nil
}

// deleteAll runs every backend concurrently without cancelling siblings on error,
// so each reachable store is cleared even when another one fails.
func (d *Deleter) deleteAll(ctx context.Context, logCtx *zap.Logger, target Target, kinds []Kind) error {
	var (
		mu   sync.Mutex
		errs error
	)
	var eg errgroup.Group
	eg.SetLimit(len(kinds))

	for _, kind := range kinds {
		backend, ok := d.backends[kind]
		if !ok || backend == nil {
			mu.Lock()
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", kind, ErrBackendNotConfigured))
			mu.Unlock()
			continue
		}
		eg.Go(func() error {
			if err := backend.Delete(ctx, target); err != nil {
				logCtx.Warn("Backend deletion failed.", zap.String("backend", string(kind)), zap.Error(err))
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", kind, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = eg.Wait()

	if errs != nil {
		return fmt.Errorf("%w: %w", ErrBackend, errs)
	}
	return nil
}

// Invoker adapts a Deleter to the orchestrator's synchronous worker contract.
type Invoker struct {
	deleter *Deleter
}

func NewInvoker(deleter *Deleter) *Invoker {
	return &Invoker{deleter: deleter}
}

func (i *Invoker) Invoke(ctx context.Context, req models.DeletionRequest) (*models.WorkerResponse, error) {
	return i.deleter.Delete(ctx, req)
}

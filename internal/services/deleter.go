package services

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/documentdeletion/internal/gcp"
	"github.com/Lllllllleong/documentdeletion/internal/models"
	"github.com/Lllllllleong/documentdeletion/internal/worker"
	"go.uber.org/zap"
)

// DeleterConfig holds the backend locations used by the deletion worker.
type DeleterConfig struct {
	ProjectID           string
	Collections         gcp.Collections
	UploadBucket        string
	ProcessingBucket    string
	DataSourceBucket    string // optional, managed search data source
	SearchIndexEndpoint string // optional
	SearchIndexRetries  int
	VectorStoreDSN      string // optional
}

// loadDeleterConfig loads and validates the worker's environment.
func loadDeleterConfig() (*DeleterConfig, error) {
	projectID := gcp.ProjectID()
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	retries, err := gcp.GetIntEnv("SEARCH_INDEX_RETRIES", 2)
	if err != nil {
		return nil, err
	}

	config := &DeleterConfig{
		ProjectID:           projectID,
		Collections:         collectionsFromEnv(),
		UploadBucket:        gcp.GetEnv("UPLOAD_BUCKET", ""),
		ProcessingBucket:    gcp.GetEnv("PROCESSING_BUCKET", ""),
		DataSourceBucket:    gcp.GetEnv("DATA_SOURCE_BUCKET", ""),
		SearchIndexEndpoint: gcp.GetEnv("SEARCH_INDEX_ENDPOINT", ""),
		SearchIndexRetries:  retries,
		VectorStoreDSN:      gcp.GetEnv("VECTOR_STORE_DSN", ""),
	}
	if config.UploadBucket == "" || config.ProcessingBucket == "" {
		return nil, fmt.Errorf("UPLOAD_BUCKET and PROCESSING_BUCKET must be set")
	}
	return config, nil
}

func collectionsFromEnv() gcp.Collections {
	defaults := gcp.DefaultCollections()
	return gcp.Collections{
		Workspaces: gcp.GetEnv("WORKSPACES_COLLECTION", defaults.Workspaces),
		Documents:  gcp.GetEnv("DOCUMENTS_COLLECTION", defaults.Documents),
	}
}

// DeleterFunction holds dependencies for the document-deleter function.
type DeleterFunction struct {
	deleter *worker.Deleter
	logger  *zap.Logger
}

// NewDeleter creates a DeleterFunction from the environment.
func NewDeleter(ctx context.Context, logger *zap.Logger) (*DeleterFunction, error) {
	config, err := loadDeleterConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, err
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	deleter, err := buildDeleter(config, firestoreClient, storageClient, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Document deleter initialized.",
		zap.String("uploadBucket", config.UploadBucket),
		zap.String("processingBucket", config.ProcessingBucket),
	)
	return &DeleterFunction{deleter: deleter, logger: logger}, nil
}

// buildDeleter wires one backend per configured location. Optional backends left
// unconfigured make deletions fail for workspaces that enable them.
func buildDeleter(config *DeleterConfig, firestoreClient *firestore.Client, storageClient *storage.Client, logger *zap.Logger) (*worker.Deleter, error) {
	backends := map[worker.Kind]worker.Backend{
		worker.KindUploads:    worker.NewObjectStoreBackend(storageClient, config.UploadBucket, logger),
		worker.KindProcessing: worker.NewObjectStoreBackend(storageClient, config.ProcessingBucket, logger),
	}
	if config.DataSourceBucket != "" {
		backends[worker.KindDataSource] = worker.NewObjectStoreBackend(storageClient, config.DataSourceBucket, logger)
	}
	if config.SearchIndexEndpoint != "" {
		backends[worker.KindSearchIndex] = worker.NewSearchIndexBackend(config.SearchIndexEndpoint, config.SearchIndexRetries, logger)
	}
	if config.VectorStoreDSN != "" {
		db, err := gcp.NewVectorStoreDB(config.VectorStoreDSN)
		if err != nil {
			return nil, err
		}
		backends[worker.KindVectorStore] = worker.NewVectorStoreBackend(db, logger)
	}

	metadata := worker.NewFirestoreMetadata(firestoreClient, config.Collections)
	return worker.NewDeleter(metadata, backends, logger), nil
}

// Process deletes the document's artifacts. Errors are logged here with context.
func (f *DeleterFunction) Process(ctx context.Context, req *models.DeletionRequest) (*models.WorkerResponse, error) {
	logCtx := f.logger.With(zap.String("workspaceId", req.WorkspaceID), zap.String("documentId", req.DocumentID))
	if err := req.Validate(); err != nil {
		logCtx.Warn("Rejected deletion request.", zap.Error(err))
		return nil, err
	}
	resp, err := f.deleter.Delete(ctx, *req)
	if err != nil {
		logCtx.Error("Document deletion failed.", zap.Error(err))
		return nil, err
	}
	return resp, nil
}

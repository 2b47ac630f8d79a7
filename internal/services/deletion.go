package services

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/documentdeletion/internal/executionlog"
	"github.com/Lllllllleong/documentdeletion/internal/gcp"
	"github.com/Lllllllleong/documentdeletion/internal/models"
	"github.com/Lllllllleong/documentdeletion/internal/orchestrator"
	"github.com/Lllllllleong/documentdeletion/internal/statusstore"
	"github.com/Lllllllleong/documentdeletion/internal/submission"
	"github.com/Lllllllleong/documentdeletion/internal/worker"
	"go.uber.org/zap"
)

const (
	WorkerModeLocal = "local"
	WorkerModeHTTP  = "http"
)

// DeletionConfig holds configuration for the delete-document and deletion-listener functions.
type DeletionConfig struct {
	ProjectID              string
	Collections            gcp.Collections
	Orchestrator           orchestrator.Config
	WorkerMode             string
	WorkerURL              string
	WorkerRetries          int
	ExecutionLogCollection string
	ExecutionArchiveBucket string // optional
	SubmissionMode         submission.Mode
	DeletionTopic          string
	WorkflowID             string
	WorkflowLocation       string
}

// loadDeletionConfig loads and validates the orchestrator's environment.
func loadDeletionConfig() (*DeletionConfig, error) {
	projectID := gcp.ProjectID()
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	defaults := orchestrator.DefaultConfig()
	workerTimeout, err := gcp.GetDurationEnv("WORKER_TIMEOUT", defaults.WorkerTimeout)
	if err != nil {
		return nil, err
	}
	workflowTimeout, err := gcp.GetDurationEnv("WORKFLOW_TIMEOUT", defaults.WorkflowTimeout)
	if err != nil {
		return nil, err
	}
	statusWriteTimeout, err := gcp.GetDurationEnv("STATUS_WRITE_TIMEOUT", defaults.StatusWriteTimeout)
	if err != nil {
		return nil, err
	}
	workerRetries, err := gcp.GetIntEnv("WORKER_HTTP_RETRIES", 0)
	if err != nil {
		return nil, err
	}
	mode, err := submission.ParseMode(gcp.GetEnv("SUBMISSION_MODE", string(submission.ModeInline)))
	if err != nil {
		return nil, err
	}

	config := &DeletionConfig{
		ProjectID:   projectID,
		Collections: collectionsFromEnv(),
		Orchestrator: orchestrator.Config{
			WorkerTimeout:      workerTimeout,
			WorkflowTimeout:    workflowTimeout,
			StatusWriteTimeout: statusWriteTimeout,
		},
		WorkerMode:             gcp.GetEnv("WORKER_MODE", WorkerModeLocal),
		WorkerURL:              gcp.GetEnv("WORKER_URL", ""),
		WorkerRetries:          workerRetries,
		ExecutionLogCollection: gcp.GetEnv("EXECUTION_LOG_COLLECTION", "deletionExecutions"),
		ExecutionArchiveBucket: gcp.GetEnv("EXECUTION_ARCHIVE_BUCKET", ""),
		SubmissionMode:         mode,
		DeletionTopic:          gcp.GetEnv("DELETION_TOPIC", ""),
		WorkflowLocation:       gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		WorkflowID:             gcp.GetEnv("WORKFLOW_ID", "document-deletion"),
	}

	switch config.WorkerMode {
	case WorkerModeLocal:
	case WorkerModeHTTP:
		if config.WorkerURL == "" {
			return nil, fmt.Errorf("WORKER_URL must be set when WORKER_MODE=http")
		}
	default:
		return nil, fmt.Errorf("unknown WORKER_MODE %q", config.WorkerMode)
	}
	if config.SubmissionMode == submission.ModePubSub && config.DeletionTopic == "" {
		return nil, fmt.Errorf("DELETION_TOPIC must be set when SUBMISSION_MODE=pubsub")
	}
	return config, nil
}

// DeletionFunction holds dependencies for submitting and running deletion workflows.
type DeletionFunction struct {
	orchestrator *orchestrator.Orchestrator
	inline       submission.Submitter
	submitter    submission.Submitter
	logger       *zap.Logger
}

// NewDeletion creates a DeletionFunction from the environment.
func NewDeletion(ctx context.Context, logger *zap.Logger) (*DeletionFunction, error) {
	config, err := loadDeletionConfig()
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

	var w orchestrator.Worker
	switch config.WorkerMode {
	case WorkerModeHTTP:
		w, err = newHTTPWorker(config, logger)
	default:
		w, err = newLocalWorker(firestoreClient, storageClient, logger)
	}
	if err != nil {
		return nil, err
	}

	logs := []executionlog.Log{executionlog.NewFirestoreLog(firestoreClient, config.ExecutionLogCollection)}
	if config.ExecutionArchiveBucket != "" {
		logs = append(logs, executionlog.NewGCSArchive(storageClient, config.ExecutionArchiveBucket))
	}

	store := statusstore.NewFirestoreStore(firestoreClient, config.Collections)
	orch, err := orchestrator.New(store, w, executionlog.Multi(logs...), logger, config.Orchestrator)
	if err != nil {
		return nil, err
	}

	var submitter submission.Submitter
	switch config.SubmissionMode {
	case submission.ModePubSub:
		publisher, err := gcp.NewTopicPublisher(ctx, config.ProjectID, config.DeletionTopic)
		if err != nil {
			return nil, err
		}
		submitter = submission.NewPubSub(publisher)
	case submission.ModeWorkflow:
		trigger, err := gcp.NewWorkflowTrigger(ctx, config.ProjectID, config.WorkflowLocation, config.WorkflowID)
		if err != nil {
			return nil, err
		}
		submitter = submission.NewWorkflow(trigger)
	}
	f := NewDeletionWith(orch, submitter, logger)

	logger.Info("Deletion orchestrator initialized.",
		zap.String("workerMode", config.WorkerMode),
		zap.String("submissionMode", string(config.SubmissionMode)),
		zap.Duration("workerTimeout", config.Orchestrator.WorkerTimeout),
		zap.Duration("workflowTimeout", config.Orchestrator.WorkflowTimeout),
	)
	return f, nil
}

// NewDeletionWith assembles a DeletionFunction from already built parts.
// A nil submitter runs every request inline.
func NewDeletionWith(orch *orchestrator.Orchestrator, submitter submission.Submitter, logger *zap.Logger) *DeletionFunction {
	if logger == nil {
		logger = zap.NewNop()
	}
	inline := submission.NewInline(orch)
	if submitter == nil {
		submitter = inline
	}
	return &DeletionFunction{orchestrator: orch, inline: inline, submitter: submitter, logger: logger}
}

func newHTTPWorker(config *DeletionConfig, logger *zap.Logger) (orchestrator.Worker, error) {
	return worker.NewHTTPInvoker(config.WorkerURL, config.WorkerRetries, logger)
}

func newLocalWorker(firestoreClient *firestore.Client, storageClient *storage.Client, logger *zap.Logger) (orchestrator.Worker, error) {
	deleterConfig, err := loadDeleterConfig()
	if err != nil {
		return nil, fmt.Errorf("WORKER_MODE=local requires the deleter configuration: %w", err)
	}
	deleter, err := buildDeleter(deleterConfig, firestoreClient, storageClient, logger)
	if err != nil {
		return nil, err
	}
	return worker.NewInvoker(deleter), nil
}

// Submit hands the request to the configured submitter; forceInline bypasses it,
// which is how a Cloud Workflows execution calls back into this function.
func (f *DeletionFunction) Submit(ctx context.Context, req *models.DeletionRequest, forceInline bool) (*submission.Receipt, error) {
	if forceInline {
		return f.inline.Submit(ctx, *req)
	}
	return f.submitter.Submit(ctx, *req)
}

// HandleMessage runs the workflow for a Pub/Sub delivered request. A failed run is
// not returned as an error: its outcome is already recorded and must not be redelivered.
func (f *DeletionFunction) HandleMessage(ctx context.Context, data []byte) error {
	var req models.DeletionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("failed to decode deletion request: %w", err)
	}
	res, err := f.orchestrator.Run(ctx, req)
	if res == nil {
		// Redelivering an invalid request cannot make it valid.
		f.logger.Warn("Dropped invalid deletion request.", zap.Error(err))
		return nil
	}
	if err != nil {
		f.logger.Warn("Deletion workflow from message failed.",
			zap.String("executionId", res.ExecutionID),
			zap.String("cause", res.Cause),
		)
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/documentdeletion/internal/gcp"
	"github.com/Lllllllleong/documentdeletion/internal/logging"
	"github.com/Lllllllleong/documentdeletion/internal/models"
	"github.com/Lllllllleong/documentdeletion/internal/services"
	"github.com/Lllllllleong/documentdeletion/internal/submission"
	"github.com/Lllllllleong/documentdeletion/internal/tracing"
	"go.uber.org/zap"
)

var (
	deletionInstance *services.DeletionFunction
	once             sync.Once
	initErr          error
)

func init() {
	gcp.LoadDotEnv()
	logging.Setup()

	// "HandleDeleteDocument" is the entry point name configured in GCP.
	functions.HTTP("HandleDeleteDocument", handleDeleteDocument)
}

// main is required by the Go Functions Framework.
func main() {}

func handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		tracing.Init(context.Background(), "delete-document")
		deletionInstance, initErr = services.NewDeletion(context.Background(), zap.L())
	})
	defer tracing.Flush(r.Context())
	if initErr != nil {
		zap.L().Error("CRITICAL: Deletion service initialization failed.", zap.Error(initErr))
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.DeletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		zap.L().Warn("Could not decode request body.", zap.Error(err))
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	// Cloud Workflows executions call back with mode=inline to run the deletion here.
	forceInline := r.URL.Query().Get("mode") == string(submission.ModeInline)
	receipt, err := deletionInstance.Submit(r.Context(), &req, forceInline)
	switch {
	case errors.Is(err, models.ErrInvalidRequest):
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return
	case receipt != nil && receipt.Result != nil:
		status := http.StatusOK
		if err != nil {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, receipt.Result)
		return
	case err != nil:
		zap.L().Error("Failed to submit deletion request.", zap.Error(err))
		http.Error(w, "Internal Server Error: submission failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, models.SubmissionReceipt{
		Status:       "accepted",
		Mode:         string(receipt.Mode),
		SubmissionID: receipt.SubmissionID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("Failed to write response.", zap.Error(err))
	}
}

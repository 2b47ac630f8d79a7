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
	"go.uber.org/zap"
)

var (
	deleterInstance *services.DeleterFunction
	once            sync.Once
	initErr         error
)

func init() {
	gcp.LoadDotEnv()
	logging.Setup()

	// "HandleDeleteDocumentArtifacts" is the entry point name configured in GCP.
	functions.HTTP("HandleDeleteDocumentArtifacts", handleDeleteDocumentArtifacts)
}

// main is required by the Go Functions Framework.
func main() {}

func handleDeleteDocumentArtifacts(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		deleterInstance, initErr = services.NewDeleter(context.Background(), zap.L())
	})
	if initErr != nil {
		zap.L().Error("CRITICAL: Deleter initialization failed.", zap.Error(initErr))
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.DeletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		zap.L().Warn("Could not decode request body.", zap.Error(err))
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := deleterInstance.Process(r.Context(), &req)
	if errors.Is(err, models.ErrInvalidRequest) {
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		// The specific error is already logged inside the Process method.
		http.Error(w, "Internal Server Error: deletion failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		zap.L().Error("Failed to write response.", zap.Error(err))
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/documentdeletion/internal/gcp"
	"github.com/Lllllllleong/documentdeletion/internal/logging"
	"github.com/Lllllllleong/documentdeletion/internal/models"
	"github.com/Lllllllleong/documentdeletion/internal/services"
	"github.com/Lllllllleong/documentdeletion/internal/tracing"
	cloudevents "github.com/cloudevents/sdk-go/v2"
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

	// Register the CloudEvent function. Triggered by the deletion topic.
	functions.CloudEvent("DeleteDocumentFromEvent", deleteDocumentFromEvent)
}

// main is required by the Go Functions Framework.
func main() {}

func deleteDocumentFromEvent(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		tracing.Init(context.Background(), "deletion-listener")
		deletionInstance, initErr = services.NewDeletion(context.Background(), zap.L())
	})
	defer tracing.Flush(ctx)
	if initErr != nil {
		zap.L().Error("Critical error during function initialization.", zap.Error(initErr))
		return initErr
	}

	var msg models.MessagePublishedData
	if err := json.Unmarshal(e.Data(), &msg); err != nil {
		zap.L().Error("Failed to unmarshal event data.", zap.Error(err), zap.String("eventId", e.ID()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}
	return deletionInstance.HandleMessage(ctx, msg.Message.Data)
}

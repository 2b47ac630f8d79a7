package statusstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/documentdeletion/internal/gcp"
	"github.com/Lllllllleong/documentdeletion/internal/models"
	"github.com/Lllllllleong/documentdeletion/internal/statusstore"
)

// Runs against the Firestore emulator only.
func TestFirestoreStoreCompareAndSet(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := gcp.NewFirestoreClient(ctx, "test-project")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	collections := gcp.DefaultCollections()
	store := statusstore.NewFirestoreStore(client, collections)
	key := models.DocumentKey{WorkspaceID: "ws-" + uuid.NewString(), DocumentID: "doc1"}
	ref := collections.DocumentRef(client, key)

	ok, err := store.CompareAndSetStatus(ctx, key, statusstore.Any(), statusstore.Update{Status: models.StatusDeleting})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = ref.Set(ctx, models.Document{WorkspaceID: key.WorkspaceID, DocumentID: key.DocumentID, Status: models.StatusProcessed})
	require.NoError(t, err)

	ok, err = store.CompareAndSetStatus(ctx, key, statusstore.NoneOf(models.StatusDeleted), statusstore.Update{Status: models.StatusDeleting, ExecutionID: "exec-1"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.CompareAndSetStatus(ctx, key, statusstore.OneOf(models.StatusProcessed), statusstore.Update{Status: models.StatusError})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.CompareAndSetStatus(ctx, key, statusstore.OneOf(models.StatusDeleting), statusstore.Update{Status: models.StatusError, ErrorDetails: "index unreachable"})
	require.NoError(t, err)
	assert.True(t, ok)

	snap, err := ref.Get(ctx)
	require.NoError(t, err)
	var doc models.Document
	require.NoError(t, snap.DataTo(&doc))
	assert.Equal(t, models.StatusError, doc.Status)
	assert.Equal(t, "index unreachable", doc.ErrorDetails)
	assert.Equal(t, "exec-1", doc.WorkflowExecutionID)
	assert.False(t, doc.UpdatedAt.IsZero())

	_, err = ref.Delete(ctx)
	require.NoError(t, err)
}

package worker_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/documentdeletion/internal/gcp/gcstest"
	"github.com/Lllllllleong/documentdeletion/internal/models"
	"github.com/Lllllllleong/documentdeletion/internal/worker"
)

func TestObjectStoreBackendDelete(t *testing.T) {
	fake := gcstest.NewServer(t)
	for _, name := range []string{"ws1/doc1/original.pdf", "ws1/doc1/pages/1.txt", "ws1/doc10/original.pdf"} {
		fake.Put("uploads", name, []byte("x"))
	}
	backend := worker.NewObjectStoreBackend(fake.Client(t), "uploads", nil)
	target := worker.Target{
		Key:          models.DocumentKey{WorkspaceID: "ws1", DocumentID: "doc1"},
		ObjectPrefix: "ws1/doc1",
	}

	require.NoError(t, backend.Delete(context.Background(), target))
	assert.Equal(t, []string{"ws1/doc1/"}, fake.ListedPrefixes())

	_, exists := fake.Object("uploads", "ws1/doc1/original.pdf")
	assert.False(t, exists)
	_, exists = fake.Object("uploads", "ws1/doc1/pages/1.txt")
	assert.False(t, exists)
	_, exists = fake.Object("uploads", "ws1/doc10/original.pdf")
	assert.True(t, exists, "sibling document sharing the id prefix is untouched")

	// Nothing left to delete is still success.
	require.NoError(t, backend.Delete(context.Background(), target))
}

func TestObjectStoreBackendDeleteFailures(t *testing.T) {
	t.Run("forbidden object", func(t *testing.T) {
		fake := gcstest.NewServer(t)
		fake.Put("uploads", "ws1/doc1/locked", []byte("x"))
		fake.FailDelete("ws1/doc1/locked", http.StatusForbidden)
		backend := worker.NewObjectStoreBackend(fake.Client(t), "uploads", nil)

		err := backend.Delete(context.Background(), worker.Target{ObjectPrefix: "ws1/doc1/"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gs://uploads/ws1/doc1/")
		assert.Equal(t, 1, fake.Deletes("ws1/doc1/locked"))
	})

	t.Run("empty prefix", func(t *testing.T) {
		fake := gcstest.NewServer(t)
		fake.Put("uploads", "ws1/doc1/a", []byte("x"))
		backend := worker.NewObjectStoreBackend(fake.Client(t), "uploads", nil)

		err := backend.Delete(context.Background(), worker.Target{})
		require.Error(t, err)
		assert.Empty(t, fake.ListedPrefixes())
		_, exists := fake.Object("uploads", "ws1/doc1/a")
		assert.True(t, exists)
	})
}

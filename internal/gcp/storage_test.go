package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/Lllllllleong/documentdeletion/internal/gcp/gcstest"
)

func TestIsPreconditionFailed(t *testing.T) {
	assert.True(t, isPreconditionFailed(&googleapi.Error{Code: http.StatusPreconditionFailed}))
	assert.True(t, isPreconditionFailed(fmt.Errorf("close: %w", &googleapi.Error{Code: http.StatusPreconditionFailed})))
	assert.False(t, isPreconditionFailed(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isPreconditionFailed(errors.New("network")))
}

func TestDeletePrefixRefusesEmptyPrefix(t *testing.T) {
	n, err := DeletePrefix(context.Background(), nil, "")
	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestDeletePrefixDeletesEveryListedObject(t *testing.T) {
	fake := gcstest.NewServer(t)
	for _, name := range []string{"ws1/doc1/a", "ws1/doc1/b", "ws1/doc1/c", "ws1/doc10/a", "ws2/doc1/a"} {
		fake.Put("bkt", name, []byte("x"))
	}
	fake.FailDelete("ws1/doc1/b", http.StatusNotFound)
	fake.FailDelete("ws1/doc1/c", http.StatusForbidden)
	bucket := fake.Client(t).Bucket("bkt")

	count, err := DeletePrefix(context.Background(), bucket, "ws1/doc1/")
	require.Error(t, err)
	assert.Equal(t, 3, count)
	assert.Contains(t, err.Error(), "delete ws1/doc1/c")

	var gerr *googleapi.Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, http.StatusForbidden, gerr.Code)

	assert.Equal(t, 1, fake.Deletes("ws1/doc1/a"))
	assert.Equal(t, 1, fake.Deletes("ws1/doc1/b"))
	assert.Equal(t, 1, fake.Deletes("ws1/doc1/c"), "a 403 is not retried")
	assert.Zero(t, fake.Deletes("ws1/doc10/a"))
	assert.Zero(t, fake.Deletes("ws2/doc1/a"))

	_, exists := fake.Object("bkt", "ws1/doc1/a")
	assert.False(t, exists)
	_, exists = fake.Object("bkt", "ws1/doc10/a")
	assert.True(t, exists)
}

func TestDeleteObjectMissingIsSuccess(t *testing.T) {
	fake := gcstest.NewServer(t)
	bucket := fake.Client(t).Bucket("bkt")

	require.NoError(t, DeleteObject(context.Background(), bucket, "ws1/doc1/gone"))
	assert.Equal(t, 1, fake.Deletes("ws1/doc1/gone"))
}

func TestDeletePrefixEmptyListing(t *testing.T) {
	fake := gcstest.NewServer(t)
	bucket := fake.Client(t).Bucket("bkt")

	count, err := DeletePrefix(context.Background(), bucket, "ws1/doc1/")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, []string{"ws1/doc1/"}, fake.ListedPrefixes())
}

func TestSaveToGCSAtomicallyWritesOnce(t *testing.T) {
	fake := gcstest.NewServer(t)
	bucket := fake.Client(t).Bucket("bkt")
	ctx := context.Background()

	require.NoError(t, SaveToGCSAtomically(ctx, bucket, "executions/ws1/doc1/exec-1.json", `{"n":1}`))
	require.NoError(t, SaveToGCSAtomically(ctx, bucket, "executions/ws1/doc1/exec-1.json", `{"n":2}`))

	content, ok := fake.Object("bkt", "executions/ws1/doc1/exec-1.json")
	require.True(t, ok)
	assert.JSONEq(t, `{"n":1}`, string(content))
	assert.Equal(t, 2, fake.Uploads("executions/ws1/doc1/exec-1.json"))
}

package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeletionRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     DeletionRequest
		wantErr bool
	}{
		{name: "complete", req: DeletionRequest{WorkspaceID: "ws1", DocumentID: "doc1"}},
		{name: "missing workspace", req: DeletionRequest{DocumentID: "doc1"}, wantErr: true},
		{name: "missing document", req: DeletionRequest{WorkspaceID: "ws1"}, wantErr: true},
		{name: "empty", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRequest)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDeletionRequestIgnoresUnknownFields(t *testing.T) {
	var req DeletionRequest
	require.NoError(t, json.Unmarshal([]byte(`{"workspaceId":"ws1","documentId":"doc1","status":"deleted"}`), &req))
	assert.Equal(t, DocumentKey{WorkspaceID: "ws1", DocumentID: "doc1"}, req.Key())
	assert.NoError(t, req.Validate())
}

func TestDocumentPrefix(t *testing.T) {
	doc := &Document{WorkspaceID: "ws1", DocumentID: "doc1"}
	assert.Equal(t, "ws1/doc1/", doc.Prefix())
	assert.Equal(t, "ws1/doc1", doc.Key().String())

	doc.ObjectPrefix = "legacy/doc1/"
	assert.Equal(t, "legacy/doc1/", doc.Prefix())
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, StateSuccess.Terminal())
	assert.True(t, StateFail.Terminal())
	for _, s := range []State{StateStart, StateSetDeleting, StateInvoke, StateHandleError} {
		assert.False(t, s.Terminal(), s)
	}
}

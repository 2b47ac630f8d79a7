package executionlog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/Lllllllleong/documentdeletion/internal/executionlog"
	"github.com/Lllllllleong/documentdeletion/internal/models"
)

type errLog struct{ err error }

func (l errLog) Record(context.Context, models.ExecutionEntry) error { return l.err }

func entry(executionID string, state models.State) models.ExecutionEntry {
	return models.ExecutionEntry{
		Kind:        models.EntryTransition,
		ExecutionID: executionID,
		WorkspaceID: "ws1",
		DocumentID:  "doc1",
		Transition:  &models.Transition{State: state},
	}
}

func TestMemoryLogEntriesByExecution(t *testing.T) {
	log := executionlog.NewMemoryLog()
	ctx := context.Background()
	require.NoError(t, log.Record(ctx, entry("a", models.StateStart)))
	require.NoError(t, log.Record(ctx, entry("b", models.StateStart)))
	require.NoError(t, log.Record(ctx, entry("a", models.StateSetDeleting)))

	got := log.Entries("a")
	require.Len(t, got, 2)
	assert.Equal(t, models.StateStart, got[0].Transition.State)
	assert.Equal(t, models.StateSetDeleting, got[1].Transition.State)
	assert.Len(t, log.Entries("b"), 1)
	assert.Empty(t, log.Entries("c"))
}

func TestMultiRecordsEverywhereAndCombinesErrors(t *testing.T) {
	first, second := executionlog.NewMemoryLog(), executionlog.NewMemoryLog()
	errA, errB := errors.New("firestore down"), errors.New("bucket down")

	log := executionlog.Multi(first, errLog{errA}, second, errLog{errB})
	err := log.Record(context.Background(), entry("a", models.StateStart))

	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Len(t, first.Entries("a"), 1)
	assert.Len(t, second.Entries("a"), 1)

	assert.NoError(t, executionlog.Multi().Record(context.Background(), entry("a", models.StateStart)))
}

func TestArchiveObjectName(t *testing.T) {
	e := models.ExecutionEntry{Kind: models.EntryOutcome, ExecutionID: "exec-1", WorkspaceID: "ws1", DocumentID: "doc1"}
	assert.Equal(t, "executions/ws1/doc1/exec-1.json", executionlog.ObjectName(e))
}

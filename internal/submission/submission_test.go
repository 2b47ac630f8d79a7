package submission_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/documentdeletion/internal/models"
	"github.com/Lllllllleong/documentdeletion/internal/orchestrator"
	"github.com/Lllllllleong/documentdeletion/internal/submission"
)

type runnerFunc func(ctx context.Context, req models.DeletionRequest) (*orchestrator.Result, error)

func (f runnerFunc) Run(ctx context.Context, req models.DeletionRequest) (*orchestrator.Result, error) {
	return f(ctx, req)
}

type fakePublisher struct {
	payload    any
	attributes map[string]string
	err        error
}

func (p *fakePublisher) PublishJSON(_ context.Context, v any, attributes map[string]string) (string, error) {
	p.payload, p.attributes = v, attributes
	return "msg-1", p.err
}

type fakeStarter struct {
	argument any
	err      error
}

func (s *fakeStarter) Start(_ context.Context, argument any) (string, error) {
	s.argument = argument
	if s.err != nil {
		return "", s.err
	}
	return "projects/p/locations/l/workflows/w/executions/e1", nil
}

var req = models.DeletionRequest{WorkspaceID: "ws1", DocumentID: "doc1"}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]submission.Mode{
		"":         submission.ModeInline,
		"inline":   submission.ModeInline,
		"pubsub":   submission.ModePubSub,
		"workflow": submission.ModeWorkflow,
	} {
		got, err := submission.ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := submission.ParseMode("queue")
	assert.Error(t, err)
}

func TestInline(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := submission.NewInline(runnerFunc(func(_ context.Context, r models.DeletionRequest) (*orchestrator.Result, error) {
			return &orchestrator.Result{ExecutionID: "exec-1", Request: r, State: models.StateSuccess}, nil
		}))
		receipt, err := s.Submit(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, receipt.Async())
		assert.Equal(t, "exec-1", receipt.SubmissionID)
		assert.True(t, receipt.Result.Succeeded())
	})

	t.Run("failed run keeps its result", func(t *testing.T) {
		failed := &orchestrator.FailedError{Cause: orchestrator.CauseDeletionFailed, Err: errors.New("boom")}
		s := submission.NewInline(runnerFunc(func(context.Context, models.DeletionRequest) (*orchestrator.Result, error) {
			return &orchestrator.Result{ExecutionID: "exec-1", State: models.StateFail, Cause: failed.Cause}, failed
		}))
		receipt, err := s.Submit(context.Background(), req)
		require.ErrorIs(t, err, failed)
		require.NotNil(t, receipt)
		assert.Equal(t, orchestrator.CauseDeletionFailed, receipt.Result.Cause)
	})

	t.Run("invalid request", func(t *testing.T) {
		s := submission.NewInline(runnerFunc(func(_ context.Context, r models.DeletionRequest) (*orchestrator.Result, error) {
			return nil, r.Validate()
		}))
		receipt, err := s.Submit(context.Background(), models.DeletionRequest{})
		assert.ErrorIs(t, err, models.ErrInvalidRequest)
		assert.Nil(t, receipt)
	})
}

func TestPubSub(t *testing.T) {
	p := &fakePublisher{}
	receipt, err := submission.NewPubSub(p).Submit(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, receipt.Async())
	assert.Equal(t, submission.ModePubSub, receipt.Mode)
	assert.Equal(t, "msg-1", receipt.SubmissionID)
	assert.Equal(t, req, p.payload)
	assert.Equal(t, map[string]string{"workspaceId": "ws1", "documentId": "doc1"}, p.attributes)

	_, err = submission.NewPubSub(&fakePublisher{}).Submit(context.Background(), models.DeletionRequest{WorkspaceID: "ws1"})
	assert.ErrorIs(t, err, models.ErrInvalidRequest)

	_, err = submission.NewPubSub(&fakePublisher{err: errors.New("topic not found")}).Submit(context.Background(), req)
	assert.Error(t, err)
}

func TestWorkflow(t *testing.T) {
	s := &fakeStarter{}
	receipt, err := submission.NewWorkflow(s).Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, submission.ModeWorkflow, receipt.Mode)
	assert.Equal(t, "projects/p/locations/l/workflows/w/executions/e1", receipt.SubmissionID)
	assert.Equal(t, req, s.argument)

	_, err = submission.NewWorkflow(&fakeStarter{}).Submit(context.Background(), models.DeletionRequest{})
	assert.ErrorIs(t, err, models.ErrInvalidRequest)

	_, err = submission.NewWorkflow(&fakeStarter{err: errors.New("permission denied")}).Submit(context.Background(), req)
	assert.Error(t, err)
}

// Package submission accepts deletion requests and hands them to the orchestrator,
// either inline or through Pub/Sub or Cloud Workflows.
package submission

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/documentdeletion/internal/models"
	"github.com/Lllllllleong/documentdeletion/internal/orchestrator"
)

type Mode string

const (
	ModeInline   Mode = "inline"
	ModePubSub   Mode = "pubsub"
	ModeWorkflow Mode = "workflow"
)

// ParseMode validates a configured submission mode; empty means inline.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeInline:
		return ModeInline, nil
	case ModePubSub, ModeWorkflow:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown submission mode %q", s)
}

// Receipt describes what happened to a submission. Result is only set inline.
type Receipt struct {
	Mode         Mode
	SubmissionID string
	Result       *orchestrator.Result
}

// Async reports whether the deletion will run after Submit returns.
func (r *Receipt) Async() bool {
	return r.Mode != ModeInline
}

type Submitter interface {
	Submit(ctx context.Context, req models.DeletionRequest) (*Receipt, error)
}

// Runner is the part of the orchestrator used for inline submissions.
type Runner interface {
	Run(ctx context.Context, req models.DeletionRequest) (*orchestrator.Result, error)
}

// Inline runs the workflow before returning.
type Inline struct {
	runner Runner
}

func NewInline(runner Runner) *Inline {
	return &Inline{runner: runner}
}

// Submit returns the run's error, if any, together with a receipt holding its result.
func (s *Inline) Submit(ctx context.Context, req models.DeletionRequest) (*Receipt, error) {
	res, err := s.runner.Run(ctx, req)
	if res == nil {
		return nil, err
	}
	return &Receipt{Mode: ModeInline, SubmissionID: res.ExecutionID, Result: res}, err
}

// Publisher is the part of a Pub/Sub topic used for submissions.
type Publisher interface {
	PublishJSON(ctx context.Context, v any, attributes map[string]string) (string, error)
}

// PubSub publishes the request for the deletion-listener function.
type PubSub struct {
	publisher Publisher
}

func NewPubSub(publisher Publisher) *PubSub {
	return &PubSub{publisher: publisher}
}

func (s *PubSub) Submit(ctx context.Context, req models.DeletionRequest) (*Receipt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	id, err := s.publisher.PublishJSON(ctx, req, map[string]string{
		"workspaceId": req.WorkspaceID,
		"documentId":  req.DocumentID,
	})
	if err != nil {
		return nil, err
	}
	return &Receipt{Mode: ModePubSub, SubmissionID: id}, nil
}

// Starter is the part of a workflow trigger used for submissions.
type Starter interface {
	Start(ctx context.Context, argument any) (string, error)
}

// Workflow starts a Cloud Workflows execution that calls the delete-document function.
type Workflow struct {
	starter Starter
}

func NewWorkflow(starter Starter) *Workflow {
	return &Workflow{starter: starter}
}

func (s *Workflow) Submit(ctx context.Context, req models.DeletionRequest) (*Receipt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	name, err := s.starter.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Receipt{Mode: ModeWorkflow, SubmissionID: name}, nil
}

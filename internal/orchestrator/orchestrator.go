// Package orchestrator drives the deletion workflow of a single document:
//
//	Start -> SetDeleting -> Invoke -> Success
//	                          \-> HandleError -> Fail
//
// The orchestrator owns only the "deleting" and "error" markers. Writing "deleted"
// belongs to the worker, and no step is ever retried within a run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Lllllllleong/documentdeletion/internal/executionlog"
	"github.com/Lllllllleong/documentdeletion/internal/models"
	"github.com/Lllllllleong/documentdeletion/internal/statusstore"
	"github.com/Lllllllleong/documentdeletion/internal/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

//go:generate mockgen -source=orchestrator.go -destination=mock_worker_test.go -package=orchestrator_test

// Worker removes a document's artifacts from every enabled backend.
// Any returned error is a failure; partial progress is the worker's own concern.
type Worker interface {
	Invoke(ctx context.Context, req models.DeletionRequest) (*models.WorkerResponse, error)
}

const (
	CauseMarkDeleting   = "could not mark deleting"
	CauseDeletionFailed = "Document deletion failed"
)

var (
	ErrNotAcknowledged = errors.New("status write not acknowledged")
	ErrWorkerTimeout   = errors.New("deletion worker timed out")
	ErrWorkerPanic     = errors.New("deletion worker panicked")
)

// FailedError is returned by Run when the workflow ends in Fail.
type FailedError struct {
	Cause string
	Err   error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Cause, e.Err)
}

func (e *FailedError) Unwrap() error {
	return e.Err
}

// Config bounds a run. WorkflowTimeout and WorkerTimeout are independent;
// see ValidateTimeouts for the relationship between them.
type Config struct {
	WorkerTimeout      time.Duration
	WorkflowTimeout    time.Duration
	StatusWriteTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		WorkerTimeout:      15 * time.Minute,
		WorkflowTimeout:    20 * time.Minute,
		StatusWriteTimeout: 30 * time.Second,
	}
}

// ValidateTimeouts rejects non-positive bounds and reports whether the workflow
// could time out while the worker is still inside its own budget.
func (c Config) ValidateTimeouts() (workflowShorterThanWorker bool, err error) {
	if c.WorkerTimeout <= 0 || c.WorkflowTimeout <= 0 || c.StatusWriteTimeout <= 0 {
		return false, fmt.Errorf("timeouts must be positive: worker=%s workflow=%s statusWrite=%s",
			c.WorkerTimeout, c.WorkflowTimeout, c.StatusWriteTimeout)
	}
	return c.WorkflowTimeout <= c.WorkerTimeout, nil
}

// Result is the workflow's result context. The worker's output is kept under its
// own field so it never overwrites the request.
type Result struct {
	ExecutionID string                 `json:"executionId"`
	Request     models.DeletionRequest `json:"request"`
	State       models.State           `json:"state"`
	Outcome     models.Outcome         `json:"outcome"`
	Cause       string                 `json:"cause,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Worker      *models.WorkerResponse `json:"worker,omitempty"`
	History     []models.Transition    `json:"history"`
}

// Succeeded reports whether the run ended in Success.
func (r *Result) Succeeded() bool {
	return r.State == models.StateSuccess
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the time source used for transition timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithExecutionIDs overrides how execution IDs are generated.
func WithExecutionIDs(next func() string) Option {
	return func(o *Orchestrator) { o.newID = next }
}

type Orchestrator struct {
	store  statusstore.Store
	worker Worker
	log    executionlog.Log
	logger *zap.Logger
	cfg    Config
	now    func() time.Time
	newID  func() string
}

func New(store statusstore.Store, worker Worker, log executionlog.Log, logger *zap.Logger, cfg Config, opts ...Option) (*Orchestrator, error) {
	if store == nil || worker == nil {
		return nil, fmt.Errorf("orchestrator requires a status store and a worker")
	}
	short, err := cfg.ValidateTimeouts()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if log == nil {
		log = executionlog.Multi()
	}
	if short {
		logger.Warn("Workflow timeout does not exceed worker timeout; runs may fail while the worker is still deleting.",
			zap.Duration("workflowTimeout", cfg.WorkflowTimeout),
			zap.Duration("workerTimeout", cfg.WorkerTimeout),
		)
	}

	o := &Orchestrator{
		store:  store,
		worker: worker,
		log:    log,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// run is the mutable state of one workflow instance.
type run struct {
	result *Result
	logCtx *zap.Logger
	err    error
}

// Run executes one workflow instance to a terminal state. It returns
// models.ErrInvalidRequest without any transition when an identifier is missing,
// and a *FailedError alongside the populated result when the run ends in Fail.
func (o *Orchestrator) Run(ctx context.Context, req models.DeletionRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.WorkflowTimeout)
	defer cancel()

	executionID := o.newID()
	ctx, span := tracing.Tracer().Start(ctx, "DeleteDocument", trace.WithAttributes(
		attribute.String("workspace.id", req.WorkspaceID),
		attribute.String("document.id", req.DocumentID),
		attribute.String("execution.id", executionID),
	))
	defer span.End()

	r := &run{
		result: &Result{ExecutionID: executionID, Request: req},
		logCtx: o.logger.With(
			zap.String("executionId", executionID),
			zap.String("workspaceId", req.WorkspaceID),
			zap.String("documentId", req.DocumentID),
		),
	}
	r.logCtx.Info("Starting document deletion workflow.")

	for state := models.StateStart; ; {
		o.enter(ctx, r, state)
		if state.Terminal() {
			break
		}
		state = o.step(ctx, r, state)
	}

	o.finish(ctx, r)
	if r.result.Succeeded() {
		span.SetStatus(codes.Ok, "")
		return r.result, nil
	}
	span.SetStatus(codes.Error, r.result.Cause)
	return r.result, &FailedError{Cause: r.result.Cause, Err: r.err}
}

// step executes a non-terminal state and returns the next one.
func (o *Orchestrator) step(ctx context.Context, r *run, state models.State) models.State {
	ctx, span := tracing.Tracer().Start(ctx, string(state))
	defer span.End()

	switch state {
	case models.StateStart:
		return models.StateSetDeleting

	case models.StateSetDeleting:
		if err := o.setDeleting(ctx, r); err != nil {
			span.RecordError(err)
			r.err = err
			r.result.Cause = CauseMarkDeleting
			r.logCtx.Error("Could not mark document as deleting; worker not invoked.", zap.Error(err))
			return models.StateFail
		}
		return models.StateInvoke

	case models.StateInvoke:
		resp, err := o.invoke(ctx, r.result.Request)
		if err != nil {
			span.RecordError(err)
			r.err = err
			r.logCtx.Error("Deletion worker failed.", zap.Error(err))
			return models.StateHandleError
		}
		r.result.Worker = resp
		return models.StateSuccess

	case models.StateHandleError:
		if err := o.markError(ctx, r); err != nil {
			span.RecordError(err)
			// The run still fails; the document may be left in "deleting".
			r.logCtx.Error("CRITICAL: Failed to mark document as error after a deletion failure.", zap.Error(err))
		}
		r.result.Cause = CauseDeletionFailed
		return models.StateFail
	}
	panic(fmt.Sprintf("orchestrator: no step for state %q", state))
}

func (o *Orchestrator) setDeleting(ctx context.Context, r *run) error {
	writeCtx, cancel := context.WithTimeout(ctx, o.cfg.StatusWriteTimeout)
	defer cancel()

	// A deleted document is terminal and must not move back to deleting.
	ok, err := o.store.CompareAndSetStatus(writeCtx, r.result.Request.Key(),
		statusstore.NoneOf(models.StatusDeleted),
		statusstore.Update{Status: models.StatusDeleting, ExecutionID: r.result.ExecutionID},
	)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: document missing or already deleted", ErrNotAcknowledged)
	}
	return nil
}

func (o *Orchestrator) markError(ctx context.Context, r *run) error {
	// Detached so a workflow timeout cannot prevent recording the failure.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.StatusWriteTimeout)
	defer cancel()

	ok, err := o.store.CompareAndSetStatus(writeCtx, r.result.Request.Key(),
		statusstore.OneOf(models.StatusDeleting),
		statusstore.Update{Status: models.StatusError, ErrorDetails: r.err.Error(), ExecutionID: r.result.ExecutionID},
	)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: document no longer deleting", ErrNotAcknowledged)
	}
	return nil
}

type invocation struct {
	resp *models.WorkerResponse
	err  error
}

// invoke calls the worker and stops waiting once the worker timeout or the
// workflow deadline passes, even if the worker ignores ctx.
func (o *Orchestrator) invoke(ctx context.Context, req models.DeletionRequest) (*models.WorkerResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.WorkerTimeout)
	defer cancel()

	done := make(chan invocation, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- invocation{err: fmt.Errorf("%w: %v", ErrWorkerPanic, p)}
			}
		}()
		resp, err := o.worker.Invoke(ctx, req)
		done <- invocation{resp: resp, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrWorkerTimeout, out.err)
		}
		return out.resp, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrWorkerTimeout, ctx.Err())
	}
}

func (o *Orchestrator) enter(ctx context.Context, r *run, state models.State) {
	t := models.Transition{State: state, EnteredAt: o.now()}
	if state == models.StateHandleError || state == models.StateFail {
		if r.err != nil {
			t.Error = r.err.Error()
		}
	}
	r.result.State = state
	r.result.History = append(r.result.History, t)
	r.logCtx.Debug("Entered state.", zap.String("state", string(state)))

	o.record(ctx, r, models.ExecutionEntry{
		Kind:       models.EntryTransition,
		Transition: &t,
	})
}

func (o *Orchestrator) finish(ctx context.Context, r *run) {
	entry := models.ExecutionEntry{
		Kind:    models.EntryOutcome,
		Outcome: models.OutcomeSucceeded,
		History: r.result.History,
	}
	r.result.Outcome = models.OutcomeSucceeded
	if !r.result.Succeeded() {
		r.result.Outcome = models.OutcomeFailed
		entry.Outcome = models.OutcomeFailed
		entry.Cause = r.result.Cause
		if r.err != nil {
			r.result.Error = r.err.Error()
			entry.Error = r.result.Error
		}
	}
	o.record(ctx, r, entry)

	if r.result.Succeeded() {
		r.logCtx.Info("Document deletion workflow succeeded.")
	} else {
		r.logCtx.Warn("Document deletion workflow failed.", zap.String("cause", r.result.Cause))
	}
}

// record appends to the execution log. Log failures never change the run's outcome.
func (o *Orchestrator) record(ctx context.Context, r *run, entry models.ExecutionEntry) {
	entry.ExecutionID = r.result.ExecutionID
	entry.WorkspaceID = r.result.Request.WorkspaceID
	entry.DocumentID = r.result.Request.DocumentID
	entry.RecordedAt = o.now()

	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.StatusWriteTimeout)
	defer cancel()
	if err := o.log.Record(logCtx, entry); err != nil {
		r.logCtx.Warn("Failed to append to execution log.", zap.String("kind", string(entry.Kind)), zap.Error(err))
	}
}

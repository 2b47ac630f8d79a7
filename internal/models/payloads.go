package models

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// These structs define the JSON payloads exchanged between the submission endpoint,
// the orchestrator and the deletion worker function.

// ErrInvalidRequest is returned when a deletion request misses an identifier.
var ErrInvalidRequest = errors.New("invalid deletion request")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// DeletionRequest is the submission payload. No other fields are read.
type DeletionRequest struct {
	WorkspaceID string `json:"workspaceId" validate:"required"`
	DocumentID  string `json:"documentId" validate:"required"`
}

// Key returns the document identity addressed by the request.
func (r DeletionRequest) Key() DocumentKey {
	return DocumentKey{WorkspaceID: r.WorkspaceID, DocumentID: r.DocumentID}
}

// Validate only checks that both identifiers are present.
func (r DeletionRequest) Validate() error {
	if err := requestValidator().Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// WorkerResponse is the output of the document-deleter function.
type WorkerResponse struct {
	Status         string   `json:"status"`
	AlreadyDeleted bool     `json:"alreadyDeleted,omitempty"`
	Backends       []string `json:"backends,omitempty"`
}

// SubmissionReceipt is returned by the delete-document endpoint for asynchronous modes.
type SubmissionReceipt struct {
	Status       string `json:"status"`
	Mode         string `json:"mode"`
	SubmissionID string `json:"submissionId,omitempty"`
}

// MessagePublishedData is the CloudEvent payload delivered for a Pub/Sub message.
type MessagePublishedData struct {
	Message struct {
		Data       []byte            `json:"data"`
		Attributes map[string]string `json:"attributes,omitempty"`
		MessageID  string            `json:"messageId,omitempty"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// Package statusstore holds the conditional-write store for document lifecycle status.
package statusstore

import (
	"context"
	"slices"

	"github.com/Lllllllleong/documentdeletion/internal/models"
)

//go:generate mockgen -source=statusstore.go -destination=mock_statusstore.go -package=statusstore

// Store applies atomic compare-and-set writes to a document's status.
type Store interface {
	// CompareAndSetStatus applies update only if the record exists and its current
	// status satisfies expected. It reports whether the write was applied.
	CompareAndSetStatus(ctx context.Context, key models.DocumentKey, expected Precondition, update Update) (bool, error)
}

// Update is the status change applied by a successful compare-and-set.
type Update struct {
	Status       models.Status
	ErrorDetails string
	ExecutionID  string
}

// Precondition constrains the status a record must hold for a write to apply.
// The zero value accepts any status of an existing record.
type Precondition struct {
	anyOf  []models.Status
	noneOf []models.Status
}

// Any accepts any current status as long as the record exists.
func Any() Precondition {
	return Precondition{}
}

// OneOf accepts only the listed statuses.
func OneOf(statuses ...models.Status) Precondition {
	return Precondition{anyOf: statuses}
}

// NoneOf accepts every status except the listed ones.
func NoneOf(statuses ...models.Status) Precondition {
	return Precondition{noneOf: statuses}
}

// Allows reports whether current satisfies the precondition.
func (p Precondition) Allows(current models.Status) bool {
	if len(p.anyOf) > 0 && !slices.Contains(p.anyOf, current) {
		return false
	}
	return !slices.Contains(p.noneOf, current)
}

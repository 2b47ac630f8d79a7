package models

import "time"

// State is a step of the deletion state machine.
type State string

const (
	StateStart       State = "Start"
	StateSetDeleting State = "SetDeleting"
	StateInvoke      State = "Invoke"
	StateHandleError State = "HandleError"
	StateSuccess     State = "Success"
	StateFail        State = "Fail"
)

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFail
}

// Outcome is the final result of a workflow run.
type Outcome string

const (
	OutcomeSucceeded Outcome = "SUCCEEDED"
	OutcomeFailed    Outcome = "FAILED"
)

// Transition records entering a state during a run.
type Transition struct {
	State     State     `json:"state" firestore:"state"`
	Error     string    `json:"error,omitempty" firestore:"error,omitempty"`
	EnteredAt time.Time `json:"enteredAt" firestore:"enteredAt"`
}

// EntryKind distinguishes transition entries from the closing outcome entry.
type EntryKind string

const (
	EntryTransition EntryKind = "transition"
	EntryOutcome    EntryKind = "outcome"
)

// ExecutionEntry is one append-only record in the execution log.
type ExecutionEntry struct {
	Kind        EntryKind    `json:"kind" firestore:"kind"`
	ExecutionID string       `json:"executionId" firestore:"executionId"`
	WorkspaceID string       `json:"workspaceId" firestore:"workspaceId"`
	DocumentID  string       `json:"documentId" firestore:"documentId"`
	Transition  *Transition  `json:"transition,omitempty" firestore:"transition,omitempty"`
	Outcome     Outcome      `json:"outcome,omitempty" firestore:"outcome,omitempty"`
	Cause       string       `json:"cause,omitempty" firestore:"cause,omitempty"`
	Error       string       `json:"error,omitempty" firestore:"error,omitempty"`
	History     []Transition `json:"history,omitempty" firestore:"history,omitempty"`
	RecordedAt  time.Time    `json:"recordedAt" firestore:"recordedAt"`
}

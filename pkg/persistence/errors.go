// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrStageNotFound indicates a workflow stage was not found.
	ErrStageNotFound = errors.New("workflow stage not found")

	// ErrApplicationNotFound indicates a candidate application was not found.
	ErrApplicationNotFound = errors.New("candidate application not found")

	// ErrHistoryRecordNotFound indicates a progression history record was not found.
	ErrHistoryRecordNotFound = errors.New("history record not found")

	// ErrHistoryRecordImmutable indicates a write over a completed history record.
	ErrHistoryRecordImmutable = errors.New("history record is completed and immutable")

	// ErrVersionConflict indicates the stored aggregate changed since it was read.
	ErrVersionConflict = errors.New("version conflict")

	// ErrInvalidSortField indicates a sort field outside the allowlist.
	ErrInvalidSortField = errors.New("invalid sort field")
)

// EntityError wraps an entity-related error with additional context.
type EntityError struct {
	Op     string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	Entity string // Entity kind (e.g., "workflow", "stage")
	ID     string // Entity ID if applicable
	Err    error  // Underlying error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for entity errors.
func (e *EntityError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *EntityError {
	return &EntityError{Op: op, Entity: "workflow", ID: workflowID, Err: err}
}

// NewStageError creates a new stage error with context.
func NewStageError(op, stageID string, err error) *EntityError {
	return &EntityError{Op: op, Entity: "stage", ID: stageID, Err: err}
}

// NewApplicationError creates a new candidate application error with context.
func NewApplicationError(op, applicationID string, err error) *EntityError {
	return &EntityError{Op: op, Entity: "application", ID: applicationID, Err: err}
}

// NewHistoryError creates a new history record error with context.
func NewHistoryError(op, recordID string, err error) *EntityError {
	return &EntityError{Op: op, Entity: "history record", ID: recordID, Err: err}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsStageNotFound checks if an error indicates a stage was not found.
func IsStageNotFound(err error) bool {
	return errors.Is(err, ErrStageNotFound)
}

// IsApplicationNotFound checks if an error indicates an application was not found.
func IsApplicationNotFound(err error) bool {
	return errors.Is(err, ErrApplicationNotFound)
}

// IsHistoryRecordNotFound checks if an error indicates a history record was not found.
func IsHistoryRecordNotFound(err error) bool {
	return errors.Is(err, ErrHistoryRecordNotFound)
}

// IsNotFound checks if an error indicates any entity was not found.
func IsNotFound(err error) bool {
	return IsWorkflowNotFound(err) || IsStageNotFound(err) ||
		IsApplicationNotFound(err) || IsHistoryRecordNotFound(err)
}

// IsVersionConflict checks if an error indicates a stale write.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsInvalidSortField checks if an error indicates an invalid sort field.
func IsInvalidSortField(err error) bool {
	return errors.Is(err, ErrInvalidSortField)
}

// Package services implements the recruitment pipeline operations on top of persistence.
package services

import (
	"errors"
	"fmt"

	"github.com/hirepath/hirepath/pkg/locking"
	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidSortField     = errors.New("invalid sort field")
	ErrInvalidSortOrder     = errors.New("invalid sort order")
	ErrInvalidStatus        = errors.New("invalid workflow status")
	ErrInvalidKind          = errors.New("invalid workflow kind")
	ErrStageOrderOutOfRange = errors.New("stage order out of range")
	ErrDefaultOnCreate      = fmt.Errorf("%w: a new workflow is a draft and cannot be the default", models.ErrWorkflowNotActive)

	// Business Logic Conflicts (409 Conflict).
	// ErrOrderingConflict reports a stage list that is not a dense 1..N sequence. It needs
	// manual reconciliation and is never healed automatically.
	ErrOrderingConflict = errors.New("stage order is not a dense 1..N sequence")
)

// Not found errors are the persistence sentinels.
var (
	ErrWorkflowNotFound    = persistence.ErrWorkflowNotFound
	ErrStageNotFound       = persistence.ErrStageNotFound
	ErrApplicationNotFound = persistence.ErrApplicationNotFound
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidSortOrder) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrStageOrderOutOfRange) ||
		errors.Is(err, models.ErrNextPhaseOnNormalStage) ||
		errors.Is(err, models.ErrInvalidStageOrder) ||
		errors.Is(err, models.ErrStageDaysOutOfRange) ||
		errors.Is(err, models.ErrTimeLimitOutOfRange)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return models.IsInvalidTransition(err) ||
		errors.Is(err, ErrOrderingConflict) ||
		persistence.IsVersionConflict(err) ||
		locking.IsLockNotAcquired(err)
}

// IsNotFound checks if an error reports a missing workflow, stage, application or history record.
func IsNotFound(err error) bool {
	return persistence.IsNotFound(err)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewConflictError creates a new business conflict error with context.
func NewConflictError(op, code string, err error) *ServiceError {
	return &ServiceError{
		Op:   op,
		Code: code,
		Err:  err,
	}
}

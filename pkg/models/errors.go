package models

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is the root of every rejected state change.
var ErrInvalidTransition = errors.New("invalid transition")

// Workflow lifecycle transitions.
var (
	ErrWorkflowAlreadyActive   = fmt.Errorf("%w: workflow is already active", ErrInvalidTransition)
	ErrWorkflowAlreadyDraft    = fmt.Errorf("%w: workflow is already a draft", ErrInvalidTransition)
	ErrWorkflowAlreadyArchived = fmt.Errorf("%w: workflow is already archived", ErrInvalidTransition)
	ErrDefaultWorkflowLocked   = fmt.Errorf("%w: default workflow cannot be deactivated or archived", ErrInvalidTransition)
	ErrWorkflowNotActive       = fmt.Errorf("%w: workflow must be active", ErrInvalidTransition)
	ErrWorkflowAlreadyDefault  = fmt.Errorf("%w: workflow is already the default", ErrInvalidTransition)
	ErrWorkflowNotDefault      = fmt.Errorf("%w: workflow is not the default", ErrInvalidTransition)
)

// History transitions.
var ErrHistoryAlreadyCompleted = fmt.Errorf("%w: history record is already completed", ErrInvalidTransition)

// Stage definition errors.
var (
	ErrNextPhaseOnNormalStage = errors.New("only success or fail stages may declare a next phase")
	ErrInvalidStageOrder      = errors.New("stage order must be a positive integer")
	ErrStageDaysOutOfRange    = errors.New("stage durations cannot exceed 36500 days")
)

// ErrTimeLimitOutOfRange rejects a time limit too long to compute a deadline from.
var ErrTimeLimitOutOfRange = errors.New("time limit cannot exceed 876000 hours")

// ErrStageInactive rejects moving a candidate into a deactivated stage.
var ErrStageInactive = fmt.Errorf("%w: stage is inactive", ErrInvalidTransition)

// IsInvalidTransition checks if an error is a rejected state change.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

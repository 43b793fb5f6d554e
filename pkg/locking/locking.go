// Package locking serializes writes to one aggregate at a time.
package locking

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL bounds how long a crashed holder can keep an aggregate locked.
const DefaultTTL = 30 * time.Second

// ErrLockNotAcquired is returned when a lock could not be obtained before the context ended.
var ErrLockNotAcquired = errors.New("lock not acquired")

// Release gives a held lock back. It is safe to call more than once.
type Release func(ctx context.Context) error

// Locker grants exclusive access to a key.
type Locker interface {
	// Acquire blocks until the key is free or ctx is done.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// WorkflowStagesKey guards the stage list of a workflow.
func WorkflowStagesKey(workflowID string) string {
	return "workflow:" + workflowID + ":stages"
}

// WorkflowDefaultKey guards the default flag of a (company, kind) pair.
func WorkflowDefaultKey(companyID, kind string) string {
	return "workflow-default:" + companyID + ":" + kind
}

// ApplicationKey guards the progression fields of a candidate application.
func ApplicationKey(applicationID string) string {
	return "application:" + applicationID
}

// IsLockNotAcquired checks if an error reports a lock that could not be obtained.
func IsLockNotAcquired(err error) bool {
	return errors.Is(err, ErrLockNotAcquired)
}

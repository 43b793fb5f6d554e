package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hirepath/hirepath/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error constants are available", func(t *testing.T) {
		assert.NotNil(t, persistence.ErrWorkflowNotFound)
		assert.NotNil(t, persistence.ErrStageNotFound)
		assert.NotNil(t, persistence.ErrApplicationNotFound)
		assert.NotNil(t, persistence.ErrHistoryRecordNotFound)
		assert.NotNil(t, persistence.ErrVersionConflict)
	})

	t.Run("error checking functions work correctly", func(t *testing.T) {
		workflowErr := persistence.NewWorkflowError("GetByID", "workflow-123", persistence.ErrWorkflowNotFound)
		stageErr := persistence.NewStageError("GetByID", "stage-456", persistence.ErrStageNotFound)
		conflictErr := persistence.NewApplicationError("Save", "app-1", persistence.ErrVersionConflict)

		assert.True(t, persistence.IsWorkflowNotFound(workflowErr))
		assert.True(t, persistence.IsStageNotFound(stageErr))
		assert.True(t, persistence.IsNotFound(stageErr))
		assert.False(t, persistence.IsNotFound(conflictErr))
		assert.True(t, persistence.IsVersionConflict(conflictErr))

		// Test error unwrapping
		assert.True(t, errors.Is(workflowErr, persistence.ErrWorkflowNotFound))
		assert.True(t, errors.Is(fmt.Errorf("outer: %w", stageErr), persistence.ErrStageNotFound))
	})

	t.Run("entity error contains context", func(t *testing.T) {
		err := persistence.NewHistoryError("Save", "hist-9", persistence.ErrHistoryRecordImmutable)

		assert.Contains(t, err.Error(), "Save")
		assert.Contains(t, err.Error(), "history record hist-9")
		assert.Contains(t, err.Error(), "immutable")
	})
}

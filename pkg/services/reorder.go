package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/hirepath/hirepath/pkg/locking"
	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/persistence"
	"github.com/jonboulle/clockwork"
)

// StageReorderer moves a stage one slot up or down by swapping order values with its
// neighbour. Only the two swapped rows are written.
type StageReorderer struct {
	persistence persistence.Persistence
	locker      locking.Locker
	clock       clockwork.Clock
	logger      *slog.Logger
}

// NewStageReorderer creates a new stage reorderer.
func NewStageReorderer(p persistence.Persistence, locker locking.Locker, clock clockwork.Clock, logger *slog.Logger) *StageReorderer {
	return &StageReorderer{
		persistence: p,
		locker:      locker,
		clock:       clock,
		logger:      logger.With("module", "stage_reorderer"),
	}
}

// MoveUp swaps the stage with the one before it. The first stage stays where it is.
func (r *StageReorderer) MoveUp(ctx context.Context, stageID string) ([]*models.WorkflowStage, error) {
	return r.move(ctx, "MoveUp", stageID, -1)
}

// MoveDown swaps the stage with the one after it. The last stage stays where it is.
func (r *StageReorderer) MoveDown(ctx context.Context, stageID string) ([]*models.WorkflowStage, error) {
	return r.move(ctx, "MoveDown", stageID, 1)
}

// move returns the workflow's stages in their resulting order.
func (r *StageReorderer) move(ctx context.Context, op, stageID string, step int) ([]*models.WorkflowStage, error) {
	target, err := r.persistence.StageRepository().GetByID(ctx, stageID)
	if err != nil {
		return nil, err
	}

	workflowID := target.WorkflowID

	var result []*models.WorkflowStage

	err = withLock(ctx, r.locker, locking.WorkflowStagesKey(workflowID), func() error {
		return r.persistence.WithinTransaction(ctx, func(ctx context.Context) error {
			stages, err := r.persistence.StageRepository().ListByWorkflow(ctx, workflowID)
			if err != nil {
				return fmt.Errorf("failed to list stages: %w", err)
			}

			err = checkDenseOrder(op, workflowID, stages)
			if err != nil {
				return err
			}

			idx := slices.IndexFunc(stages, func(s *models.WorkflowStage) bool { return s.ID == stageID })
			if idx < 0 {
				return persistence.NewStageError(op, stageID, persistence.ErrStageNotFound)
			}

			neighbour := idx + step
			if neighbour < 0 || neighbour >= len(stages) {
				result = stages

				return nil
			}

			now := r.clock.Now().UTC()
			current, adjacent := stages[idx], stages[neighbour]

			current.Order, adjacent.Order = adjacent.Order, current.Order
			current.UpdatedAt = now
			adjacent.UpdatedAt = now

			for _, stage := range []*models.WorkflowStage{current, adjacent} {
				err = r.persistence.StageRepository().Save(ctx, stage)
				if err != nil {
					return fmt.Errorf("failed to save stage %s: %w", stage.ID, err)
				}
			}

			stages[idx], stages[neighbour] = adjacent, current
			result = stages

			r.logger.InfoContext(ctx, "Stage moved", "op", op, "workflow_id", workflowID, "stage_id", stageID, "order", current.Order)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

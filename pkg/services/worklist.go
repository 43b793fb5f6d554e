package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/persistence"
	"github.com/jonboulle/clockwork"
)

// WorklistBuilder lists the applications a user is responsible for, most urgent first.
type WorklistBuilder struct {
	persistence persistence.Persistence
	calculator  *PriorityCalculator
	clock       clockwork.Clock
	logger      *slog.Logger
}

// NewWorklistBuilder creates a new worklist builder.
func NewWorklistBuilder(p persistence.Persistence, calculator *PriorityCalculator, clock clockwork.Clock, logger *slog.Logger) *WorklistBuilder {
	return &WorklistBuilder{
		persistence: p,
		calculator:  calculator,
		clock:       clock,
		logger:      logger.With("module", "worklist_builder"),
	}
}

// WorklistOptions narrows a worklist.
type WorklistOptions struct {
	// StageID keeps only applications in that stage.
	StageID *string
	// Limit caps the number of items. Zero means no limit.
	Limit int
}

// Build returns the user's worklist sorted by total score descending, then by time entered
// in the stage, oldest first.
func (b *WorklistBuilder) Build(ctx context.Context, userID string, opts WorklistOptions) ([]*models.WorklistItem, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, NewValidationError("BuildWorklist", "USER_REQUIRED", "user id is required", ErrInvalidRequest)
	}

	if opts.Limit < 0 {
		return nil, NewValidationError("BuildWorklist", "INVALID_LIMIT", fmt.Sprintf("invalid limit %d", opts.Limit), ErrInvalidRequest)
	}

	now := b.clock.Now().UTC()

	assignments, err := b.persistence.AssignmentRepository().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	stagesByPosition := make(map[string]map[string]struct{})

	for _, assignment := range assignments {
		if opts.StageID != nil && assignment.StageID != *opts.StageID {
			continue
		}

		stages, ok := stagesByPosition[assignment.PositionID]
		if !ok {
			stages = make(map[string]struct{})
			stagesByPosition[assignment.PositionID] = stages
		}

		stages[assignment.StageID] = struct{}{}
	}

	items := make([]*models.WorklistItem, 0)

	for _, positionID := range slices.Sorted(maps.Keys(stagesByPosition)) {
		applications, err := b.persistence.ApplicationRepository().GetApplicationsByPosition(ctx, positionID)
		if err != nil {
			return nil, fmt.Errorf("failed to list applications of position %s: %w", positionID, err)
		}

		assigned := stagesByPosition[positionID]

		for _, application := range applications {
			if application.CurrentStageID == nil {
				continue
			}

			if _, ok := assigned[*application.CurrentStageID]; !ok {
				continue
			}

			items = append(items, &models.WorklistItem{
				ApplicationID:  application.ID,
				CandidateID:    application.CandidateID,
				PositionID:     application.PositionID,
				StageID:        *application.CurrentStageID,
				TaskStatus:     application.TaskStatus,
				StageEnteredAt: application.StageEnteredAt,
				StageDeadline:  application.StageDeadline,
				Priority:       b.calculator.Calculate(application, now),
			})
		}
	}

	slices.SortStableFunc(items, compareWorklistItems)

	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}

	b.logger.DebugContext(ctx, "Worklist built", "user_id", userID, "items", len(items))

	return items, nil
}

func compareWorklistItems(a, b *models.WorklistItem) int {
	if c := cmp.Compare(b.Priority.TotalScore, a.Priority.TotalScore); c != 0 {
		return c
	}

	if c := compareEnteredAt(a.StageEnteredAt, b.StageEnteredAt); c != 0 {
		return c
	}

	return strings.Compare(a.ApplicationID, b.ApplicationID)
}

// compareEnteredAt orders the oldest entry first and unknown entries last.
func compareEnteredAt(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return a.Compare(*b)
	}
}

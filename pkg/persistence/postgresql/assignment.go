package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hirepath/hirepath/pkg/models"
)

// AssignmentRepository handles position stage assignment database operations.
type AssignmentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAssignmentRepository creates a new assignment repository.
func NewAssignmentRepository(db *sql.DB, logger *slog.Logger) *AssignmentRepository {
	return &AssignmentRepository{db: db, logger: logger}
}

func (r *AssignmentRepository) ListByUser(ctx context.Context, userID string) ([]*models.PositionStageAssignment, error) {
	query := `
		SELECT position_id, stage_id, user_id
		FROM position_stage_assignments
		WHERE user_id = $1
		ORDER BY position_id ASC, stage_id ASC
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	assignments := make([]*models.PositionStageAssignment, 0)

	for rows.Next() {
		var assignment models.PositionStageAssignment

		err := rows.Scan(&assignment.PositionID, &assignment.StageID, &assignment.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}

		assignments = append(assignments, &assignment)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return assignments, nil
}

func (r *AssignmentRepository) Assign(ctx context.Context, assignment *models.PositionStageAssignment) error {
	query := `
		INSERT INTO position_stage_assignments (position_id, stage_id, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (position_id, stage_id, user_id) DO NOTHING
	`

	_, err := conn(ctx, r.db).ExecContext(ctx, query, assignment.PositionID, assignment.StageID, assignment.UserID)
	if err != nil {
		return fmt.Errorf("failed to save assignment: %w", err)
	}

	return nil
}

func (r *AssignmentRepository) Unassign(ctx context.Context, assignment *models.PositionStageAssignment) error {
	query := `DELETE FROM position_stage_assignments WHERE position_id = $1 AND stage_id = $2 AND user_id = $3`

	_, err := conn(ctx, r.db).ExecContext(ctx, query, assignment.PositionID, assignment.StageID, assignment.UserID)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}

	return nil
}

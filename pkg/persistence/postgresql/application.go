package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/persistence"
)

const applicationColumns = `
			id
		  , candidate_id
		  , position_id
		  , current_phase_id
		  , current_stage_id
		  , stage_entered_at
		  , stage_deadline
		  , task_status
		  , version
		  , created_at
		  , updated_at`

// ApplicationRepository handles candidate application database operations.
type ApplicationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewApplicationRepository creates a new candidate application repository.
func NewApplicationRepository(db *sql.DB, logger *slog.Logger) *ApplicationRepository {
	return &ApplicationRepository{db: db, logger: logger}
}

// Save inserts a new application (version 0) or updates its progression fields when versions match.
func (r *ApplicationRepository) Save(ctx context.Context, application *models.CandidateApplication) error {
	if application.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate application ID: %w", err)
		}

		application.ID = id.String()
	}

	db := conn(ctx, r.db)

	if application.Version == 0 {
		query := `
			INSERT INTO candidate_applications (id, candidate_id, position_id, current_phase_id,
				current_stage_id, stage_entered_at, stage_deadline, task_status, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10)
		`

		_, err := db.ExecContext(ctx, query,
			application.ID,
			application.CandidateID,
			application.PositionID,
			application.CurrentPhaseID,
			application.CurrentStageID,
			application.StageEnteredAt,
			application.StageDeadline,
			application.TaskStatus,
			application.CreatedAt,
			application.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return persistence.NewApplicationError("Save", application.ID, persistence.ErrVersionConflict)
			}

			return fmt.Errorf("failed to insert application: %w", err)
		}

		application.Version = 1

		return nil
	}

	query := `
		UPDATE candidate_applications SET
			current_phase_id = $3,
			current_stage_id = $4,
			stage_entered_at = $5,
			stage_deadline = $6,
			task_status = $7,
			updated_at = $8,
			version = version + 1
		WHERE id = $1 AND version = $2
	`

	result, err := db.ExecContext(ctx, query,
		application.ID,
		application.Version,
		application.CurrentPhaseID,
		application.CurrentStageID,
		application.StageEnteredAt,
		application.StageDeadline,
		application.TaskStatus,
		application.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}

	err = checkRowsAffected(result)
	if err != nil {
		return persistence.NewApplicationError("Save", application.ID, err)
	}

	application.Version++

	return nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.CandidateApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM candidate_applications WHERE id = $1`

	application, err := r.scanApplication(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewApplicationError("GetByID", id, persistence.ErrApplicationNotFound)
		}

		return nil, fmt.Errorf("failed to scan application: %w", err)
	}

	return application, nil
}

func (r *ApplicationRepository) GetApplicationsByPosition(ctx context.Context, positionID string) ([]*models.CandidateApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM candidate_applications WHERE position_id = $1 ORDER BY created_at ASC, id ASC`

	return r.query(ctx, query, positionID)
}

func (r *ApplicationRepository) ListOverdue(ctx context.Context, now time.Time) ([]*models.CandidateApplication, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM candidate_applications
		WHERE stage_deadline IS NOT NULL AND stage_deadline < $1
		ORDER BY stage_deadline ASC, id ASC
	`

	return r.query(ctx, query, now)
}

func (r *ApplicationRepository) query(ctx context.Context, query string, args ...any) ([]*models.CandidateApplication, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	applications := make([]*models.CandidateApplication, 0)

	for rows.Next() {
		application, err := r.scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}

		applications = append(applications, application)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating applications: %w", err)
	}

	return applications, nil
}

func (r *ApplicationRepository) scanApplication(scanner interface {
	Scan(dest ...any) error
},
) (*models.CandidateApplication, error) {
	var (
		application    models.CandidateApplication
		currentPhaseID sql.NullString
		currentStageID sql.NullString
		stageEnteredAt sql.NullTime
		stageDeadline  sql.NullTime
	)

	err := scanner.Scan(
		&application.ID,
		&application.CandidateID,
		&application.PositionID,
		&currentPhaseID,
		&currentStageID,
		&stageEnteredAt,
		&stageDeadline,
		&application.TaskStatus,
		&application.Version,
		&application.CreatedAt,
		&application.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if currentPhaseID.Valid {
		application.CurrentPhaseID = &currentPhaseID.String
	}

	if currentStageID.Valid {
		application.CurrentStageID = &currentStageID.String
	}

	if stageEnteredAt.Valid {
		application.StageEnteredAt = &stageEnteredAt.Time
	}

	if stageDeadline.Valid {
		application.StageDeadline = &stageDeadline.Time
	}

	return &application, nil
}

package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/persistence"
	"github.com/lib/pq"
)

const stageColumns = `
			s.id
		  , s.workflow_id
		  , s.name
		  , s.description
		  , s.stage_type
		  , s.stage_order
		  , s.allow_skip
		  , s.estimated_duration_days
		  , s.active
		  , s.default_role_ids
		  , s.default_user_ids
		  , s.email_template_id
		  , s.deadline_days
		  , s.estimated_cost
		  , s.next_phase_id
		  , s.style
		  , s.validation_rules
		  , s.version
		  , s.created_at
		  , s.updated_at`

// StageRepository handles workflow stage database operations.
type StageRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStageRepository creates a new stage repository.
func NewStageRepository(db *sql.DB, logger *slog.Logger) *StageRepository {
	return &StageRepository{db: db, logger: logger}
}

// Save inserts a new stage (version 0) or updates the stored one when versions match.
// Order uniqueness is enforced at commit, so a swap inside one transaction is accepted.
func (r *StageRepository) Save(ctx context.Context, stage *models.WorkflowStage) error {
	if stage.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate stage ID: %w", err)
		}

		stage.ID = id.String()
	}

	styleJSON, err := json.Marshal(stage.Style)
	if err != nil {
		return fmt.Errorf("failed to marshal stage style: %w", err)
	}

	var rules any
	if len(stage.ValidationRules) > 0 {
		rules = string(stage.ValidationRules)
	}

	roleIDs := stage.DefaultRoleIDs
	if roleIDs == nil {
		roleIDs = []string{}
	}

	userIDs := stage.DefaultUserIDs
	if userIDs == nil {
		userIDs = []string{}
	}

	db := conn(ctx, r.db)

	if stage.Version == 0 {
		query := `
			INSERT INTO workflow_stages (id, workflow_id, name, description, stage_type, stage_order,
				allow_skip, estimated_duration_days, active, default_role_ids, default_user_ids,
				email_template_id, deadline_days, estimated_cost, next_phase_id, style, validation_rules,
				version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 1, $18, $19)
		`

		_, err = db.ExecContext(ctx, query,
			stage.ID,
			stage.WorkflowID,
			stage.Name,
			stage.Description,
			stage.Type,
			stage.Order,
			stage.AllowSkip,
			stage.EstimatedDurationDays,
			stage.Active,
			pq.Array(roleIDs),
			pq.Array(userIDs),
			stage.EmailTemplateID,
			stage.DeadlineDays,
			stage.EstimatedCost,
			stage.NextPhaseID,
			styleJSON,
			rules,
			stage.CreatedAt,
			stage.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return persistence.NewStageError("Save", stage.ID, persistence.ErrVersionConflict)
			}

			return fmt.Errorf("failed to insert stage: %w", err)
		}

		stage.Version = 1

		return nil
	}

	query := `
		UPDATE workflow_stages SET
			name = $3,
			description = $4,
			stage_type = $5,
			stage_order = $6,
			allow_skip = $7,
			estimated_duration_days = $8,
			active = $9,
			default_role_ids = $10,
			default_user_ids = $11,
			email_template_id = $12,
			deadline_days = $13,
			estimated_cost = $14,
			next_phase_id = $15,
			style = $16,
			validation_rules = $17,
			updated_at = $18,
			version = version + 1
		WHERE id = $1 AND version = $2
	`

	result, err := db.ExecContext(ctx, query,
		stage.ID,
		stage.Version,
		stage.Name,
		stage.Description,
		stage.Type,
		stage.Order,
		stage.AllowSkip,
		stage.EstimatedDurationDays,
		stage.Active,
		pq.Array(roleIDs),
		pq.Array(userIDs),
		stage.EmailTemplateID,
		stage.DeadlineDays,
		stage.EstimatedCost,
		stage.NextPhaseID,
		styleJSON,
		rules,
		stage.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update stage: %w", err)
	}

	err = checkRowsAffected(result)
	if err != nil {
		return persistence.NewStageError("Save", stage.ID, err)
	}

	stage.Version++

	return nil
}

func (r *StageRepository) GetByID(ctx context.Context, id string) (*models.WorkflowStage, error) {
	query := `SELECT ` + stageColumns + ` FROM workflow_stages s WHERE s.id = $1`

	stage, err := r.scanStage(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStageError("GetByID", id, persistence.ErrStageNotFound)
		}

		return nil, fmt.Errorf("failed to scan stage: %w", err)
	}

	return stage, nil
}

func (r *StageRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowStage, error) {
	query := `SELECT ` + stageColumns + ` FROM workflow_stages s WHERE s.workflow_id = $1 ORDER BY s.stage_order ASC, s.id ASC`

	return r.query(ctx, query, workflowID)
}

func (r *StageRepository) ListByPhase(ctx context.Context, phaseID string) ([]*models.WorkflowStage, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM workflow_stages s
		JOIN workflows w ON w.id = s.workflow_id
		WHERE w.phase_id = $1
		ORDER BY s.workflow_id ASC, s.stage_order ASC
	`

	return r.query(ctx, query, phaseID)
}

func (r *StageRepository) GetInitialStage(ctx context.Context, workflowID string) (*models.WorkflowStage, error) {
	query := `SELECT ` + stageColumns + ` FROM workflow_stages s WHERE s.workflow_id = $1 ORDER BY s.stage_order ASC, s.id ASC LIMIT 1`

	stage, err := r.scanStage(conn(ctx, r.db).QueryRowContext(ctx, query, workflowID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStageError("GetInitialStage", workflowID, persistence.ErrStageNotFound)
		}

		return nil, fmt.Errorf("failed to scan stage: %w", err)
	}

	return stage, nil
}

func (r *StageRepository) GetFinalStages(ctx context.Context, workflowID string) ([]*models.WorkflowStage, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM workflow_stages s
		WHERE s.workflow_id = $1 AND s.stage_type IN ('success', 'fail')
		ORDER BY s.stage_order ASC
	`

	return r.query(ctx, query, workflowID)
}

func (r *StageRepository) Delete(ctx context.Context, id string) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, "DELETE FROM workflow_stages WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete stage: %w", err)
	}

	return nil
}

func (r *StageRepository) query(ctx context.Context, query string, args ...any) ([]*models.WorkflowStage, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stages: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	stages := make([]*models.WorkflowStage, 0)

	for rows.Next() {
		stage, err := r.scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}

		stages = append(stages, stage)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating stages: %w", err)
	}

	return stages, nil
}

func (r *StageRepository) scanStage(scanner interface {
	Scan(dest ...any) error
},
) (*models.WorkflowStage, error) {
	var (
		stage           models.WorkflowStage
		estimatedDays   sql.NullInt64
		deadlineDays    sql.NullInt64
		estimatedCost   sql.NullFloat64
		emailTemplateID sql.NullString
		nextPhaseID     sql.NullString
		styleJSON       []byte
		validationRules []byte
	)

	err := scanner.Scan(
		&stage.ID,
		&stage.WorkflowID,
		&stage.Name,
		&stage.Description,
		&stage.Type,
		&stage.Order,
		&stage.AllowSkip,
		&estimatedDays,
		&stage.Active,
		pq.Array(&stage.DefaultRoleIDs),
		pq.Array(&stage.DefaultUserIDs),
		&emailTemplateID,
		&deadlineDays,
		&estimatedCost,
		&nextPhaseID,
		&styleJSON,
		&validationRules,
		&stage.Version,
		&stage.CreatedAt,
		&stage.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(styleJSON) > 0 {
		err = json.Unmarshal(styleJSON, &stage.Style)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal stage style: %w", err)
		}
	}

	if len(validationRules) > 0 {
		stage.ValidationRules = json.RawMessage(validationRules)
	}

	stage.EstimatedDurationDays = nullIntPtr(estimatedDays)
	stage.DeadlineDays = nullIntPtr(deadlineDays)

	if estimatedCost.Valid {
		stage.EstimatedCost = &estimatedCost.Float64
	}

	if emailTemplateID.Valid {
		stage.EmailTemplateID = &emailTemplateID.String
	}

	if nextPhaseID.Valid {
		stage.NextPhaseID = &nextPhaseID.String
	}

	return &stage, nil
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}

	i := int(v.Int64)

	return &i
}

package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/persistence"
)

const workflowColumns = `
			id
		  , company_id
		  , kind
		  , display_mode
		  , phase_id
		  , name
		  , description
		  , status
		  , is_default
		  , version
		  , created_at
		  , updated_at`

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// Save inserts a new workflow (version 0) or updates the stored one when versions match.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	db := conn(ctx, r.db)

	if workflow.Version == 0 {
		query := `
			INSERT INTO workflows (id, company_id, kind, display_mode, phase_id, name, description,
				status, is_default, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $11)
		`

		_, err := db.ExecContext(ctx, query,
			workflow.ID,
			workflow.CompanyID,
			workflow.Kind,
			workflow.DisplayMode,
			workflow.PhaseID,
			workflow.Name,
			workflow.Description,
			workflow.Status,
			workflow.IsDefault,
			workflow.CreatedAt,
			workflow.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return persistence.NewWorkflowError("Save", workflow.ID, persistence.ErrVersionConflict)
			}

			return fmt.Errorf("failed to insert workflow: %w", err)
		}

		workflow.Version = 1

		return nil
	}

	query := `
		UPDATE workflows SET
			company_id = $3,
			kind = $4,
			display_mode = $5,
			phase_id = $6,
			name = $7,
			description = $8,
			status = $9,
			is_default = $10,
			updated_at = $11,
			version = version + 1
		WHERE id = $1 AND version = $2
	`

	result, err := db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Version,
		workflow.CompanyID,
		workflow.Kind,
		workflow.DisplayMode,
		workflow.PhaseID,
		workflow.Name,
		workflow.Description,
		workflow.Status,
		workflow.IsDefault,
		workflow.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewWorkflowError("Save", workflow.ID, persistence.ErrVersionConflict)
		}

		return fmt.Errorf("failed to update workflow: %w", err)
	}

	err = checkRowsAffected(result)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	workflow.Version++

	return nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	workflow, err := r.scanWorkflow(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

// ListByCompany returns the company's workflows with optional filtering and sorting.
func (r *WorkflowRepository) ListByCompany(ctx context.Context, companyID string, opts persistence.ListWorkflowsOptions) ([]*models.Workflow, error) {
	// Validate sort parameters against allowlist
	allowedSorts := map[string]string{
		"":           "created_at",
		"created_at": "created_at",
		"updated_at": "updated_at",
		"name":       "name",
	}

	sortColumn, ok := allowedSorts[opts.SortBy]
	if !ok {
		return nil, fmt.Errorf("%w: %s", persistence.ErrInvalidSortField, opts.SortBy)
	}

	direction := "ASC"
	if strings.EqualFold(opts.SortOrder, "desc") {
		direction = "DESC"
	}

	conditions := []string{"company_id = $1"}
	args := []any{companyID}

	if opts.Kind != nil {
		args = append(args, *opts.Kind)
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}

	if opts.Status != nil {
		args = append(args, *opts.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY ` + sortColumn + ` ` + direction + `, id ASC`

	return r.query(ctx, query, args...)
}

func (r *WorkflowRepository) GetDefaultByCompany(ctx context.Context, companyID string, kind models.WorkflowKind) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE company_id = $1 AND kind = $2 AND is_default`

	workflow, err := r.scanWorkflow(conn(ctx, r.db).QueryRowContext(ctx, query, companyID, kind))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetDefaultByCompany", companyID+"/"+string(kind), persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) ListByPhaseID(ctx context.Context, phaseID string) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE phase_id = $1 ORDER BY created_at ASC, id ASC`

	return r.query(ctx, query, phaseID)
}

// Delete removes a workflow; its stages go with it through ON DELETE CASCADE.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) query(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) scanWorkflow(scanner interface {
	Scan(dest ...any) error
},
) (*models.Workflow, error) {
	var (
		workflow models.Workflow
		phaseID  sql.NullString
	)

	err := scanner.Scan(
		&workflow.ID,
		&workflow.CompanyID,
		&workflow.Kind,
		&workflow.DisplayMode,
		&phaseID,
		&workflow.Name,
		&workflow.Description,
		&workflow.Status,
		&workflow.IsDefault,
		&workflow.Version,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if phaseID.Valid {
		workflow.PhaseID = &phaseID.String
	}

	return &workflow, nil
}

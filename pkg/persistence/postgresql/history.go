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
)

const historyColumns = `
			id
		  , application_id
		  , phase_id
		  , workflow_id
		  , stage_id
		  , started_at
		  , completed_at
		  , deadline
		  , estimated_cost
		  , actual_cost
		  , comments
		  , data
		  , created_at
		  , updated_at`

// HistoryRepository handles progression history database operations.
type HistoryRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewHistoryRepository creates a new history repository.
func NewHistoryRepository(db *sql.DB, logger *slog.Logger) *HistoryRepository {
	return &HistoryRepository{db: db, logger: logger}
}

// Save upserts a record. The update branch only matches open records, so a write over a
// completed record affects no row and is reported as immutable.
func (r *HistoryRepository) Save(ctx context.Context, record *models.CandidateApplicationStage) error {
	if record.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate history record ID: %w", err)
		}

		record.ID = id.String()
	}

	data := record.Data
	if data == nil {
		data = map[string]any{}
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal history data: %w", err)
	}

	query := `
		INSERT INTO candidate_application_stages (id, application_id, phase_id, workflow_id, stage_id,
			started_at, completed_at, deadline, estimated_cost, actual_cost, comments, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			completed_at = EXCLUDED.completed_at,
			deadline = EXCLUDED.deadline,
			estimated_cost = EXCLUDED.estimated_cost,
			actual_cost = EXCLUDED.actual_cost,
			comments = EXCLUDED.comments,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
		WHERE candidate_application_stages.completed_at IS NULL
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		record.ID,
		record.ApplicationID,
		record.PhaseID,
		record.WorkflowID,
		record.StageID,
		record.StartedAt,
		record.CompletedAt,
		record.Deadline,
		record.EstimatedCost,
		record.ActualCost,
		record.Comments,
		dataJSON,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save history record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewHistoryError("Save", record.ID, persistence.ErrHistoryRecordImmutable)
	}

	return nil
}

func (r *HistoryRepository) GetByID(ctx context.Context, id string) (*models.CandidateApplicationStage, error) {
	query := `SELECT ` + historyColumns + ` FROM candidate_application_stages WHERE id = $1`

	record, err := r.scanRecord(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewHistoryError("GetByID", id, persistence.ErrHistoryRecordNotFound)
		}

		return nil, fmt.Errorf("failed to scan history record: %w", err)
	}

	return record, nil
}

func (r *HistoryRepository) ListByApplication(ctx context.Context, applicationID string) ([]*models.CandidateApplicationStage, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM candidate_application_stages
		WHERE application_id = $1
		ORDER BY started_at ASC, id ASC
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history records: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	records := make([]*models.CandidateApplicationStage, 0)

	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}

		records = append(records, record)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating history records: %w", err)
	}

	return records, nil
}

func (r *HistoryRepository) GetOpenByApplication(ctx context.Context, applicationID string) (*models.CandidateApplicationStage, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM candidate_application_stages
		WHERE application_id = $1 AND completed_at IS NULL
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`

	record, err := r.scanRecord(conn(ctx, r.db).QueryRowContext(ctx, query, applicationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewHistoryError("GetOpenByApplication", applicationID, persistence.ErrHistoryRecordNotFound)
		}

		return nil, fmt.Errorf("failed to scan history record: %w", err)
	}

	return record, nil
}

func (r *HistoryRepository) scanRecord(scanner interface {
	Scan(dest ...any) error
},
) (*models.CandidateApplicationStage, error) {
	var (
		record        models.CandidateApplicationStage
		phaseID       sql.NullString
		completedAt   sql.NullTime
		deadline      sql.NullTime
		estimatedCost sql.NullFloat64
		actualCost    sql.NullFloat64
		dataJSON      []byte
	)

	err := scanner.Scan(
		&record.ID,
		&record.ApplicationID,
		&phaseID,
		&record.WorkflowID,
		&record.StageID,
		&record.StartedAt,
		&completedAt,
		&deadline,
		&estimatedCost,
		&actualCost,
		&record.Comments,
		&dataJSON,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(dataJSON) > 0 {
		err = json.Unmarshal(dataJSON, &record.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal history data: %w", err)
		}
	}

	if phaseID.Valid {
		record.PhaseID = &phaseID.String
	}

	if completedAt.Valid {
		record.CompletedAt = &completedAt.Time
	}

	if deadline.Valid {
		record.Deadline = &deadline.Time
	}

	if estimatedCost.Valid {
		record.EstimatedCost = &estimatedCost.Float64
	}

	if actualCost.Valid {
		record.ActualCost = &actualCost.Float64
	}

	return &record, nil
}

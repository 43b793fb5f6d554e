// Package postgresql provides PostgreSQL persistence for workflows, stages and candidate progression.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hirepath/hirepath/pkg/persistence"
	"github.com/hirepath/hirepath/pkg/persistence/sqlbase"
	"github.com/lib/pq"
)

// uniqueViolation is the SQLSTATE raised by a duplicate key.
const uniqueViolation = "23505"

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	workflowRepo    *WorkflowRepository
	stageRepo       *StageRepository
	applicationRepo *ApplicationRepository
	historyRepo     *HistoryRepository
	assignmentRepo  *AssignmentRepository
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	postgres := &Persistence{
		db:              database,
		logger:          logger,
		workflowRepo:    NewWorkflowRepository(database, logger),
		stageRepo:       NewStageRepository(database, logger),
		applicationRepo: NewApplicationRepository(database, logger),
		historyRepo:     NewHistoryRepository(database, logger),
		assignmentRepo:  NewAssignmentRepository(database, logger),
	}

	// Run migrations on initialization
	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository { return p.workflowRepo }

func (p *Persistence) StageRepository() persistence.WorkflowStageRepository { return p.stageRepo }

func (p *Persistence) ApplicationRepository() persistence.CandidateApplicationRepository {
	return p.applicationRepo
}

func (p *Persistence) HistoryRepository() persistence.ApplicationStageRepository { return p.historyRepo }

func (p *Persistence) AssignmentRepository() persistence.PositionStageAssignmentRepository {
	return p.assignmentRepo
}

// WithinTransaction runs fn inside a database transaction carried by the context.
// A context that already carries a transaction joins it.
func (p *Persistence) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	err = fn(context.WithValue(ctx, txKey{}, tx))
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			p.logger.ErrorContext(ctx, "failed to rollback transaction", "error", rbErr)
		}

		return err
	}

	err = tx.Commit()
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to commit transaction: %w", persistence.ErrVersionConflict)
		}

		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

type txKey struct{}

// executor is the subset of *sql.DB and *sql.Tx used by the repositories.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction carried by ctx, or db when there is none.
func conn(ctx context.Context, db *sql.DB) executor {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}

	return db
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// checkRowsAffected turns an update that matched nothing into a version conflict.
func checkRowsAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.ErrVersionConflict
	}

	return nil
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

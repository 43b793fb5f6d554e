// Package persistence provides the storage contracts of the recruitment pipeline engine.
package persistence

import (
	"context"
	"time"

	"github.com/hirepath/hirepath/pkg/models"
)

// Persistence groups the repositories behind one storage backend.
//
// Every Save on a versioned aggregate (workflow, stage, application) is an optimistic
// concurrency check: the stored version must equal the in-memory one, otherwise
// ErrVersionConflict is returned. A successful Save bumps the version.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	StageRepository() WorkflowStageRepository
	ApplicationRepository() CandidateApplicationRepository
	HistoryRepository() ApplicationStageRepository
	AssignmentRepository() PositionStageAssignmentRepository

	// WithinTransaction runs fn as one unit of work. Repositories called with the context
	// handed to fn take part in it. Nested calls join the outer unit of work.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListWorkflowsOptions narrows a company's workflow listing.
type ListWorkflowsOptions struct {
	Kind   *models.WorkflowKind
	Status *models.WorkflowStatus

	// SortBy is one of created_at, updated_at, name. Defaults to created_at.
	SortBy    string
	SortOrder string
}

// WorkflowRepository persists workflow aggregates.
type WorkflowRepository interface {
	Save(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	ListByCompany(ctx context.Context, companyID string, opts ListWorkflowsOptions) ([]*models.Workflow, error)
	// GetDefaultByCompany returns ErrWorkflowNotFound when the pair has no default.
	GetDefaultByCompany(ctx context.Context, companyID string, kind models.WorkflowKind) (*models.Workflow, error)
	ListByPhaseID(ctx context.Context, phaseID string) ([]*models.Workflow, error)
	// Delete removes the workflow and its stages.
	Delete(ctx context.Context, id string) error
}

// WorkflowStageRepository persists stage definitions.
type WorkflowStageRepository interface {
	Save(ctx context.Context, stage *models.WorkflowStage) error
	GetByID(ctx context.Context, id string) (*models.WorkflowStage, error)
	// ListByWorkflow returns the stages ordered by their order value.
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowStage, error)
	// ListByPhase returns the stages of every workflow attached to the phase.
	ListByPhase(ctx context.Context, phaseID string) ([]*models.WorkflowStage, error)
	// GetInitialStage returns the lowest ordered stage, ErrStageNotFound when empty.
	GetInitialStage(ctx context.Context, workflowID string) (*models.WorkflowStage, error)
	// GetFinalStages returns the success and fail stages of the workflow.
	GetFinalStages(ctx context.Context, workflowID string) ([]*models.WorkflowStage, error)
	Delete(ctx context.Context, id string) error
}

// CandidateApplicationRepository persists the progression fields of applications.
type CandidateApplicationRepository interface {
	Save(ctx context.Context, application *models.CandidateApplication) error
	GetByID(ctx context.Context, id string) (*models.CandidateApplication, error)
	GetApplicationsByPosition(ctx context.Context, positionID string) ([]*models.CandidateApplication, error)
	// ListOverdue returns applications whose stage deadline is before now.
	ListOverdue(ctx context.Context, now time.Time) ([]*models.CandidateApplication, error)
}

// ApplicationStageRepository persists the append-only progression history.
type ApplicationStageRepository interface {
	// Save inserts a record or updates one that is still open. Writing over a completed
	// record fails with ErrHistoryRecordImmutable.
	Save(ctx context.Context, record *models.CandidateApplicationStage) error
	GetByID(ctx context.Context, id string) (*models.CandidateApplicationStage, error)
	// ListByApplication returns records oldest first.
	ListByApplication(ctx context.Context, applicationID string) ([]*models.CandidateApplicationStage, error)
	// GetOpenByApplication returns the latest record without completed_at,
	// ErrHistoryRecordNotFound when none is open.
	GetOpenByApplication(ctx context.Context, applicationID string) (*models.CandidateApplicationStage, error)
}

// PositionStageAssignmentRepository answers which users are responsible for which stages.
type PositionStageAssignmentRepository interface {
	ListByUser(ctx context.Context, userID string) ([]*models.PositionStageAssignment, error)
	Assign(ctx context.Context, assignment *models.PositionStageAssignment) error
	Unassign(ctx context.Context, assignment *models.PositionStageAssignment) error
}

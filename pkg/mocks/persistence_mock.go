// Package mocks provides testify mocks for the storage and event contracts.
package mocks

import (
	"context"
	"time"

	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) ListByCompany(ctx context.Context, companyID string, opts persistence.ListWorkflowsOptions) ([]*models.Workflow, error) {
	args := m.Called(ctx, companyID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) GetDefaultByCompany(ctx context.Context, companyID string, kind models.WorkflowKind) (*models.Workflow, error) {
	args := m.Called(ctx, companyID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) ListByPhaseID(ctx context.Context, phaseID string) ([]*models.Workflow, error) {
	args := m.Called(ctx, phaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockStageRepository is a mock implementation of persistence.WorkflowStageRepository interface.
type MockStageRepository struct {
	mock.Mock
}

func (m *MockStageRepository) Save(ctx context.Context, stage *models.WorkflowStage) error {
	args := m.Called(ctx, stage)

	return args.Error(0)
}

func (m *MockStageRepository) GetByID(ctx context.Context, id string) (*models.WorkflowStage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowStage), args.Error(1)
}

func (m *MockStageRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowStage, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowStage), args.Error(1)
}

func (m *MockStageRepository) ListByPhase(ctx context.Context, phaseID string) ([]*models.WorkflowStage, error) {
	args := m.Called(ctx, phaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowStage), args.Error(1)
}

func (m *MockStageRepository) GetInitialStage(ctx context.Context, workflowID string) (*models.WorkflowStage, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowStage), args.Error(1)
}

func (m *MockStageRepository) GetFinalStages(ctx context.Context, workflowID string) ([]*models.WorkflowStage, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowStage), args.Error(1)
}

func (m *MockStageRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockApplicationRepository is a mock implementation of persistence.CandidateApplicationRepository interface.
type MockApplicationRepository struct {
	mock.Mock
}

func (m *MockApplicationRepository) Save(ctx context.Context, application *models.CandidateApplication) error {
	args := m.Called(ctx, application)

	return args.Error(0)
}

func (m *MockApplicationRepository) GetByID(ctx context.Context, id string) (*models.CandidateApplication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.CandidateApplication), args.Error(1)
}

func (m *MockApplicationRepository) GetApplicationsByPosition(ctx context.Context, positionID string) ([]*models.CandidateApplication, error) {
	args := m.Called(ctx, positionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.CandidateApplication), args.Error(1)
}

func (m *MockApplicationRepository) ListOverdue(ctx context.Context, now time.Time) ([]*models.CandidateApplication, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.CandidateApplication), args.Error(1)
}

// MockHistoryRepository is a mock implementation of persistence.ApplicationStageRepository interface.
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Save(ctx context.Context, record *models.CandidateApplicationStage) error {
	args := m.Called(ctx, record)

	return args.Error(0)
}

func (m *MockHistoryRepository) GetByID(ctx context.Context, id string) (*models.CandidateApplicationStage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.CandidateApplicationStage), args.Error(1)
}

func (m *MockHistoryRepository) ListByApplication(ctx context.Context, applicationID string) ([]*models.CandidateApplicationStage, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.CandidateApplicationStage), args.Error(1)
}

func (m *MockHistoryRepository) GetOpenByApplication(ctx context.Context, applicationID string) (*models.CandidateApplicationStage, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.CandidateApplicationStage), args.Error(1)
}

// MockAssignmentRepository is a mock implementation of persistence.PositionStageAssignmentRepository interface.
type MockAssignmentRepository struct {
	mock.Mock
}

func (m *MockAssignmentRepository) ListByUser(ctx context.Context, userID string) ([]*models.PositionStageAssignment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.PositionStageAssignment), args.Error(1)
}

func (m *MockAssignmentRepository) Assign(ctx context.Context, assignment *models.PositionStageAssignment) error {
	args := m.Called(ctx, assignment)

	return args.Error(0)
}

func (m *MockAssignmentRepository) Unassign(ctx context.Context, assignment *models.PositionStageAssignment) error {
	args := m.Called(ctx, assignment)

	return args.Error(0)
}

// MockPersistence is a mock implementation of persistence.Persistence interface. Units of
// work run their function directly.
type MockPersistence struct {
	mock.Mock

	workflowRepo    *MockWorkflowRepository
	stageRepo       *MockStageRepository
	applicationRepo *MockApplicationRepository
	historyRepo     *MockHistoryRepository
	assignmentRepo  *MockAssignmentRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		workflowRepo:    &MockWorkflowRepository{},
		stageRepo:       &MockStageRepository{},
		applicationRepo: &MockApplicationRepository{},
		historyRepo:     &MockHistoryRepository{},
		assignmentRepo:  &MockAssignmentRepository{},
	}
}

func (m *MockPersistence) GetMockWorkflowRepository() *MockWorkflowRepository {
	return m.workflowRepo
}

func (m *MockPersistence) GetMockStageRepository() *MockStageRepository {
	return m.stageRepo
}

func (m *MockPersistence) GetMockApplicationRepository() *MockApplicationRepository {
	return m.applicationRepo
}

func (m *MockPersistence) GetMockHistoryRepository() *MockHistoryRepository {
	return m.historyRepo
}

func (m *MockPersistence) GetMockAssignmentRepository() *MockAssignmentRepository {
	return m.assignmentRepo
}

func (m *MockPersistence) WorkflowRepository() persistence.WorkflowRepository {
	return m.workflowRepo
}

func (m *MockPersistence) StageRepository() persistence.WorkflowStageRepository {
	return m.stageRepo
}

func (m *MockPersistence) ApplicationRepository() persistence.CandidateApplicationRepository {
	return m.applicationRepo
}

func (m *MockPersistence) HistoryRepository() persistence.ApplicationStageRepository {
	return m.historyRepo
}

func (m *MockPersistence) AssignmentRepository() persistence.PositionStageAssignmentRepository {
	return m.assignmentRepo
}

func (m *MockPersistence) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

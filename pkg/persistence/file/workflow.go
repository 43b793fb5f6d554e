package file

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/persistence"
)

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	store *store
}

// NewWorkflowRepository creates a new workflow repository rooted at root.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{store: &store{root: root}}
}

// Save stores a workflow after checking its version.
func (wr *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	existing, found, err := readDoc[models.Workflow](wr.store, workflowsCollection, workflow.ID)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	var stored int64
	if found {
		stored = existing.Version
	}

	if err := checkVersion(found, stored, workflow.Version); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	next := *workflow
	next.Version++

	err = wr.store.writeDoc(ctx, workflowsCollection, workflow.ID, &next)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	workflow.Version = next.Version

	return nil
}

// GetByID retrieves a workflow by its ID from the file system.
func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	wr.store.mu.RLock()
	defer wr.store.mu.RUnlock()

	workflow, found, err := readDoc[models.Workflow](wr.store, workflowsCollection, id)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	return workflow, nil
}

// ListByCompany returns the company's workflows filtered and sorted in memory.
func (wr *WorkflowRepository) ListByCompany(_ context.Context, companyID string, opts persistence.ListWorkflowsOptions) ([]*models.Workflow, error) {
	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}

	// Validate sort parameters against allowlist
	allowedSorts := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
	}
	if !allowedSorts[opts.SortBy] {
		return nil, fmt.Errorf("%w: %s", persistence.ErrInvalidSortField, opts.SortBy)
	}

	all, err := wr.all()
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Workflow, 0, len(all))

	for _, workflow := range all {
		if workflow.CompanyID != companyID {
			continue
		}

		if opts.Kind != nil && workflow.Kind != *opts.Kind {
			continue
		}

		if opts.Status != nil && workflow.Status != *opts.Status {
			continue
		}

		filtered = append(filtered, workflow)
	}

	sortWorkflows(filtered, opts.SortBy, opts.SortOrder)

	return filtered, nil
}

// GetDefaultByCompany returns the default workflow of a (company, kind) pair.
func (wr *WorkflowRepository) GetDefaultByCompany(_ context.Context, companyID string, kind models.WorkflowKind) (*models.Workflow, error) {
	all, err := wr.all()
	if err != nil {
		return nil, err
	}

	for _, workflow := range all {
		if workflow.CompanyID == companyID && workflow.Kind == kind && workflow.IsDefault {
			return workflow, nil
		}
	}

	return nil, persistence.NewWorkflowError("GetDefaultByCompany", companyID+"/"+string(kind), persistence.ErrWorkflowNotFound)
}

// ListByPhaseID returns the workflows attached to a phase, oldest first.
func (wr *WorkflowRepository) ListByPhaseID(_ context.Context, phaseID string) ([]*models.Workflow, error) {
	all, err := wr.all()
	if err != nil {
		return nil, err
	}

	matches := make([]*models.Workflow, 0)

	for _, workflow := range all {
		if workflow.PhaseID != nil && *workflow.PhaseID == phaseID {
			matches = append(matches, workflow)
		}
	}

	sortWorkflows(matches, "created_at", "asc")

	return matches, nil
}

// Delete removes a workflow and its stages.
func (wr *WorkflowRepository) Delete(ctx context.Context, id string) error {
	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	stages, err := readAll[models.WorkflowStage](wr.store, stagesCollection)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	for _, stage := range stages {
		if stage.WorkflowID != id {
			continue
		}

		if err := wr.store.removeDoc(ctx, stagesCollection, stage.ID); err != nil {
			return persistence.NewWorkflowError("Delete", id, err)
		}
	}

	if err := wr.store.removeDoc(ctx, workflowsCollection, id); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}

func (wr *WorkflowRepository) all() ([]*models.Workflow, error) {
	wr.store.mu.RLock()
	defer wr.store.mu.RUnlock()

	return readAll[models.Workflow](wr.store, workflowsCollection)
}

// sortWorkflows sorts workflows in-place based on the specified field and order.
func sortWorkflows(workflows []*models.Workflow, sortBy, sortOrder string) {
	sort.SliceStable(workflows, func(i, j int) bool {
		a, b := workflows[i], workflows[j]
		if sortOrder == "desc" {
			a, b = b, a
		}

		switch sortBy {
		case "updated_at":
			return a.UpdatedAt.Before(b.UpdatedAt)
		case "name":
			return a.Name < b.Name
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
}

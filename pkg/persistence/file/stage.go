package file

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/persistence"
)

// StageRepository handles workflow stage file operations.
type StageRepository struct {
	store *store
}

func (sr *StageRepository) Save(ctx context.Context, stage *models.WorkflowStage) error {
	if stage.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate stage ID: %w", err)
		}

		stage.ID = id.String()
	}

	sr.store.mu.Lock()
	defer sr.store.mu.Unlock()

	existing, found, err := readDoc[models.WorkflowStage](sr.store, stagesCollection, stage.ID)
	if err != nil {
		return persistence.NewStageError("Save", stage.ID, err)
	}

	var stored int64
	if found {
		stored = existing.Version
	}

	if err := checkVersion(found, stored, stage.Version); err != nil {
		return persistence.NewStageError("Save", stage.ID, err)
	}

	next := *stage
	next.Version++

	if err := sr.store.writeDoc(ctx, stagesCollection, stage.ID, &next); err != nil {
		return persistence.NewStageError("Save", stage.ID, err)
	}

	stage.Version = next.Version

	return nil
}

func (sr *StageRepository) GetByID(_ context.Context, id string) (*models.WorkflowStage, error) {
	sr.store.mu.RLock()
	defer sr.store.mu.RUnlock()

	stage, found, err := readDoc[models.WorkflowStage](sr.store, stagesCollection, id)
	if err != nil {
		return nil, persistence.NewStageError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewStageError("GetByID", id, persistence.ErrStageNotFound)
	}

	return stage, nil
}

func (sr *StageRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowStage, error) {
	sr.store.mu.RLock()
	defer sr.store.mu.RUnlock()

	return sr.listByWorkflow(workflowID)
}

func (sr *StageRepository) ListByPhase(_ context.Context, phaseID string) ([]*models.WorkflowStage, error) {
	sr.store.mu.RLock()
	defer sr.store.mu.RUnlock()

	workflows, err := readAll[models.Workflow](sr.store, workflowsCollection)
	if err != nil {
		return nil, err
	}

	inPhase := make(map[string]bool)

	for _, workflow := range workflows {
		if workflow.PhaseID != nil && *workflow.PhaseID == phaseID {
			inPhase[workflow.ID] = true
		}
	}

	stages, err := readAll[models.WorkflowStage](sr.store, stagesCollection)
	if err != nil {
		return nil, err
	}

	matches := make([]*models.WorkflowStage, 0)

	for _, stage := range stages {
		if inPhase[stage.WorkflowID] {
			matches = append(matches, stage)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].WorkflowID != matches[j].WorkflowID {
			return matches[i].WorkflowID < matches[j].WorkflowID
		}

		return matches[i].Order < matches[j].Order
	})

	return matches, nil
}

func (sr *StageRepository) GetInitialStage(_ context.Context, workflowID string) (*models.WorkflowStage, error) {
	sr.store.mu.RLock()
	defer sr.store.mu.RUnlock()

	stages, err := sr.listByWorkflow(workflowID)
	if err != nil {
		return nil, err
	}

	if len(stages) == 0 {
		return nil, persistence.NewStageError("GetInitialStage", workflowID, persistence.ErrStageNotFound)
	}

	return stages[0], nil
}

func (sr *StageRepository) GetFinalStages(_ context.Context, workflowID string) ([]*models.WorkflowStage, error) {
	sr.store.mu.RLock()
	defer sr.store.mu.RUnlock()

	stages, err := sr.listByWorkflow(workflowID)
	if err != nil {
		return nil, err
	}

	final := make([]*models.WorkflowStage, 0)

	for _, stage := range stages {
		if stage.IsTerminal() {
			final = append(final, stage)
		}
	}

	return final, nil
}

func (sr *StageRepository) Delete(ctx context.Context, id string) error {
	sr.store.mu.Lock()
	defer sr.store.mu.Unlock()

	if err := sr.store.removeDoc(ctx, stagesCollection, id); err != nil {
		return persistence.NewStageError("Delete", id, err)
	}

	return nil
}

// listByWorkflow returns the workflow's stages by order. Callers hold the store lock.
func (sr *StageRepository) listByWorkflow(workflowID string) ([]*models.WorkflowStage, error) {
	stages, err := readAll[models.WorkflowStage](sr.store, stagesCollection)
	if err != nil {
		return nil, err
	}

	matches := make([]*models.WorkflowStage, 0, len(stages))

	for _, stage := range stages {
		if stage.WorkflowID == workflowID {
			matches = append(matches, stage)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Order != matches[j].Order {
			return matches[i].Order < matches[j].Order
		}

		return matches[i].ID < matches[j].ID
	})

	return matches, nil
}

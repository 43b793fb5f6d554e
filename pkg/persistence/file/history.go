package file

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/persistence"
)

// HistoryRepository handles progression history file operations.
type HistoryRepository struct {
	store *store
}

func (hr *HistoryRepository) Save(ctx context.Context, record *models.CandidateApplicationStage) error {
	if record.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate history record ID: %w", err)
		}

		record.ID = id.String()
	}

	hr.store.mu.Lock()
	defer hr.store.mu.Unlock()

	existing, found, err := readDoc[models.CandidateApplicationStage](hr.store, historyCollection, record.ID)
	if err != nil {
		return persistence.NewHistoryError("Save", record.ID, err)
	}

	if found && existing.IsCompleted() {
		return persistence.NewHistoryError("Save", record.ID, persistence.ErrHistoryRecordImmutable)
	}

	if err := hr.store.writeDoc(ctx, historyCollection, record.ID, record); err != nil {
		return persistence.NewHistoryError("Save", record.ID, err)
	}

	return nil
}

func (hr *HistoryRepository) GetByID(_ context.Context, id string) (*models.CandidateApplicationStage, error) {
	hr.store.mu.RLock()
	defer hr.store.mu.RUnlock()

	record, found, err := readDoc[models.CandidateApplicationStage](hr.store, historyCollection, id)
	if err != nil {
		return nil, persistence.NewHistoryError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewHistoryError("GetByID", id, persistence.ErrHistoryRecordNotFound)
	}

	return record, nil
}

func (hr *HistoryRepository) ListByApplication(_ context.Context, applicationID string) ([]*models.CandidateApplicationStage, error) {
	hr.store.mu.RLock()
	defer hr.store.mu.RUnlock()

	return hr.listByApplication(applicationID)
}

func (hr *HistoryRepository) GetOpenByApplication(_ context.Context, applicationID string) (*models.CandidateApplicationStage, error) {
	hr.store.mu.RLock()
	defer hr.store.mu.RUnlock()

	records, err := hr.listByApplication(applicationID)
	if err != nil {
		return nil, err
	}

	for i := len(records) - 1; i >= 0; i-- {
		if !records[i].IsCompleted() {
			return records[i], nil
		}
	}

	return nil, persistence.NewHistoryError("GetOpenByApplication", applicationID, persistence.ErrHistoryRecordNotFound)
}

func (hr *HistoryRepository) listByApplication(applicationID string) ([]*models.CandidateApplicationStage, error) {
	all, err := readAll[models.CandidateApplicationStage](hr.store, historyCollection)
	if err != nil {
		return nil, err
	}

	records := make([]*models.CandidateApplicationStage, 0)

	for _, record := range all {
		if record.ApplicationID == applicationID {
			records = append(records, record)
		}
	}

	// v7 ids sort by creation time and break ties between records started at the same instant.
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].StartedAt.Equal(records[j].StartedAt) {
			return records[i].StartedAt.Before(records[j].StartedAt)
		}

		return records[i].ID < records[j].ID
	})

	return records, nil
}

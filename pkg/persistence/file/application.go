package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/persistence"
)

// ApplicationRepository handles candidate application file operations.
type ApplicationRepository struct {
	store *store
}

func (ar *ApplicationRepository) Save(ctx context.Context, application *models.CandidateApplication) error {
	if application.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate application ID: %w", err)
		}

		application.ID = id.String()
	}

	ar.store.mu.Lock()
	defer ar.store.mu.Unlock()

	existing, found, err := readDoc[models.CandidateApplication](ar.store, applicationsCollection, application.ID)
	if err != nil {
		return persistence.NewApplicationError("Save", application.ID, err)
	}

	var stored int64
	if found {
		stored = existing.Version
	}

	if err := checkVersion(found, stored, application.Version); err != nil {
		return persistence.NewApplicationError("Save", application.ID, err)
	}

	next := *application
	next.Version++

	if err := ar.store.writeDoc(ctx, applicationsCollection, application.ID, &next); err != nil {
		return persistence.NewApplicationError("Save", application.ID, err)
	}

	application.Version = next.Version

	return nil
}

func (ar *ApplicationRepository) GetByID(_ context.Context, id string) (*models.CandidateApplication, error) {
	ar.store.mu.RLock()
	defer ar.store.mu.RUnlock()

	application, found, err := readDoc[models.CandidateApplication](ar.store, applicationsCollection, id)
	if err != nil {
		return nil, persistence.NewApplicationError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewApplicationError("GetByID", id, persistence.ErrApplicationNotFound)
	}

	return application, nil
}

func (ar *ApplicationRepository) GetApplicationsByPosition(_ context.Context, positionID string) ([]*models.CandidateApplication, error) {
	return ar.filter(func(a *models.CandidateApplication) bool {
		return a.PositionID == positionID
	})
}

func (ar *ApplicationRepository) ListOverdue(_ context.Context, now time.Time) ([]*models.CandidateApplication, error) {
	return ar.filter(func(a *models.CandidateApplication) bool {
		return a.IsStageDeadlinePassed(now)
	})
}

func (ar *ApplicationRepository) filter(keep func(*models.CandidateApplication) bool) ([]*models.CandidateApplication, error) {
	ar.store.mu.RLock()
	defer ar.store.mu.RUnlock()

	all, err := readAll[models.CandidateApplication](ar.store, applicationsCollection)
	if err != nil {
		return nil, err
	}

	matches := make([]*models.CandidateApplication, 0, len(all))

	for _, application := range all {
		if keep(application) {
			matches = append(matches, application)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})

	return matches, nil
}

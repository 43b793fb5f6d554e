package file

import (
	"context"
	"sort"

	"github.com/hirepath/hirepath/pkg/models"
)

// AssignmentRepository handles position stage assignment file operations.
type AssignmentRepository struct {
	store *store
}

func assignmentKey(a *models.PositionStageAssignment) string {
	return a.PositionID + "_" + a.StageID + "_" + a.UserID
}

func (ar *AssignmentRepository) ListByUser(_ context.Context, userID string) ([]*models.PositionStageAssignment, error) {
	ar.store.mu.RLock()
	defer ar.store.mu.RUnlock()

	all, err := readAll[models.PositionStageAssignment](ar.store, assignmentsCollection)
	if err != nil {
		return nil, err
	}

	matches := make([]*models.PositionStageAssignment, 0)

	for _, assignment := range all {
		if assignment.UserID == userID {
			matches = append(matches, assignment)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return assignmentKey(matches[i]) < assignmentKey(matches[j])
	})

	return matches, nil
}

func (ar *AssignmentRepository) Assign(ctx context.Context, assignment *models.PositionStageAssignment) error {
	ar.store.mu.Lock()
	defer ar.store.mu.Unlock()

	return ar.store.writeDoc(ctx, assignmentsCollection, assignmentKey(assignment), assignment)
}

func (ar *AssignmentRepository) Unassign(ctx context.Context, assignment *models.PositionStageAssignment) error {
	ar.store.mu.Lock()
	defer ar.store.mu.Unlock()

	return ar.store.removeDoc(ctx, assignmentsCollection, assignmentKey(assignment))
}

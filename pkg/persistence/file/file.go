// Package file provides file-based persistence for the recruitment pipeline engine.
//
// Each entity is stored as one JSON document under <root>/<collection>/<id>.json. Units of
// work are serialized by a process-wide lock and rolled back from a journal of the
// documents they touched, which makes the backend suitable for development and tests.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hirepath/hirepath/pkg/persistence"
)

const (
	workflowsCollection    = "workflows"
	stagesCollection       = "stages"
	applicationsCollection = "applications"
	historyCollection      = "application_stages"
	assignmentsCollection  = "assignments"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root  string
	store *store
	txMu  sync.Mutex

	workflowRepo    *WorkflowRepository
	stageRepo       *StageRepository
	applicationRepo *ApplicationRepository
	historyRepo     *HistoryRepository
	assignmentRepo  *AssignmentRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	s := &store{root: cleanRoot}

	return &Persistence{
		root:            cleanRoot,
		store:           s,
		workflowRepo:    &WorkflowRepository{store: s},
		stageRepo:       &StageRepository{store: s},
		applicationRepo: &ApplicationRepository{store: s},
		historyRepo:     &HistoryRepository{store: s},
		assignmentRepo:  &AssignmentRepository{store: s},
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository { return fp.workflowRepo }

func (fp *Persistence) StageRepository() persistence.WorkflowStageRepository { return fp.stageRepo }

func (fp *Persistence) ApplicationRepository() persistence.CandidateApplicationRepository {
	return fp.applicationRepo
}

func (fp *Persistence) HistoryRepository() persistence.ApplicationStageRepository { return fp.historyRepo }

func (fp *Persistence) AssignmentRepository() persistence.PositionStageAssignmentRepository {
	return fp.assignmentRepo
}

// WithinTransaction runs fn with a journal of touched documents and restores them if fn fails.
func (fp *Persistence) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if journalFrom(ctx) != nil {
		return fn(ctx)
	}

	fp.txMu.Lock()
	defer fp.txMu.Unlock()

	j := &journal{entries: make(map[string][]byte)}

	err := fn(context.WithValue(ctx, journalKey{}, j))
	if err != nil {
		if rbErr := fp.store.restore(j); rbErr != nil {
			return fmt.Errorf("transaction failed: %w (rollback error: %v)", err, rbErr)
		}

		return err
	}

	return nil
}

type journalKey struct{}

// journal remembers the content each document had before the unit of work first wrote it.
// A nil entry means the document did not exist.
type journal struct {
	mu      sync.Mutex
	entries map[string][]byte
	order   []string
}

func journalFrom(ctx context.Context) *journal {
	j, _ := ctx.Value(journalKey{}).(*journal)

	return j
}

func (j *journal) remember(path string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, seen := j.entries[path]; seen {
		return nil
	}

	body, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to journal %s: %w", path, err)
	}

	j.entries[path] = body
	j.order = append(j.order, path)

	return nil
}

// store serializes access to the JSON documents of every collection.
type store struct {
	root string
	mu   sync.RWMutex
}

func (s *store) path(collection, id string) string {
	return filepath.Clean(filepath.Join(s.root, collection, id+".json"))
}

// readDoc loads one document, returning false when it does not exist. Callers hold s.mu.
func readDoc[T any](s *store, collection, id string) (*T, bool, error) {
	body, err := os.ReadFile(s.path(collection, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("failed to read %s/%s: %w", collection, id, err)
	}

	var v T

	err = json.Unmarshal(body, &v)
	if err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal %s/%s: %w", collection, id, err)
	}

	return &v, true, nil
}

// readAll loads every document of a collection. Callers hold s.mu.
func readAll[T any](s *store, collection string) ([]*T, error) {
	files, err := fs.Glob(os.DirFS(filepath.Join(s.root, collection)), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}

	items := make([]*T, 0, len(files))

	for _, file := range files {
		item, found, err := readDoc[T](s, collection, strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		if found {
			items = append(items, item)
		}
	}

	return items, nil
}

// writeDoc stores one document, journaling its previous content. Callers hold s.mu.
func (s *store) writeDoc(ctx context.Context, collection, id string, v any) error {
	err := os.MkdirAll(filepath.Join(s.root, collection), 0o750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", collection, err)
	}

	target := s.path(collection, id)

	if j := journalFrom(ctx); j != nil {
		if err := j.remember(target); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", collection, id, err)
	}

	return os.WriteFile(target, data, 0o600)
}

// removeDoc deletes one document, journaling its previous content. Callers hold s.mu.
func (s *store) removeDoc(ctx context.Context, collection, id string) error {
	target := s.path(collection, id)

	if j := journalFrom(ctx); j != nil {
		if err := j.remember(target); err != nil {
			return err
		}
	}

	err := os.Remove(target)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}

	return nil
}

func (s *store) restore(j *journal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error

	for i := len(j.order) - 1; i >= 0; i-- {
		target := j.order[i]
		body := j.entries[target]

		if body == nil {
			if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}

			continue
		}

		if err := os.WriteFile(target, body, 0o600); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// checkVersion enforces the optimistic concurrency contract of versioned aggregates.
func checkVersion(found bool, stored, current int64) error {
	if current == 0 && found {
		return persistence.ErrVersionConflict
	}

	if current > 0 && (!found || stored != current) {
		return persistence.ErrVersionConflict
	}

	return nil
}

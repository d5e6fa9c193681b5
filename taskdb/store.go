// Package taskdb is the canonical board-task store: a JSON file on disk,
// lazily back-filled from the legacy markdown corpus on read.
package taskdb

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/molty-assistant/second-brain/domain"
)

const (
	tasksFileName   = "tasks.json"
	DefaultAssignee = "molty"
)

// Store reads and writes the task collection. The mutex serializes access
// within this process; concurrent processes migrating the same corpus are not
// guarded against.
type Store struct {
	mu        sync.Mutex
	dataPath  string
	legacyDir string
	log       *log.Logger
}

// New creates a Store persisting under dataDir. legacyDir names the markdown
// corpus to migrate from; empty disables migration.
func New(dataDir, legacyDir string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Store{
		dataPath:  filepath.Join(dataDir, tasksFileName),
		legacyDir: legacyDir,
		log:       logger,
	}
}

func (s *Store) load() ([]domain.Task, error) {
	data, err := os.ReadFile(s.dataPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Task{}, nil
		}
		return nil, err
	}
	var tasks []domain.Task
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// save persists the collection sorted by created descending, the standing
// ordering invariant for default listings.
func (s *Store) save(tasks []domain.Task) error {
	sortByCreatedDesc(tasks)
	data, err := sonic.ConfigStd.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.dataPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.dataPath, data, 0o644)
}

func sortByCreatedDesc(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Created.After(tasks[j].Created)
	})
}

// ListTasks returns the collection newest first. Reading triggers the lazy
// legacy migration; migration problems degrade to warnings, never failures.
func (s *Store) ListTasks(ctx context.Context) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadMigrated()
}

func (s *Store) loadMigrated() ([]domain.Task, error) {
	tasks, err := s.load()
	if err != nil {
		return nil, err
	}
	migrated, changed := s.migrateLegacy(tasks)
	if changed {
		if err := s.save(migrated); err != nil {
			return nil, err
		}
	}
	sortByCreatedDesc(migrated)
	return migrated, nil
}

// GetTask fetches one task by id.
func (s *Store) GetTask(ctx context.Context, id string) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks, err := s.loadMigrated()
	if err != nil {
		return domain.Task{}, err
	}
	for _, t := range tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Task{}, domain.NotFoundError{Kind: "task", Key: id}
}

// CreateTask inserts a task, assigning identity, defaults and timestamps.
func (s *Store) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	t.Title = domain.NormalizeOptionalText(t.Title)
	if t.Title == "" {
		return domain.Task{}, domain.ValidationError{Field: "title", Reason: "required"}
	}
	if t.Status == "" {
		t.Status = domain.TaskTodo
	}
	if !t.Status.Valid() {
		return domain.Task{}, domain.ValidationError{Field: "status", Reason: "unknown value " + string(t.Status)}
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityNext
	}
	if !t.Priority.Valid() {
		return domain.Task{}, domain.ValidationError{Field: "priority", Reason: "unknown value " + string(t.Priority)}
	}
	if t.Assignee == "" {
		t.Assignee = DefaultAssignee
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	t.Created = now
	t.Updated = now
	if t.Status == domain.TaskDone {
		completed := now
		t.Completed = &completed
	} else {
		t.Completed = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tasks, err := s.load()
	if err != nil {
		return domain.Task{}, err
	}
	tasks = append(tasks, t)
	if err := s.save(tasks); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// UpdateTask applies a patch. Updated strictly increases on every mutation;
// Completed tracks the done status exactly.
func (s *Store) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	if patch.Title != nil && domain.NormalizeOptionalText(*patch.Title) == "" {
		return domain.Task{}, domain.ValidationError{Field: "title", Reason: "cannot be empty"}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return domain.Task{}, domain.ValidationError{Field: "status", Reason: "unknown value " + string(*patch.Status)}
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return domain.Task{}, domain.ValidationError{Field: "priority", Reason: "unknown value " + string(*patch.Priority)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tasks, err := s.load()
	if err != nil {
		return domain.Task{}, err
	}
	idx := -1
	for i := range tasks {
		if tasks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Task{}, domain.NotFoundError{Kind: "task", Key: id}
	}

	t := tasks[idx]
	if patch.Title != nil {
		t.Title = domain.NormalizeOptionalText(*patch.Title)
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Assignee != nil {
		t.Assignee = *patch.Assignee
	}
	if patch.WorkOrderID != nil {
		t.WorkOrderID = *patch.WorkOrderID
	}
	if patch.Notes != nil {
		t.Notes = *patch.Notes
	}
	if patch.Content != nil {
		t.Content = *patch.Content
	}

	now := time.Now().UTC()
	if !now.After(t.Updated) {
		now = t.Updated.Add(time.Millisecond)
	}
	t.Updated = now
	if t.Status == domain.TaskDone {
		if t.Completed == nil {
			completed := now
			t.Completed = &completed
		}
	} else {
		t.Completed = nil
	}

	tasks[idx] = t
	if err := s.save(tasks); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks, err := s.load()
	if err != nil {
		return err
	}
	kept := tasks[:0]
	found := false
	for _, t := range tasks {
		if t.ID == id {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	if !found {
		return domain.NotFoundError{Kind: "task", Key: id}
	}
	return s.save(kept)
}

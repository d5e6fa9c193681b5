package taskdb

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/molty-assistant/second-brain/domain"
)

func newTestStore(t *testing.T, legacyDir string) *Store {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return New(t.TempDir(), legacyDir, logger)
}

func TestCreateTaskDefaults(t *testing.T) {
	s := newTestStore(t, "")
	ctx := context.Background()

	created, err := s.CreateTask(ctx, domain.Task{Title: "  write report  "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated id")
	}
	if created.Title != "write report" {
		t.Fatalf("expected trimmed title, got %q", created.Title)
	}
	if created.Status != domain.TaskTodo || created.Priority != domain.PriorityNext || created.Assignee != DefaultAssignee {
		t.Fatalf("unexpected defaults: %+v", created)
	}
	if created.Created.IsZero() || !created.Updated.Equal(created.Created) {
		t.Fatalf("expected created==updated stamped, got %v / %v", created.Created, created.Updated)
	}
	if created.Completed != nil {
		t.Fatalf("expected no completed timestamp for todo task")
	}
}

func TestCreateTaskValidation(t *testing.T) {
	s := newTestStore(t, "")
	ctx := context.Background()

	var ve domain.ValidationError
	if _, err := s.CreateTask(ctx, domain.Task{Title: "   "}); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for blank title, got %v", err)
	}
	if _, err := s.CreateTask(ctx, domain.Task{Title: "x", Status: "archived"}); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for unknown status, got %v", err)
	}
	if _, err := s.CreateTask(ctx, domain.Task{Title: "x", Priority: "someday"}); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for unknown priority, got %v", err)
	}
}

func TestUpdateTaskMonotonicUpdated(t *testing.T) {
	s := newTestStore(t, "")
	ctx := context.Background()

	created, err := s.CreateTask(ctx, domain.Task{Title: "tick"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	prev := created.Updated
	notes := "first"
	for i := 0; i < 3; i++ {
		updated, err := s.UpdateTask(ctx, created.ID, domain.TaskPatch{Notes: &notes})
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		if !updated.Updated.After(prev) {
			t.Fatalf("expected updated to strictly increase, got %v then %v", prev, updated.Updated)
		}
		prev = updated.Updated
	}
}

func TestUpdateTaskCompletedTracksDone(t *testing.T) {
	s := newTestStore(t, "")
	ctx := context.Background()

	created, err := s.CreateTask(ctx, domain.Task{Title: "finish me"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	done := domain.TaskDone
	updated, err := s.UpdateTask(ctx, created.ID, domain.TaskPatch{Status: &done})
	if err != nil {
		t.Fatalf("mark done: %v", err)
	}
	if updated.Completed == nil {
		t.Fatalf("expected completed stamped on transition to done")
	}
	stamp := *updated.Completed

	// A second mutation that stays done keeps the original stamp.
	notes := "still done"
	updated, err = s.UpdateTask(ctx, created.ID, domain.TaskPatch{Notes: &notes})
	if err != nil {
		t.Fatalf("update while done: %v", err)
	}
	if updated.Completed == nil || !updated.Completed.Equal(stamp) {
		t.Fatalf("expected completed stamp kept, got %v", updated.Completed)
	}

	todo := domain.TaskTodo
	updated, err = s.UpdateTask(ctx, created.ID, domain.TaskPatch{Status: &todo})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if updated.Completed != nil {
		t.Fatalf("expected completed cleared on transition away from done")
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	s := newTestStore(t, "")
	title := "x"
	_, err := s.UpdateTask(context.Background(), "missing", domain.TaskPatch{Title: &title})
	var nf domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestDeleteTask(t *testing.T) {
	s := newTestStore(t, "")
	ctx := context.Background()

	created, err := s.CreateTask(ctx, domain.Task{Title: "ephemeral"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.DeleteTask(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var nf domain.NotFoundError
	if _, err := s.GetTask(ctx, created.ID); !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError after delete, got %v", err)
	}
	if err := s.DeleteTask(ctx, created.ID); !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError on double delete, got %v", err)
	}
}

func TestListTasksNewestFirst(t *testing.T) {
	s := newTestStore(t, "")
	ctx := context.Background()

	for _, title := range []string{"first", "second", "third"} {
		if _, err := s.CreateTask(ctx, domain.Task{Title: title}); err != nil {
			t.Fatalf("create %q: %v", title, err)
		}
	}
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	for i := 1; i < len(tasks); i++ {
		if tasks[i].Created.After(tasks[i-1].Created) {
			t.Fatalf("expected created-descending order, got %v before %v", tasks[i-1].Created, tasks[i].Created)
		}
	}
}

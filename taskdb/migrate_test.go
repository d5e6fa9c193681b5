package taskdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/molty-assistant/second-brain/domain"
)

func writeLegacyDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestMigrationImportsLegacyCorpus(t *testing.T) {
	legacyDir := t.TempDir()
	writeLegacyDoc(t, legacyDir, "ship-feature.md", `---
title: Ship feature
status: in_progress
priority: now
assignee: codex
created: 2024-03-05
---
Body of the plan.
`)
	s := newTestStore(t, legacyDir)

	tasks, err := s.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 migrated task, got %d", len(tasks))
	}
	got := tasks[0]
	if got.Title != "Ship feature" || got.Status != domain.TaskInProgress || got.Priority != domain.PriorityNow {
		t.Fatalf("unexpected migrated task: %+v", got)
	}
	if got.Assignee != "codex" {
		t.Fatalf("expected assignee carried over, got %q", got.Assignee)
	}
	if got.Content != "Body of the plan." {
		t.Fatalf("unexpected body: %q", got.Content)
	}
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	if !got.Created.Equal(want) {
		t.Fatalf("expected created %v, got %v", want, got.Created)
	}
}

func TestMigrationDedupsByNormalizedTitle(t *testing.T) {
	legacyDir := t.TempDir()
	writeLegacyDoc(t, legacyDir, "ship-x.md", `---
title: Ship X
---
`)
	s := newTestStore(t, legacyDir)
	ctx := context.Background()

	if _, err := s.CreateTask(ctx, domain.Task{Title: " ship x "}); err != nil {
		t.Fatalf("seed canonical task: %v", err)
	}

	tasks, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected dedup to keep 1 task, got %d", len(tasks))
	}

	// A second pass over the same corpus adds nothing.
	again, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if len(again) != len(tasks) {
		t.Fatalf("expected stable count across passes, got %d then %d", len(tasks), len(again))
	}
}

func TestMigrationRemapsHorizonStatus(t *testing.T) {
	legacyDir := t.TempDir()
	writeLegacyDoc(t, legacyDir, "old-note.md", `---
title: Old note
status: later
---
`)
	s := newTestStore(t, legacyDir)

	tasks, err := s.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Status != domain.TaskTodo || tasks[0].Priority != domain.PriorityLater {
		t.Fatalf("expected horizon moved to priority, got status=%q priority=%q", tasks[0].Status, tasks[0].Priority)
	}
}

func TestMigrationStampsCompletedForDoneDocuments(t *testing.T) {
	legacyDir := t.TempDir()
	writeLegacyDoc(t, legacyDir, "done-item.md", `---
title: Done item
status: done
completed: 2024-01-15
---
`)
	s := newTestStore(t, legacyDir)

	tasks, err := s.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Completed == nil {
		t.Fatalf("expected completed stamped, got %+v", tasks)
	}
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !tasks[0].Completed.Equal(want) {
		t.Fatalf("expected completed %v, got %v", want, *tasks[0].Completed)
	}
}

func TestMigrationSkipsMalformedDocuments(t *testing.T) {
	legacyDir := t.TempDir()
	writeLegacyDoc(t, legacyDir, "broken.md", "---\ntitle: [unclosed\n---\n")
	writeLegacyDoc(t, legacyDir, "good.md", `---
title: Good doc
---
`)
	s := newTestStore(t, legacyDir)

	tasks, err := s.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Good doc" {
		t.Fatalf("expected only the parseable document, got %+v", tasks)
	}
}

func TestMigrationTitleFallsBackToFilename(t *testing.T) {
	legacyDir := t.TempDir()
	writeLegacyDoc(t, legacyDir, "untitled-note.md", "just a body, no frontmatter\n")
	s := newTestStore(t, legacyDir)

	tasks, err := s.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "untitled note" {
		t.Fatalf("expected slug title, got %+v", tasks)
	}
}

func TestMigrationDisabledWithoutCorpusDir(t *testing.T) {
	s := newTestStore(t, "")
	tasks, err := s.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected empty store, got %d tasks", len(tasks))
	}
}

package domain

import "time"

// TaskStatus is a kanban column for board tasks.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskReview     TaskStatus = "review"
	TaskDone       TaskStatus = "done"
)

// TaskPriority is the time horizon assigned to a board task.
type TaskPriority string

const (
	PriorityNow   TaskPriority = "now"
	PriorityNext  TaskPriority = "next"
	PriorityLater TaskPriority = "later"
)

// Task is a board item in the canonical task store.
// Completed is set exactly when Status is done; Updated strictly increases on
// every mutation.
type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	Assignee    string       `json:"assignee"`
	WorkOrderID string       `json:"workOrderId,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	Content     string       `json:"content,omitempty"`
	Created     time.Time    `json:"created"`
	Completed   *time.Time   `json:"completed,omitempty"`
	Updated     time.Time    `json:"updated"`
}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskReview, TaskDone:
		return true
	}
	return false
}

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityNow, PriorityNext, PriorityLater:
		return true
	}
	return false
}

// TaskPatch carries a partial task update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string       `json:"title,omitempty"`
	Status      *TaskStatus   `json:"status,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty"`
	Assignee    *string       `json:"assignee,omitempty"`
	WorkOrderID *string       `json:"workOrderId,omitempty"`
	Notes       *string       `json:"notes,omitempty"`
	Content     *string       `json:"content,omitempty"`
}

package api

import (
	"context"

	"github.com/molty-assistant/second-brain/domain"
	"github.com/molty-assistant/second-brain/storage"
)

// DocumentStore abstracts the hosted document collections for handlers.
type DocumentStore interface {
	SyncBacklog(ctx context.Context, batch []domain.BacklogTask) (int, error)
	ListBacklog(ctx context.Context, status, assignedTo string) ([]domain.BacklogTask, error)
	UpdateBacklogStatus(ctx context.Context, taskID, status string) error

	UpsertScheduledTask(ctx context.Context, in domain.ScheduledTask) (domain.ScheduledTask, error)
	ListScheduledTasks(ctx context.Context, q storage.ScheduleQuery) ([]domain.ScheduledTask, error)
	ListScheduledBetween(ctx context.Context, start, end int64, q storage.ScheduleQuery) ([]domain.ScheduledTask, error)
	ListUpcoming(ctx context.Context, from int64, q storage.ScheduleQuery) ([]domain.ScheduledTask, error)

	CreateWorkOrder(ctx context.Context, w domain.WorkOrder) (domain.WorkOrder, error)
	UpdateWorkOrder(ctx context.Context, id string, patch storage.WorkOrderPatch) (domain.WorkOrder, error)
	GetWorkOrder(ctx context.Context, id string) (*domain.WorkOrder, error)
	ListWorkOrders(ctx context.Context, q storage.WorkOrderQuery) ([]domain.WorkOrder, error)

	AppendActivity(ctx context.Context, ev domain.ActivityEvent) error
	ListActivities(ctx context.Context, q storage.ActivityQuery) ([]domain.ActivityEvent, error)
}

// TaskStore abstracts the canonical task store (file-backed, possibly wrapped
// by a cache).
type TaskStore interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (domain.Task, error)
	CreateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

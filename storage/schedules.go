package storage

import (
	"context"
	"encoding/json"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/google/uuid"

	"github.com/molty-assistant/second-brain/domain"
)

// scheduleEntity rows are keyed by scheduledAt so the table's single index is
// the by-schedule ordering. Metadata is an opaque JSON property because table
// properties are scalar.
type scheduleEntity struct {
	aztables.Entity
	ID          string `json:"Id"`
	CronJobID   string `json:"CronJobId,omitempty"`
	Title       string `json:"Title"`
	Description string `json:"Description,omitempty"`
	ScheduledAt int64  `json:"ScheduledAt"`
	EndAt       int64  `json:"EndAt,omitempty"`
	Recurrence  string `json:"Recurrence,omitempty"`
	Status      string `json:"Status"`
	AssignedTo  string `json:"AssignedTo"`
	Project     string `json:"Project,omitempty"`
	Source      string `json:"Source"`
	Metadata    string `json:"Metadata,omitempty"`
}

func scheduleRowKey(scheduledAt int64, id string) string {
	return sortableMillis(scheduledAt) + "-" + id
}

func scheduleToEntity(t domain.ScheduledTask) (scheduleEntity, error) {
	ent := scheduleEntity{
		Entity:      aztables.Entity{PartitionKey: schedulePartition, RowKey: scheduleRowKey(t.ScheduledAt, t.ID)},
		ID:          t.ID,
		CronJobID:   t.CronJobID,
		Title:       t.Title,
		Description: t.Description,
		ScheduledAt: t.ScheduledAt,
		EndAt:       t.EndAt,
		Recurrence:  t.Recurrence,
		Status:      t.Status,
		AssignedTo:  t.AssignedTo,
		Project:     t.Project,
		Source:      t.Source,
	}
	if len(t.Metadata) > 0 {
		raw, err := json.Marshal(t.Metadata)
		if err != nil {
			return scheduleEntity{}, err
		}
		ent.Metadata = string(raw)
	}
	return ent, nil
}

func decodeScheduleEntity(data []byte) (domain.ScheduledTask, error) {
	var ent scheduleEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.ScheduledTask{}, err
	}
	task := domain.ScheduledTask{
		ID:          ent.ID,
		CronJobID:   ent.CronJobID,
		Title:       ent.Title,
		Description: ent.Description,
		ScheduledAt: ent.ScheduledAt,
		EndAt:       ent.EndAt,
		Recurrence:  ent.Recurrence,
		Status:      ent.Status,
		AssignedTo:  ent.AssignedTo,
		Project:     ent.Project,
		Source:      ent.Source,
	}
	if ent.Metadata != "" {
		if err := json.Unmarshal([]byte(ent.Metadata), &task.Metadata); err != nil {
			return domain.ScheduledTask{}, err
		}
	}
	return task, nil
}

// UpsertScheduledTask reconciles one scheduled task. Records carrying a
// cronJobId are matched by that key and fully overwritten; records without
// one are always appended as new rows. An omitted status preserves the stored
// one, both on replace and relative to the insert default.
func (s *Storage) UpsertScheduledTask(ctx context.Context, in domain.ScheduledTask) (domain.ScheduledTask, error) {
	var result domain.ScheduledTask
	_, err := reconcile(ctx, []domain.ScheduledTask{in}, reconcileOps[domain.ScheduledTask]{
		find: func(ctx context.Context, incoming domain.ScheduledTask) (*domain.ScheduledTask, error) {
			if incoming.CronJobID == "" {
				return nil, nil
			}
			return s.findScheduleByCronJob(ctx, incoming.CronJobID)
		},
		insert: func(ctx context.Context, incoming domain.ScheduledTask) error {
			incoming.ID = uuid.NewString()
			if incoming.Status == "" {
				incoming.Status = domain.ScheduleStatusDefault
			}
			if err := s.putSchedule(ctx, incoming); err != nil {
				return err
			}
			result = incoming
			return nil
		},
		replace: func(ctx context.Context, incoming, existing domain.ScheduledTask) error {
			incoming.ID = existing.ID
			if incoming.Status == "" {
				incoming.Status = existing.Status
			}
			// A moved scheduledAt changes the row key, so the old row is
			// dropped to keep the index truthful.
			if existing.ScheduledAt != incoming.ScheduledAt {
				if err := s.deleteSchedule(ctx, existing); err != nil {
					return err
				}
			}
			if err := s.putSchedule(ctx, incoming); err != nil {
				return err
			}
			result = incoming
			return nil
		},
	})
	return result, err
}

func (s *Storage) findScheduleByCronJob(ctx context.Context, cronJobID string) (*domain.ScheduledTask, error) {
	filter := equalityFilter(schedulePartition, "CronJobId", cronJobID)
	return findFirst(ctx, s.scheduleTable, filter, decodeScheduleEntity)
}

func (s *Storage) putSchedule(ctx context.Context, t domain.ScheduledTask) error {
	ent, err := scheduleToEntity(t)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	mode := aztables.UpdateModeReplace
	_, err = s.scheduleTable.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: mode})
	return err
}

func (s *Storage) deleteSchedule(ctx context.Context, t domain.ScheduledTask) error {
	_, err := s.scheduleTable.DeleteEntity(ctx, schedulePartition, scheduleRowKey(t.ScheduledAt, t.ID), nil)
	if err != nil && isNotFound(err) {
		return nil
	}
	return err
}

// ScheduleQuery carries the optional predicates for schedule listings. Zero
// values mean "no constraint".
type ScheduleQuery struct {
	Status     string
	AssignedTo string
	From       int64
	To         int64
	Limit      int
}

func (q ScheduleQuery) predicates() []func(domain.ScheduledTask) bool {
	var preds []func(domain.ScheduledTask) bool
	if q.Status != "" {
		preds = append(preds, func(t domain.ScheduledTask) bool { return t.Status == q.Status })
	}
	if q.AssignedTo != "" {
		preds = append(preds, func(t domain.ScheduledTask) bool { return t.AssignedTo == q.AssignedTo })
	}
	if q.From > 0 {
		preds = append(preds, func(t domain.ScheduledTask) bool { return t.ScheduledAt >= q.From })
	}
	if q.To > 0 {
		preds = append(preds, func(t domain.ScheduledTask) bool { return t.ScheduledAt <= q.To })
	}
	return preds
}

// ListScheduledTasks lists in scheduledAt order with optional filters.
func (s *Storage) ListScheduledTasks(ctx context.Context, q ScheduleQuery) ([]domain.ScheduledTask, error) {
	limit := clampLimit(q.Limit, 200, 1000)
	return rangeScan(ctx, s.scheduleTable, partitionFilter(schedulePartition), limit, decodeScheduleEntity, q.predicates()...)
}

// ListScheduledBetween lists tasks whose scheduledAt falls inside the
// inclusive [start, end] window.
func (s *Storage) ListScheduledBetween(ctx context.Context, start, end int64, q ScheduleQuery) ([]domain.ScheduledTask, error) {
	limit := clampLimit(q.Limit, 500, 2000)
	preds := append(q.predicates(), func(t domain.ScheduledTask) bool {
		return t.ScheduledAt >= start && t.ScheduledAt <= end
	})
	return rangeScan(ctx, s.scheduleTable, partitionFilter(schedulePartition), limit, decodeScheduleEntity, preds...)
}

// ListUpcoming lists tasks scheduled at or after from.
func (s *Storage) ListUpcoming(ctx context.Context, from int64, q ScheduleQuery) ([]domain.ScheduledTask, error) {
	limit := clampLimit(q.Limit, 200, 1000)
	preds := append(q.predicates(), func(t domain.ScheduledTask) bool { return t.ScheduledAt >= from })
	return rangeScan(ctx, s.scheduleTable, partitionFilter(schedulePartition), limit, decodeScheduleEntity, preds...)
}

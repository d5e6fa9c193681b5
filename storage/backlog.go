package storage

import (
	"context"
	"encoding/json"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"github.com/molty-assistant/second-brain/domain"
)

type backlogEntity struct {
	aztables.Entity
	Title       string `json:"Title"`
	Description string `json:"Description,omitempty"`
	AssignedTo  string `json:"AssignedTo"`
	Status      string `json:"Status"`
	Priority    string `json:"Priority,omitempty"`
	CreatedBy   string `json:"CreatedBy,omitempty"`
	CreatedAt   string `json:"CreatedAt,omitempty"`
	CompletedAt string `json:"CompletedAt,omitempty"`
	Output      string `json:"Output,omitempty"`
	PR          string `json:"PR,omitempty"`
}

func backlogToEntity(t domain.BacklogTask) backlogEntity {
	return backlogEntity{
		Entity:      aztables.Entity{PartitionKey: backlogPartition, RowKey: t.TaskID},
		Title:       t.Title,
		Description: t.Description,
		AssignedTo:  t.AssignedTo,
		Status:      t.Status,
		Priority:    t.Priority,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
		Output:      t.Output,
		PR:          t.PR,
	}
}

func decodeBacklogEntity(data []byte) (domain.BacklogTask, error) {
	var ent backlogEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.BacklogTask{}, err
	}
	return domain.BacklogTask{
		TaskID:      ent.RowKey,
		Title:       ent.Title,
		Description: ent.Description,
		AssignedTo:  ent.AssignedTo,
		Status:      ent.Status,
		Priority:    ent.Priority,
		CreatedBy:   ent.CreatedBy,
		CreatedAt:   ent.CreatedAt,
		CompletedAt: ent.CompletedAt,
		Output:      ent.Output,
		PR:          ent.PR,
	}, nil
}

// SyncBacklog upserts the batch by taskId and returns the number of records
// processed. Identical batches are idempotent: re-syncing overwrites each
// record with the same values and never duplicates a key.
func (s *Storage) SyncBacklog(ctx context.Context, batch []domain.BacklogTask) (int, error) {
	return reconcile(ctx, batch, reconcileOps[domain.BacklogTask]{
		find: func(ctx context.Context, incoming domain.BacklogTask) (*domain.BacklogTask, error) {
			return s.getBacklogTask(ctx, incoming.TaskID)
		},
		insert: func(ctx context.Context, incoming domain.BacklogTask) error {
			return s.putBacklogTask(ctx, incoming)
		},
		replace: func(ctx context.Context, incoming, _ domain.BacklogTask) error {
			// TaskID is the row key, so a full-replace upsert overwrites
			// every mutable field while keeping the identity.
			return s.putBacklogTask(ctx, incoming)
		},
	})
}

func (s *Storage) getBacklogTask(ctx context.Context, taskID string) (*domain.BacklogTask, error) {
	resp, err := s.backlogTable.GetEntity(ctx, backlogPartition, taskID, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	task, err := decodeBacklogEntity(resp.Value)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *Storage) putBacklogTask(ctx context.Context, t domain.BacklogTask) error {
	payload, err := json.Marshal(backlogToEntity(t))
	if err != nil {
		return err
	}
	mode := aztables.UpdateModeReplace
	_, err = s.backlogTable.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: mode})
	return err
}

// ListBacklog returns backlog tasks in taskId order with optional equality
// filters. The collection is fed by a single sync file, so the whole index is
// scanned and filtered in memory.
func (s *Storage) ListBacklog(ctx context.Context, status, assignedTo string) ([]domain.BacklogTask, error) {
	filter := partitionFilter(backlogPartition)
	pager := s.backlogTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.BacklogTask{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			task, err := decodeBacklogEntity(raw)
			if err != nil {
				return nil, err
			}
			if status != "" && task.Status != status {
				continue
			}
			if assignedTo != "" && task.AssignedTo != assignedTo {
				continue
			}
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// UpdateBacklogStatus patches just the status of an existing backlog task.
func (s *Storage) UpdateBacklogStatus(ctx context.Context, taskID, status string) error {
	existing, err := s.getBacklogTask(ctx, taskID)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.NotFoundError{Kind: "backlog task", Key: taskID}
	}
	patch := struct {
		aztables.Entity
		Status string `json:"Status"`
	}{
		Entity: aztables.Entity{PartitionKey: backlogPartition, RowKey: taskID},
		Status: status,
	}
	payload, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	mode := aztables.UpdateModeMerge
	_, err = s.backlogTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{UpdateMode: mode})
	return err
}

package storage

import (
	"context"
	"encoding/json"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/google/uuid"

	"github.com/molty-assistant/second-brain/domain"
)

// activityEntity rows are keyed by inverted timestamp for newest-first feed
// scans.
type activityEntity struct {
	aztables.Entity
	Timestamp   int64  `json:"Timestamp"`
	Actor       string `json:"Actor"`
	Action      string `json:"Action"`
	Title       string `json:"Title"`
	Description string `json:"Description,omitempty"`
	Project     string `json:"Project,omitempty"`
	Tags        string `json:"Tags,omitempty"`
	Metadata    string `json:"Metadata,omitempty"`
}

func activityToEntity(ev domain.ActivityEvent) (activityEntity, error) {
	ent := activityEntity{
		Entity:      aztables.Entity{PartitionKey: activityPartition, RowKey: invertedMillis(ev.Timestamp) + "-" + uuid.NewString()},
		Timestamp:   ev.Timestamp,
		Actor:       ev.Actor,
		Action:      ev.Action,
		Title:       ev.Title,
		Description: ev.Description,
		Project:     ev.Project,
	}
	if len(ev.Tags) > 0 {
		raw, err := json.Marshal(ev.Tags)
		if err != nil {
			return activityEntity{}, err
		}
		ent.Tags = string(raw)
	}
	if len(ev.Metadata) > 0 {
		raw, err := json.Marshal(ev.Metadata)
		if err != nil {
			return activityEntity{}, err
		}
		ent.Metadata = string(raw)
	}
	return ent, nil
}

func decodeActivityEntity(data []byte) (domain.ActivityEvent, error) {
	var ent activityEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.ActivityEvent{}, err
	}
	ev := domain.ActivityEvent{
		Timestamp:   ent.Timestamp,
		Actor:       ent.Actor,
		Action:      ent.Action,
		Title:       ent.Title,
		Description: ent.Description,
		Project:     ent.Project,
	}
	if ent.Tags != "" {
		if err := json.Unmarshal([]byte(ent.Tags), &ev.Tags); err != nil {
			return domain.ActivityEvent{}, err
		}
	}
	if ent.Metadata != "" {
		if err := json.Unmarshal([]byte(ent.Metadata), &ev.Metadata); err != nil {
			return domain.ActivityEvent{}, err
		}
	}
	return ev, nil
}

// AppendActivity writes the event to the feed table and, when a queue is
// configured, mirrors it onto the append-only activity queue. Callers treat
// failures as best-effort; this method just reports them.
func (s *Storage) AppendActivity(ctx context.Context, ev domain.ActivityEvent) error {
	ent, err := activityToEntity(ev)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	if _, err := s.activityTable.AddEntity(ctx, payload, nil); err != nil {
		return err
	}
	if s.activityQueue == nil {
		return nil
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = s.activityQueue.EnqueueMessage(ctx, string(msg), nil)
	return err
}

// ActivityQuery carries the optional predicates for feed listings.
type ActivityQuery struct {
	Actor   string
	Action  string
	Project string
	After   int64
	Before  int64
	Limit   int
}

// ListActivities lists the feed newest first with optional filters.
func (s *Storage) ListActivities(ctx context.Context, q ActivityQuery) ([]domain.ActivityEvent, error) {
	limit := clampLimit(q.Limit, 50, 500)
	var preds []func(domain.ActivityEvent) bool
	if q.Actor != "" {
		preds = append(preds, func(ev domain.ActivityEvent) bool { return ev.Actor == q.Actor })
	}
	if q.Action != "" {
		preds = append(preds, func(ev domain.ActivityEvent) bool { return ev.Action == q.Action })
	}
	if q.Project != "" {
		preds = append(preds, func(ev domain.ActivityEvent) bool { return ev.Project == q.Project })
	}
	if q.After > 0 {
		preds = append(preds, func(ev domain.ActivityEvent) bool { return ev.Timestamp >= q.After })
	}
	if q.Before > 0 {
		preds = append(preds, func(ev domain.ActivityEvent) bool { return ev.Timestamp <= q.Before })
	}
	return rangeScan(ctx, s.activityTable, partitionFilter(activityPartition), limit, decodeActivityEntity, preds...)
}

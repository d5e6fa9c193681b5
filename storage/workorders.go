package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"github.com/molty-assistant/second-brain/domain"
)

// workOrderEntity rows are keyed by inverted createdAt so the table's single
// index is the newest-first listing order. The natural id is a property and
// is looked up by equality filter.
type workOrderEntity struct {
	aztables.Entity
	ID          string `json:"Id"`
	Title       string `json:"Title"`
	Priority    string `json:"Priority"`
	Status      string `json:"Status"`
	Worker      string `json:"Worker"`
	Repo        string `json:"Repo,omitempty"`
	Acceptance  string `json:"Acceptance"`
	Constraints string `json:"Constraints"`
	Links       string `json:"Links,omitempty"`
	CreatedAt   int64  `json:"CreatedAt"`
	UpdatedAt   int64  `json:"UpdatedAt"`
}

func workOrderRowKey(createdAt int64, id string) string {
	return invertedMillis(createdAt) + "-" + id
}

func marshalLines(items []string) (string, error) {
	if len(items) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func unmarshalLines(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func workOrderToEntity(w domain.WorkOrder) (workOrderEntity, error) {
	acceptance, err := marshalLines(w.Acceptance)
	if err != nil {
		return workOrderEntity{}, err
	}
	constraints, err := marshalLines(w.Constraints)
	if err != nil {
		return workOrderEntity{}, err
	}
	links, err := marshalLines(w.Links)
	if err != nil {
		return workOrderEntity{}, err
	}
	return workOrderEntity{
		Entity:      aztables.Entity{PartitionKey: workOrderPartition, RowKey: workOrderRowKey(w.CreatedAt, w.ID)},
		ID:          w.ID,
		Title:       w.Title,
		Priority:    string(w.Priority),
		Status:      string(w.Status),
		Worker:      w.Worker,
		Repo:        w.Repo,
		Acceptance:  acceptance,
		Constraints: constraints,
		Links:       links,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}, nil
}

func decodeWorkOrderEntity(data []byte) (domain.WorkOrder, error) {
	var ent workOrderEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.WorkOrder{}, err
	}
	acceptance, err := unmarshalLines(ent.Acceptance)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	constraints, err := unmarshalLines(ent.Constraints)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	links, err := unmarshalLines(ent.Links)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	if acceptance == nil {
		acceptance = []string{}
	}
	if constraints == nil {
		constraints = []string{}
	}
	return domain.WorkOrder{
		ID:          ent.ID,
		Title:       ent.Title,
		Priority:    domain.TaskPriority(ent.Priority),
		Status:      domain.WorkOrderStatus(ent.Status),
		Worker:      ent.Worker,
		Repo:        ent.Repo,
		Acceptance:  acceptance,
		Constraints: constraints,
		Links:       links,
		CreatedAt:   ent.CreatedAt,
		UpdatedAt:   ent.UpdatedAt,
	}, nil
}

// CreateWorkOrder inserts a new work order under the uniqueness variant of
// the reconciler: an existing record with the same id rejects the create and
// is left untouched. CreatedAt/UpdatedAt are stamped here.
func (s *Storage) CreateWorkOrder(ctx context.Context, w domain.WorkOrder) (domain.WorkOrder, error) {
	existing, err := s.findWorkOrderByID(ctx, w.ID)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	if existing != nil {
		return domain.WorkOrder{}, domain.ConflictError{Kind: "work order", Key: w.ID}
	}

	now := time.Now().UnixMilli()
	w.CreatedAt = now
	w.UpdatedAt = now

	ent, err := workOrderToEntity(w)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	if _, err := s.workOrderTable.AddEntity(ctx, payload, nil); err != nil {
		if isConflict(err) {
			return domain.WorkOrder{}, domain.ConflictError{Kind: "work order", Key: w.ID}
		}
		return domain.WorkOrder{}, err
	}
	return w, nil
}

// WorkOrderPatch carries a partial work-order update. Nil fields are left
// untouched; supplied list fields are re-normalized before storing.
type WorkOrderPatch struct {
	Title       *string                 `json:"title,omitempty"`
	Priority    *domain.TaskPriority    `json:"priority,omitempty"`
	Status      *domain.WorkOrderStatus `json:"status,omitempty"`
	Worker      *string                 `json:"worker,omitempty"`
	Repo        *string                 `json:"repo,omitempty"`
	Acceptance  *[]string               `json:"acceptance,omitempty"`
	Constraints *[]string               `json:"constraints,omitempty"`
	Links       *[]string               `json:"links,omitempty"`
}

// UpdateWorkOrder applies a patch to an existing work order and restamps
// UpdatedAt.
func (s *Storage) UpdateWorkOrder(ctx context.Context, id string, patch WorkOrderPatch) (domain.WorkOrder, error) {
	existing, err := s.findWorkOrderByID(ctx, id)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	if existing == nil {
		return domain.WorkOrder{}, domain.NotFoundError{Kind: "work order", Key: id}
	}

	w := *existing
	if patch.Title != nil {
		title := domain.NormalizeOptionalText(*patch.Title)
		if title == "" {
			return domain.WorkOrder{}, domain.ValidationError{Field: "title", Reason: "cannot be empty"}
		}
		w.Title = title
	}
	if patch.Priority != nil {
		w.Priority = *patch.Priority
	}
	if patch.Status != nil {
		w.Status = *patch.Status
	}
	if patch.Worker != nil {
		w.Worker = *patch.Worker
	}
	if patch.Repo != nil {
		w.Repo = domain.NormalizeOptionalText(*patch.Repo)
	}
	if patch.Acceptance != nil {
		w.Acceptance = domain.CleanLines(*patch.Acceptance)
	}
	if patch.Constraints != nil {
		w.Constraints = domain.CleanLines(*patch.Constraints)
	}
	if patch.Links != nil {
		w.Links = domain.CleanLines(*patch.Links)
	}
	w.UpdatedAt = time.Now().UnixMilli()

	ent, err := workOrderToEntity(w)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	mode := aztables.UpdateModeReplace
	if _, err := s.workOrderTable.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: mode}); err != nil {
		return domain.WorkOrder{}, err
	}
	return w, nil
}

// GetWorkOrder fetches a work order by its natural id, or nil when absent.
func (s *Storage) GetWorkOrder(ctx context.Context, id string) (*domain.WorkOrder, error) {
	return s.findWorkOrderByID(ctx, id)
}

func (s *Storage) findWorkOrderByID(ctx context.Context, id string) (*domain.WorkOrder, error) {
	filter := equalityFilter(workOrderPartition, "Id", id)
	return findFirst(ctx, s.workOrderTable, filter, decodeWorkOrderEntity)
}

// WorkOrderQuery carries the optional predicates for work-order listings.
type WorkOrderQuery struct {
	Status   string
	Priority string
	Worker   string
	Limit    int
}

// ListWorkOrders lists newest first with optional equality filters.
func (s *Storage) ListWorkOrders(ctx context.Context, q WorkOrderQuery) ([]domain.WorkOrder, error) {
	limit := clampLimit(q.Limit, 200, 500)
	var preds []func(domain.WorkOrder) bool
	if q.Status != "" {
		preds = append(preds, func(w domain.WorkOrder) bool { return string(w.Status) == q.Status })
	}
	if q.Priority != "" {
		preds = append(preds, func(w domain.WorkOrder) bool { return string(w.Priority) == q.Priority })
	}
	if q.Worker != "" {
		preds = append(preds, func(w domain.WorkOrder) bool { return w.Worker == q.Worker })
	}
	return rangeScan(ctx, s.workOrderTable, partitionFilter(workOrderPartition), limit, decodeWorkOrderEntity, preds...)
}

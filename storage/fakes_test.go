package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
)

func notFoundErr() error { return &azcore.ResponseError{StatusCode: http.StatusNotFound} }
func conflictErr() error { return &azcore.ResponseError{StatusCode: http.StatusConflict} }

// fakeTable is an in-memory table honoring the filter shapes this package
// generates: "PartitionKey eq 'x'" optionally and-ed with property equality
// clauses. It records the largest Top requested and how many entities it
// served, so tests can hold the scanner to its fetch budget.
type fakeTable struct {
	mu     sync.Mutex
	rows   map[string]map[string][]byte
	maxTop int32
	served int
}

func newFakeTable() *fakeTable {
	return &fakeTable{rows: map[string]map[string][]byte{}}
}

func entityKeys(payload []byte) (string, string) {
	var ent aztables.Entity
	_ = json.Unmarshal(payload, &ent)
	return ent.PartitionKey, ent.RowKey
}

func (f *fakeTable) count(partition string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows[partition])
}

func (f *fakeTable) has(partition, rowKey string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[partition][rowKey]
	return ok
}

func (f *fakeTable) GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payload, ok := f.rows[partitionKey][rowKey]
	if !ok {
		return aztables.GetEntityResponse{}, notFoundErr()
	}
	return aztables.GetEntityResponse{Value: payload}, nil
}

func (f *fakeTable) AddEntity(ctx context.Context, entity []byte, options *aztables.AddEntityOptions) (aztables.AddEntityResponse, error) {
	pk, rk := entityKeys(entity)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[pk][rk]; ok {
		return aztables.AddEntityResponse{}, conflictErr()
	}
	f.put(pk, rk, entity)
	return aztables.AddEntityResponse{}, nil
}

func (f *fakeTable) UpsertEntity(ctx context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error) {
	pk, rk := entityKeys(entity)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(pk, rk, entity)
	return aztables.UpsertEntityResponse{}, nil
}

// UpdateEntity implements merge semantics: properties present in the patch
// overlay the stored ones.
func (f *fakeTable) UpdateEntity(ctx context.Context, entity []byte, options *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error) {
	pk, rk := entityKeys(entity)
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.rows[pk][rk]
	if !ok {
		return aztables.UpdateEntityResponse{}, notFoundErr()
	}
	var merged, patch map[string]any
	if err := json.Unmarshal(existing, &merged); err != nil {
		return aztables.UpdateEntityResponse{}, err
	}
	if err := json.Unmarshal(entity, &patch); err != nil {
		return aztables.UpdateEntityResponse{}, err
	}
	for k, v := range patch {
		merged[k] = v
	}
	payload, err := json.Marshal(merged)
	if err != nil {
		return aztables.UpdateEntityResponse{}, err
	}
	f.put(pk, rk, payload)
	return aztables.UpdateEntityResponse{}, nil
}

func (f *fakeTable) DeleteEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[partitionKey][rowKey]; !ok {
		return aztables.DeleteEntityResponse{}, notFoundErr()
	}
	delete(f.rows[partitionKey], rowKey)
	return aztables.DeleteEntityResponse{}, nil
}

func (f *fakeTable) put(pk, rk string, payload []byte) {
	if f.rows[pk] == nil {
		f.rows[pk] = map[string][]byte{}
	}
	f.rows[pk][rk] = payload
}

func (f *fakeTable) NewListEntitiesPager(listOptions *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse] {
	filter := ""
	var top int32
	if listOptions != nil {
		if listOptions.Filter != nil {
			filter = *listOptions.Filter
		}
		if listOptions.Top != nil {
			top = *listOptions.Top
		}
	}

	f.mu.Lock()
	if top > f.maxTop {
		f.maxTop = top
	}
	type row struct {
		rk      string
		payload []byte
	}
	var snapshot []row
	for pk, rows := range f.rows {
		for rk, payload := range rows {
			if matchesFilter(filter, pk, payload) {
				snapshot = append(snapshot, row{rk: rk, payload: payload})
			}
		}
	}
	f.mu.Unlock()
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].rk < snapshot[j].rk })

	idx := 0
	return runtime.NewPager(runtime.PagingHandler[aztables.ListEntitiesResponse]{
		More: func(aztables.ListEntitiesResponse) bool {
			return idx < len(snapshot)
		},
		Fetcher: func(ctx context.Context, _ *aztables.ListEntitiesResponse) (aztables.ListEntitiesResponse, error) {
			end := len(snapshot)
			if top > 0 && idx+int(top) < end {
				end = idx + int(top)
			}
			entities := make([][]byte, 0, end-idx)
			for _, r := range snapshot[idx:end] {
				entities = append(entities, r.payload)
			}
			idx = end
			f.mu.Lock()
			f.served += len(entities)
			f.mu.Unlock()
			return aztables.ListEntitiesResponse{Entities: entities}, nil
		},
	})
}

// matchesFilter evaluates "Name eq 'value'" clauses joined by " and ".
func matchesFilter(filter, pk string, payload []byte) bool {
	if filter == "" {
		return true
	}
	var props map[string]any
	for _, clause := range strings.Split(filter, " and ") {
		idx := strings.Index(clause, " eq ")
		if idx < 0 {
			return false
		}
		name := strings.TrimSpace(clause[:idx])
		value := strings.TrimSpace(clause[idx+len(" eq "):])
		value = strings.ReplaceAll(strings.Trim(value, "'"), "''", "'")
		if name == "PartitionKey" {
			if pk != value {
				return false
			}
			continue
		}
		if props == nil {
			if err := json.Unmarshal(payload, &props); err != nil {
				return false
			}
		}
		got, _ := props[name].(string)
		if got != value {
			return false
		}
	}
	return true
}

type fakeQueue struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (q *fakeQueue) EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return azqueue.EnqueueMessagesResponse{}, q.err
	}
	q.messages = append(q.messages, content)
	return azqueue.EnqueueMessagesResponse{}, nil
}

func (q *fakeQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// newTestStorage wires a Storage over fresh fakes.
func newTestStorage() (*Storage, map[string]*fakeTable, *fakeQueue) {
	tables := map[string]*fakeTable{
		backlogPartition:   newFakeTable(),
		schedulePartition:  newFakeTable(),
		workOrderPartition: newFakeTable(),
		activityPartition:  newFakeTable(),
	}
	queue := &fakeQueue{}
	s := &Storage{
		backlogTable:   tables[backlogPartition],
		scheduleTable:  tables[schedulePartition],
		workOrderTable: tables[workOrderPartition],
		activityTable:  tables[activityPartition],
		activityQueue:  queue,
	}
	return s, tables, queue
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
)

// tableClient is the subset of *aztables.Client used by this package, kept as
// an interface so tests can substitute in-memory tables.
type tableClient interface {
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	AddEntity(ctx context.Context, entity []byte, options *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	UpsertEntity(ctx context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
	UpdateEntity(ctx context.Context, entity []byte, options *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
	NewListEntitiesPager(listOptions *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
}

type queueClient interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

// Partition keys are fixed per collection; each table's RowKey is its single
// ordered index.
const (
	backlogPartition   = "backlog"
	schedulePartition  = "schedule"
	workOrderPartition = "workorder"
	activityPartition  = "activity"
)

// Storage provides access to the hosted document store: one Azure table per
// collection plus the append-only activity queue.
type Storage struct {
	backlogTable   tableClient
	scheduleTable  tableClient
	workOrderTable tableClient
	activityTable  tableClient
	activityQueue  queueClient
}

// Tables names the per-collection tables and the activity queue.
type Tables struct {
	Backlog       string
	Schedules     string
	WorkOrders    string
	Activities    string
	ActivityQueue string
}

// New creates a Storage instance from the given connection string.
func New(connStr string, tables Tables) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 1,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	var queue queueClient
	if tables.ActivityQueue != "" {
		q, err := azqueue.NewQueueClientFromConnectionString(connStr, tables.ActivityQueue, &queueClientOptions)
		if err != nil {
			return nil, err
		}
		queue = q
	}
	return &Storage{
		backlogTable:   svc.NewClient(tables.Backlog),
		scheduleTable:  svc.NewClient(tables.Schedules),
		workOrderTable: svc.NewClient(tables.WorkOrders),
		activityTable:  svc.NewClient(tables.Activities),
		activityQueue:  queue,
	}, nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}

func isConflict(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 409
}

// sortableMillis renders a unix-ms timestamp as a zero-padded RowKey segment
// so lexical RowKey order matches chronological order.
func sortableMillis(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("%020d", ms)
}

// invertedMillis renders a timestamp so lexical order is newest first.
func invertedMillis(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("%020d", math.MaxInt64-ms)
}

// escapeFilterValue doubles single quotes per OData string literal rules.
func escapeFilterValue(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}

func partitionFilter(partition string) string {
	return "PartitionKey eq '" + partition + "'"
}

func equalityFilter(partition, field, value string) string {
	return partitionFilter(partition) + " and " + field + " eq '" + escapeFilterValue(value) + "'"
}

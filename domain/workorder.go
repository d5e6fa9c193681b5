package domain

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// WorkOrderStatus values extend board statuses with blocked.
type WorkOrderStatus string

const (
	WorkOrderTodo       WorkOrderStatus = "todo"
	WorkOrderInProgress WorkOrderStatus = "in_progress"
	WorkOrderReview     WorkOrderStatus = "review"
	WorkOrderDone       WorkOrderStatus = "done"
	WorkOrderBlocked    WorkOrderStatus = "blocked"
)

func (s WorkOrderStatus) Valid() bool {
	switch s {
	case WorkOrderTodo, WorkOrderInProgress, WorkOrderReview, WorkOrderDone, WorkOrderBlocked:
		return true
	}
	return false
}

// WorkOrder is a delegated unit of work. ID is the natural key: caller
// supplied or generated, globally unique, never overwritten.
type WorkOrder struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Priority    TaskPriority    `json:"priority"`
	Status      WorkOrderStatus `json:"status"`
	Worker      string          `json:"worker"`
	Repo        string          `json:"repo,omitempty"`
	Acceptance  []string        `json:"acceptance"`
	Constraints []string        `json:"constraints"`
	Links       []string        `json:"links,omitempty"`
	CreatedAt   int64           `json:"createdAt"`
	UpdatedAt   int64           `json:"updatedAt"`
}

const base36Digits = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewWorkOrderID builds a generated work-order id of the form
// WO-<base36 millis>-<4 random base36 chars>, upper-cased.
func NewWorkOrderID(now time.Time) string {
	stamp := strconv.FormatInt(now.UnixMilli(), 36)
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = base36Digits[rand.IntN(len(base36Digits))]
	}
	return "WO-" + strings.ToUpper(stamp) + "-" + strings.ToUpper(string(suffix))
}

// CleanLines trims each item and drops blank entries. List fields on work
// orders are always stored normalized.
func CleanLines(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// NormalizeOptionalText trims an optional field, collapsing whitespace-only
// input to empty.
func NormalizeOptionalText(s string) string {
	return strings.TrimSpace(s)
}

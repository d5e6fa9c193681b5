package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/molty-assistant/second-brain/domain"
	"github.com/molty-assistant/second-brain/storage"
)

type workOrderCreateRequest struct {
	ID          string                 `json:"id,omitempty"`
	Title       string                 `json:"title"`
	Priority    domain.TaskPriority    `json:"priority,omitempty"`
	Status      domain.WorkOrderStatus `json:"status,omitempty"`
	Worker      string                 `json:"worker,omitempty"`
	Repo        string                 `json:"repo,omitempty"`
	Acceptance  []string               `json:"acceptance,omitempty"`
	Constraints []string               `json:"constraints,omitempty"`
	Links       []string               `json:"links,omitempty"`
}

func createWorkOrder(docs DocumentStore, auth Authenticator, rec *activityRecorder) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := authenticate(c, auth)
		if !ok {
			return nil
		}

		var req workOrderCreateRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		title := domain.NormalizeOptionalText(req.Title)
		if title == "" {
			return writeDomainError(c, domain.ValidationError{Field: "title", Reason: "required"})
		}
		if req.Priority == "" {
			req.Priority = domain.PriorityNext
		}
		if !req.Priority.Valid() {
			return writeDomainError(c, domain.ValidationError{Field: "priority", Reason: "unknown value"})
		}
		if req.Status == "" {
			req.Status = domain.WorkOrderTodo
		}
		if !req.Status.Valid() {
			return writeDomainError(c, domain.ValidationError{Field: "status", Reason: "unknown value"})
		}

		id := domain.NormalizeOptionalText(req.ID)
		if id == "" {
			id = domain.NewWorkOrderID(time.Now())
		}

		w := domain.WorkOrder{
			ID:          id,
			Title:       title,
			Priority:    req.Priority,
			Status:      req.Status,
			Worker:      domain.NormalizeOptionalText(req.Worker),
			Repo:        domain.NormalizeOptionalText(req.Repo),
			Acceptance:  domain.CleanLines(req.Acceptance),
			Constraints: domain.CleanLines(req.Constraints),
			Links:       domain.CleanLines(req.Links),
		}

		ctx := c.Request().Context()
		created, err := docs.CreateWorkOrder(ctx, w)
		if err != nil {
			return writeDomainError(c, err)
		}

		rec.record(ctx, domain.ActivityEvent{
			Actor:    userID,
			Action:   "workorder.create",
			Title:    "Created work order " + created.ID,
			Metadata: map[string]any{"id": created.ID, "worker": created.Worker},
		})

		return c.JSON(http.StatusCreated, created)
	}
}

func updateWorkOrder(docs DocumentStore, auth Authenticator, rec *activityRecorder) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := authenticate(c, auth)
		if !ok {
			return nil
		}
		id := c.Param("id")

		var patch storage.WorkOrderPatch
		if err := decodeBody(c, &patch); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if patch.Priority != nil && !patch.Priority.Valid() {
			return writeDomainError(c, domain.ValidationError{Field: "priority", Reason: "unknown value"})
		}
		if patch.Status != nil && !patch.Status.Valid() {
			return writeDomainError(c, domain.ValidationError{Field: "status", Reason: "unknown value"})
		}

		ctx := c.Request().Context()
		updated, err := docs.UpdateWorkOrder(ctx, id, patch)
		if err != nil {
			return writeDomainError(c, err)
		}

		rec.record(ctx, domain.ActivityEvent{
			Actor:    userID,
			Action:   "workorder.update",
			Title:    "Updated work order " + updated.ID,
			Metadata: map[string]any{"id": updated.ID, "status": string(updated.Status)},
		})

		return c.JSON(http.StatusOK, updated)
	}
}

func getWorkOrder(docs DocumentStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := authenticate(c, auth); !ok {
			return nil
		}
		id := c.Param("id")
		w, err := docs.GetWorkOrder(c.Request().Context(), id)
		if err != nil {
			return writeDomainError(c, err)
		}
		if w == nil {
			return writeDomainError(c, domain.NotFoundError{Kind: "work order", Key: id})
		}
		return c.JSON(http.StatusOK, w)
	}
}

func listWorkOrders(docs DocumentStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := authenticate(c, auth); !ok {
			return nil
		}
		limit, err := parseLimit(c)
		if err != nil {
			return writeDomainError(c, err)
		}
		orders, err := docs.ListWorkOrders(c.Request().Context(), storage.WorkOrderQuery{
			Status:   c.QueryParam("status"),
			Priority: c.QueryParam("priority"),
			Worker:   c.QueryParam("worker"),
			Limit:    limit,
		})
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(http.StatusOK, orders)
	}
}

package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/molty-assistant/second-brain/domain"
)

// Board task responses keep the success envelope the dashboard frontend
// expects.
type taskListResponse struct {
	Success bool          `json:"success"`
	Tasks   []domain.Task `json:"tasks"`
}

type taskResponse struct {
	Success bool        `json:"success"`
	Task    domain.Task `json:"task"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func getTasks(tasks TaskStore, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newSyncRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		_, ok := authenticate(c, auth)
		metrics.ObserveAuth(time.Since(authStart))
		if !ok {
			metrics.SetErrorStage("auth")
			return nil
		}

		fetchStart := time.Now()
		list, listErr := tasks.ListTasks(ctx)
		metrics.ObserveStore(time.Since(fetchStart))
		if listErr != nil {
			metrics.SetErrorStage("storage")
			err = writeDomainError(c, listErr)
			return err
		}
		metrics.SetBatchSize(len(list))

		if list == nil {
			list = []domain.Task{}
		}
		err = c.JSON(http.StatusOK, taskListResponse{Success: true, Tasks: list})
		return err
	}
}

func getTask(tasks TaskStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := authenticate(c, auth); !ok {
			return nil
		}
		t, err := tasks.GetTask(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(http.StatusOK, taskResponse{Success: true, Task: t})
	}
}

func createTask(tasks TaskStore, auth Authenticator, rec *activityRecorder) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := authenticate(c, auth)
		if !ok {
			return nil
		}

		var in domain.Task
		if err := decodeBody(c, &in); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		ctx := c.Request().Context()
		created, err := tasks.CreateTask(ctx, in)
		if err != nil {
			return writeDomainError(c, err)
		}

		rec.record(ctx, domain.ActivityEvent{
			Actor:    userID,
			Action:   "task.create",
			Title:    "Created task: " + created.Title,
			Metadata: map[string]any{"id": created.ID, "status": string(created.Status)},
		})

		return c.JSON(http.StatusCreated, taskResponse{Success: true, Task: created})
	}
}

func updateTask(tasks TaskStore, auth Authenticator, rec *activityRecorder) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := authenticate(c, auth)
		if !ok {
			return nil
		}
		id := c.Param("id")

		var patch domain.TaskPatch
		if err := decodeBody(c, &patch); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		ctx := c.Request().Context()
		updated, err := tasks.UpdateTask(ctx, id, patch)
		if err != nil {
			return writeDomainError(c, err)
		}

		rec.record(ctx, domain.ActivityEvent{
			Actor:    userID,
			Action:   "task.update",
			Title:    "Updated task: " + updated.Title,
			Metadata: map[string]any{"id": updated.ID, "status": string(updated.Status)},
		})

		return c.JSON(http.StatusOK, taskResponse{Success: true, Task: updated})
	}
}

func deleteTask(tasks TaskStore, auth Authenticator, rec *activityRecorder) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := authenticate(c, auth)
		if !ok {
			return nil
		}
		id := c.Param("id")

		ctx := c.Request().Context()
		if err := tasks.DeleteTask(ctx, id); err != nil {
			return writeDomainError(c, err)
		}

		rec.record(ctx, domain.ActivityEvent{
			Actor:    userID,
			Action:   "task.delete",
			Title:    "Deleted task " + id,
			Metadata: map[string]any{"id": id},
		})

		return c.JSON(http.StatusOK, successResponse{Success: true})
	}
}

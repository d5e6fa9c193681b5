package api

import (
	"net/http"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/molty-assistant/second-brain/domain"
)

// backlogExportRecord is one element of the workforce backlog export file.
// The export calls the natural key "id"; stored records call it "taskId".
type backlogExportRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AssignedTo  string `json:"assignedTo"`
	Status      string `json:"status"`
	Priority    string `json:"priority,omitempty"`
	CreatedBy   string `json:"createdBy,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	CompletedAt string `json:"completedAt,omitempty"`
	Output      string `json:"output,omitempty"`
	PR          string `json:"pr,omitempty"`
}

func (r backlogExportRecord) toDomain() domain.BacklogTask {
	return domain.BacklogTask{
		TaskID:      r.ID,
		Title:       r.Title,
		Description: r.Description,
		AssignedTo:  r.AssignedTo,
		Status:      r.Status,
		Priority:    r.Priority,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
		Output:      r.Output,
		PR:          r.PR,
	}
}

type syncResponse struct {
	Success  bool `json:"success"`
	Synced   int  `json:"synced"`
	Upserted int  `json:"upserted"`
}

func syncBacklog(docs DocumentStore, auth Authenticator, rec *activityRecorder, cfg Config, logger *log.Logger) echo.HandlerFunc {
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
		userID, ok := authenticate(c, auth)
		metrics.ObserveAuth(time.Since(authStart))
		if !ok {
			metrics.SetErrorStage("auth")
			return nil
		}

		// A missing or unreadable export is the workforce's problem, not
		// ours: the sync degrades to a no-op instead of failing the caller.
		raw, readErr := os.ReadFile(cfg.BacklogPath)
		if readErr != nil {
			metrics.SetErrorStage("upstream_file")
			logger.WithFields(log.Fields{
				"path":  cfg.BacklogPath,
				"error": readErr.Error(),
			}).Warn("backlog export unavailable; skipping sync")
			err = c.JSON(http.StatusOK, syncResponse{Success: true})
			return err
		}

		var records []backlogExportRecord
		if decodeErr := sonic.ConfigStd.Unmarshal(raw, &records); decodeErr != nil {
			metrics.SetErrorStage("decode_export")
			logger.WithFields(log.Fields{
				"path":  cfg.BacklogPath,
				"error": decodeErr.Error(),
			}).Warn("backlog export malformed; skipping sync")
			err = c.JSON(http.StatusOK, syncResponse{Success: true})
			return err
		}
		metrics.SetBatchSize(len(records))

		batch := make([]domain.BacklogTask, 0, len(records))
		for _, r := range records {
			t := r.toDomain()
			if vErr := t.Validate(); vErr != nil {
				metrics.SetErrorStage("validate")
				err = writeDomainError(c, vErr)
				return err
			}
			batch = append(batch, t)
		}

		storeStart := time.Now()
		upserted, syncErr := docs.SyncBacklog(ctx, batch)
		metrics.ObserveStore(time.Since(storeStart))
		if syncErr != nil {
			metrics.SetErrorStage("storage")
			err = writeDomainError(c, syncErr)
			return err
		}
		metrics.SetUpserted(upserted)

		rec.record(ctx, domain.ActivityEvent{
			Actor:  userID,
			Action: "backlog.sync",
			Title:  "Synced workforce backlog",
			Metadata: map[string]any{
				"synced":   len(batch),
				"upserted": upserted,
			},
		})

		err = c.JSON(http.StatusOK, syncResponse{Success: true, Synced: len(batch), Upserted: upserted})
		return err
	}
}

func listBacklog(docs DocumentStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := authenticate(c, auth); !ok {
			return nil
		}
		tasks, err := docs.ListBacklog(c.Request().Context(), c.QueryParam("status"), c.QueryParam("assignedTo"))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

type backlogStatusRequest struct {
	Status string `json:"status"`
}

func updateBacklogStatus(docs DocumentStore, auth Authenticator, rec *activityRecorder) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := authenticate(c, auth)
		if !ok {
			return nil
		}
		taskID := c.Param("taskId")

		var req backlogStatusRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if req.Status == "" {
			return writeDomainError(c, domain.ValidationError{Field: "status", Reason: "required"})
		}

		ctx := c.Request().Context()
		if err := docs.UpdateBacklogStatus(ctx, taskID, req.Status); err != nil {
			return writeDomainError(c, err)
		}

		rec.record(ctx, domain.ActivityEvent{
			Actor:    userID,
			Action:   "backlog.status",
			Title:    "Updated backlog task " + taskID,
			Metadata: map[string]any{"taskId": taskID, "status": req.Status},
		})

		return c.JSON(http.StatusOK, map[string]any{"success": true})
	}
}

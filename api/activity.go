package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/molty-assistant/second-brain/domain"
	"github.com/molty-assistant/second-brain/storage"
)

const activityDispatchTimeout = 5 * time.Second

// activityRecorder appends activity events after primary mutations. Dispatch
// is awaited so tests see a deterministic ordering, but every failure is
// downgraded to a warning: the mutation that triggered the event has already
// succeeded and stays succeeded.
type activityRecorder struct {
	docs   DocumentStore
	logger *log.Logger
}

func newActivityRecorder(docs DocumentStore, logger *log.Logger) *activityRecorder {
	return &activityRecorder{docs: docs, logger: logger}
}

func (r *activityRecorder) record(ctx context.Context, ev domain.ActivityEvent) {
	if r == nil || r.docs == nil {
		return
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, activityDispatchTimeout)
	defer cancel()

	if err := r.docs.AppendActivity(dispatchCtx, ev); err != nil {
		if r.logger != nil {
			r.logger.WithFields(log.Fields{
				"action": ev.Action,
				"actor":  ev.Actor,
				"error":  err.Error(),
			}).Warn("activity dispatch failed")
		}
	}
}

func listActivities(docs DocumentStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := authenticate(c, auth); !ok {
			return nil
		}
		limit, err := parseLimit(c)
		if err != nil {
			return writeDomainError(c, err)
		}
		after, err := parseMillis(c, "after")
		if err != nil {
			return writeDomainError(c, err)
		}
		before, err := parseMillis(c, "before")
		if err != nil {
			return writeDomainError(c, err)
		}

		events, err := docs.ListActivities(c.Request().Context(), storage.ActivityQuery{
			Actor:   c.QueryParam("actor"),
			Action:  c.QueryParam("action"),
			Project: c.QueryParam("project"),
			After:   after,
			Before:  before,
			Limit:   limit,
		})
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(http.StatusOK, events)
	}
}

package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/molty-assistant/second-brain/domain"
	"github.com/molty-assistant/second-brain/storage"
)

func upsertSchedule(docs DocumentStore, auth Authenticator, rec *activityRecorder) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := authenticate(c, auth)
		if !ok {
			return nil
		}

		var in domain.ScheduledTask
		if err := decodeBody(c, &in); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if err := in.Validate(); err != nil {
			return writeDomainError(c, err)
		}

		ctx := c.Request().Context()
		out, err := docs.UpsertScheduledTask(ctx, in)
		if err != nil {
			return writeDomainError(c, err)
		}

		rec.record(ctx, domain.ActivityEvent{
			Actor:   userID,
			Action:  "schedule.upsert",
			Title:   "Scheduled: " + out.Title,
			Project: out.Project,
			Metadata: map[string]any{
				"id":          out.ID,
				"cronJobId":   out.CronJobID,
				"scheduledAt": out.ScheduledAt,
			},
		})

		return c.JSON(http.StatusOK, out)
	}
}

// scheduleQueryFromRequest parses the filter parameters shared by the
// schedule listing endpoints.
func scheduleQueryFromRequest(c echo.Context) (storage.ScheduleQuery, error) {
	limit, err := parseLimit(c)
	if err != nil {
		return storage.ScheduleQuery{}, err
	}
	from, err := parseMillis(c, "from")
	if err != nil {
		return storage.ScheduleQuery{}, err
	}
	to, err := parseMillis(c, "to")
	if err != nil {
		return storage.ScheduleQuery{}, err
	}
	return storage.ScheduleQuery{
		Status:     c.QueryParam("status"),
		AssignedTo: c.QueryParam("assignedTo"),
		From:       from,
		To:         to,
		Limit:      limit,
	}, nil
}

func listSchedules(docs DocumentStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := authenticate(c, auth); !ok {
			return nil
		}
		q, err := scheduleQueryFromRequest(c)
		if err != nil {
			return writeDomainError(c, err)
		}
		tasks, err := docs.ListScheduledTasks(c.Request().Context(), q)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

func listSchedulesBetween(docs DocumentStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := authenticate(c, auth); !ok {
			return nil
		}
		q, err := scheduleQueryFromRequest(c)
		if err != nil {
			return writeDomainError(c, err)
		}
		start, err := parseMillis(c, "start")
		if err != nil {
			return writeDomainError(c, err)
		}
		end, err := parseMillis(c, "end")
		if err != nil {
			return writeDomainError(c, err)
		}
		if start == 0 || end == 0 {
			return writeDomainError(c, domain.ValidationError{Field: "start/end", Reason: "required"})
		}
		tasks, err := docs.ListScheduledBetween(c.Request().Context(), start, end, q)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

func listUpcomingSchedules(docs DocumentStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := authenticate(c, auth); !ok {
			return nil
		}
		q, err := scheduleQueryFromRequest(c)
		if err != nil {
			return writeDomainError(c, err)
		}
		from := q.From
		if from == 0 {
			from = time.Now().UnixMilli()
		}
		tasks, err := docs.ListUpcoming(c.Request().Context(), from, q)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

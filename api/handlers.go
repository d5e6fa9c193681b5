package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/molty-assistant/second-brain/domain"
)

const requestBodyMaxSize = 1 * 1024 * 1024 // 1 MiB

// Config carries handler settings that are not store state.
type Config struct {
	// BacklogPath is the JSON file the workforce drops its backlog export at.
	BacklogPath string
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, docs DocumentStore, tasks TaskStore, auth Authenticator, cfg Config, logger *log.Logger) {
	rec := newActivityRecorder(docs, logger)

	e.POST("/api/backlog/sync", syncBacklog(docs, auth, rec, cfg, logger))
	e.GET("/api/backlog", listBacklog(docs, auth))
	e.PATCH("/api/backlog/:taskId/status", updateBacklogStatus(docs, auth, rec))

	e.POST("/api/schedules", upsertSchedule(docs, auth, rec))
	e.GET("/api/schedules", listSchedules(docs, auth))
	e.GET("/api/schedules/between", listSchedulesBetween(docs, auth))
	e.GET("/api/schedules/upcoming", listUpcomingSchedules(docs, auth))

	e.POST("/api/work-orders", createWorkOrder(docs, auth, rec))
	e.PATCH("/api/work-orders/:id", updateWorkOrder(docs, auth, rec))
	e.GET("/api/work-orders/:id", getWorkOrder(docs, auth))
	e.GET("/api/work-orders", listWorkOrders(docs, auth))

	e.GET("/api/tasks", getTasks(tasks, auth, logger))
	e.POST("/api/tasks", createTask(tasks, auth, rec))
	e.GET("/api/tasks/:id", getTask(tasks, auth))
	e.PATCH("/api/tasks/:id", updateTask(tasks, auth, rec))
	e.DELETE("/api/tasks/:id", deleteTask(tasks, auth, rec))

	e.GET("/api/activities", listActivities(docs, auth))

	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// authenticate resolves the caller or writes a 401. The bool reports whether
// the handler may proceed.
func authenticate(c echo.Context, auth Authenticator) (string, bool) {
	userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		_ = c.String(http.StatusUnauthorized, err.Error())
		return "", false
	}
	return userID, true
}

// writeDomainError maps typed domain failures onto HTTP statuses. Anything
// unrecognized is a storage fault and surfaces as a 500.
func writeDomainError(c echo.Context, err error) error {
	var nf domain.NotFoundError
	if errors.As(err, &nf) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: nf.Error()})
	}
	var cf domain.ConflictError
	if errors.As(err, &cf) {
		return c.JSON(http.StatusConflict, errorResponse{Error: cf.Error()})
	}
	var ve domain.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: ve.Error()})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

type errorResponse struct {
	Error string `json:"error"`
}

// decodeBody decodes a JSON request body into dst, rejecting unknown fields
// and bodies over requestBodyMaxSize.
func decodeBody(c echo.Context, dst any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// parseLimit reads an optional limit query parameter. Zero means "use the
// collection default"; anything present must be a positive integer.
func parseLimit(c echo.Context) (int, error) {
	raw := strings.TrimSpace(c.QueryParam("limit"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, domain.ValidationError{Field: "limit", Reason: "must be a positive integer"}
	}
	return n, nil
}

// parseMillis reads an optional unix-millisecond query parameter.
func parseMillis(c echo.Context, name string) (int64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, domain.ValidationError{Field: name, Reason: "must be a unix-ms timestamp"}
	}
	return n, nil
}

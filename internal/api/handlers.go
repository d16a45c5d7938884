// Package api contains the HTTP handlers for the workflow service
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"docflow/backend/internal/auth"
	"docflow/backend/internal/services"
	"docflow/backend/pkg/models"
)

// Server holds the dependencies for the API server.
type Server struct {
	svc     *services.WorkflowService
	logger  services.Logger
	version string
}

// NewServer creates a new Server.
func NewServer(svc *services.WorkflowService, logger services.Logger, version string) *Server {
	return &Server{svc: svc, logger: logger, version: version}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	models.HealthStatus
	Timestamp time.Time `json:"timestamp"`
}

// HandleHealth reports service health. A degraded store yields 503.
// (GET /health)
func (s *Server) HandleHealth(c echo.Context) error {
	health := s.svc.Health(c.Request().Context(), s.version)
	status := http.StatusOK
	if health.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, HealthResponse{HealthStatus: health, Timestamp: time.Now().UTC()})
}

func actor(c echo.Context) *models.Actor {
	return auth.ActorFromContext(c.Request().Context())
}

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// writeError writes an RFC 7807 Problem Details JSON error response
func writeError(c echo.Context, status int, title, detail string) error {
	problem := ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	}
	// c.JSON keeps a content type that is already set.
	c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
	return c.JSON(status, problem)
}

var kindStatus = map[services.Kind]int{
	services.KindUnauthenticated: http.StatusUnauthorized,
	services.KindForbidden:       http.StatusForbidden,
	services.KindNotFound:        http.StatusNotFound,
	services.KindValidation:      http.StatusBadRequest,
	services.KindConflict:        http.StatusConflict,
	services.KindInternal:        http.StatusInternalServerError,
}

// fail maps a service error to its problem response. Internal causes are
// logged and never shown to the caller.
func (s *Server) fail(c echo.Context, err error) error {
	var se *services.Error
	if !errors.As(err, &se) {
		se = &services.Error{Kind: services.KindInternal, Msg: "internal error", Err: err}
	}
	status, ok := kindStatus[se.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Request().Method, "path", c.Request().URL.Path, "error", err)
	}
	return writeError(c, status, http.StatusText(status), se.Msg)
}

func badRequest(c echo.Context, detail string) error {
	return writeError(c, http.StatusBadRequest, http.StatusText(http.StatusBadRequest), detail)
}

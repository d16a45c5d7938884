package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"docflow/backend/pkg/models"
)

// ListWorkflows returns a list of all workflows
// (GET /api/v1/workflows)
func (s *Server) ListWorkflows(c echo.Context) error {
	workflows, err := s.svc.ListWorkflows(c.Request().Context(), actor(c))
	if err != nil {
		return s.fail(c, err)
	}
	if workflows == nil {
		workflows = []*models.Workflow{}
	}
	return c.JSON(http.StatusOK, workflows)
}

// CreateWorkflow stores a new workflow definition
// (POST /api/v1/workflows)
func (s *Server) CreateWorkflow(c echo.Context) error {
	var workflow models.Workflow
	if err := c.Bind(&workflow); err != nil {
		return badRequest(c, "invalid request body")
	}

	created, err := s.svc.CreateWorkflow(c.Request().Context(), actor(c), &workflow)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// GetWorkflow returns one workflow
// (GET /api/v1/workflows/:id)
func (s *Server) GetWorkflow(c echo.Context) error {
	workflow, err := s.svc.GetWorkflow(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, workflow)
}

// DeleteWorkflow removes a workflow with its statuses and audit trail
// (DELETE /api/v1/workflows/:id)
func (s *Server) DeleteWorkflow(c echo.Context) error {
	id := c.Param("id")
	if err := s.svc.DeleteWorkflow(c.Request().Context(), actor(c), id); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Workflow deleted", "id": id})
}

// RegisterHookRequest is the body of POST /api/v1/workflows/:id/hooks.
type RegisterHookRequest struct {
	CollectionName  string `json:"collection_name"`
	ProcessExisting bool   `json:"process_existing"`
}

// RegisterHook installs the workflow hook on a collection
// (POST /api/v1/workflows/:id/hooks)
func (s *Server) RegisterHook(c echo.Context) error {
	var req RegisterHookRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	added, err := s.svc.RegisterHook(c.Request().Context(), actor(c), c.Param("id"), req.CollectionName, req.ProcessExisting)
	if err != nil {
		return s.fail(c, err)
	}
	message := "Hook registered"
	if !added {
		message = "Hook already registered"
	}
	if req.ProcessExisting {
		message += ", processing existing documents in the background"
	}
	return c.JSON(http.StatusOK, map[string]any{"message": message, "registered": added})
}

// UnregisterHook removes the workflow hook from a collection
// (DELETE /api/v1/workflows/:id/hooks/:collection)
func (s *Server) UnregisterHook(c echo.Context) error {
	removed, err := s.svc.UnregisterHook(c.Request().Context(), actor(c), c.Param("id"), c.Param("collection"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"removed": removed})
}

// GetStepStatuses returns every step of a document with its status
// (GET /api/v1/workflow-status/:collection/:docId)
func (s *Server) GetStepStatuses(c echo.Context) error {
	views, err := s.svc.GetStatus(c.Request().Context(), actor(c), c.Param("collection"), c.Param("docId"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// TransitionRequest is the body of PATCH /api/v1/workflow-status/:collection/:docId.
type TransitionRequest struct {
	StepID     string        `json:"step_id"`
	StepStatus models.Status `json:"step_status"`
}

// TriggerTransition sets the status of one step
// (PATCH /api/v1/workflow-status/:collection/:docId)
func (s *Server) TriggerTransition(c echo.Context) error {
	var req TransitionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	result, err := s.svc.TriggerTransition(c.Request().Context(), actor(c),
		c.Param("collection"), c.Param("docId"), req.StepID, req.StepStatus)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ListAssignedSteps returns the steps assigned to the caller
// (GET /api/v1/assigned-steps)
func (s *Server) ListAssignedSteps(c echo.Context) error {
	steps, err := s.svc.ListAssignedSteps(c.Request().Context(), actor(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, steps)
}

// ListAudit returns the audit trail of a document
// (GET /api/v1/audit/:collection/:docId)
func (s *Server) ListAudit(c echo.Context) error {
	entries, err := s.svc.ListAudit(c.Request().Context(), actor(c), c.Param("collection"), c.Param("docId"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

// ListUsers returns users filtered by role
// (GET /api/v1/users?role=admin&role=staff)
func (s *Server) ListUsers(c echo.Context) error {
	var roles []models.Role
	for _, r := range c.QueryParams()["role"] {
		for _, part := range strings.Split(r, ",") {
			if part = strings.TrimSpace(part); part != "" {
				roles = append(roles, models.Role(part))
			}
		}
	}

	users, err := s.svc.ListUsers(c.Request().Context(), actor(c), roles...)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

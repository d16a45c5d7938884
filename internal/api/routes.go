package api

import "github.com/labstack/echo/v4"

// RegisterHandlers mounts the REST API on g. The group is expected to carry
// the authentication middleware; see auth.RequireAuth.
func RegisterHandlers(g *echo.Group, s *Server) {
	g.GET("/workflows", s.ListWorkflows)
	g.POST("/workflows", s.CreateWorkflow)
	g.GET("/workflows/:id", s.GetWorkflow)
	g.DELETE("/workflows/:id", s.DeleteWorkflow)
	g.POST("/workflows/:id/hooks", s.RegisterHook)
	g.DELETE("/workflows/:id/hooks/:collection", s.UnregisterHook)

	g.GET("/workflow-status/:collection/:docId", s.GetStepStatuses)
	g.PATCH("/workflow-status/:collection/:docId", s.TriggerTransition)
	g.GET("/assigned-steps", s.ListAssignedSteps)
	g.GET("/audit/:collection/:docId", s.ListAudit)
	g.GET("/users", s.ListUsers)

	g.GET("/collections/:collection/documents", s.ListDocuments)
	g.POST("/collections/:collection/documents", s.CreateDocument)
	g.GET("/collections/:collection/documents/:id", s.GetDocument)
	g.PATCH("/collections/:collection/documents/:id", s.UpdateDocument)
	g.DELETE("/collections/:collection/documents/:id", s.DeleteDocument)
}

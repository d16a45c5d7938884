// Package mcp exposes workflow operations as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"docflow/backend/internal/auth"
	"docflow/backend/internal/services"
	"docflow/backend/pkg/models"
)

// Workflows is the part of the workflow service the tools call.
type Workflows interface {
	GetStatus(ctx context.Context, actor *models.Actor, collection, docID string) ([]models.StepView, error)
	TriggerTransition(ctx context.Context, actor *models.Actor, collection, docID, stepID string, status models.Status) (*models.TransitionResult, error)
	ListAssignedSteps(ctx context.Context, actor *models.Actor) ([]models.AssignedStepView, error)
}

var _ Workflows = (*services.WorkflowService)(nil)

type Server struct {
	mcpServer *server.MCPServer
	workflows Workflows
}

func NewServer(workflows Workflows, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Docflow Workflows",
			version,
			server.WithToolCapabilities(true),
		),
		workflows: workflows,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"workflow_status",
			mcp.WithDescription("List the steps of a document's workflow with their current status"),
			mcp.WithString("collection", mcp.Required(), mcp.Description("The collection the document belongs to")),
			mcp.WithString("doc_id", mcp.Required(), mcp.Description("The ID of the document")),
		),
		s.handleWorkflowStatus,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"trigger_step",
			mcp.WithDescription("Set the status of one workflow step for a document"),
			mcp.WithString("collection", mcp.Required(), mcp.Description("The collection the document belongs to")),
			mcp.WithString("doc_id", mcp.Required(), mcp.Description("The ID of the document")),
			mcp.WithString("step_id", mcp.Required(), mcp.Description("The ID of the step")),
			mcp.WithString("step_status", mcp.Required(),
				mcp.Description("The new status of the step"),
				mcp.Enum(string(models.StatusPending), string(models.StatusApproved), string(models.StatusRejected)),
			),
		),
		s.handleTriggerStep,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"assigned_steps",
			mcp.WithDescription("List the document steps assigned to the caller"),
		),
		s.handleAssignedSteps,
	)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleWorkflowStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection, err := request.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	docID, err := request.RequireString("doc_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	views, err := s.workflows.GetStatus(ctx, auth.ActorFromContext(ctx), collection, docID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load workflow status: %v", err)), nil
	}
	return jsonResult(views)
}

func (s *Server) handleTriggerStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := make(map[string]string, 4)
	for _, name := range []string{"collection", "doc_id", "step_id", "step_status"} {
		v, err := request.RequireString(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		args[name] = v
	}

	result, err := s.workflows.TriggerTransition(ctx, auth.ActorFromContext(ctx),
		args["collection"], args["doc_id"], args["step_id"], models.Status(args["step_status"]))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to update step: %v", err)), nil
	}
	return jsonResult(result)
}

func (s *Server) handleAssignedSteps(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	steps, err := s.workflows.ListAssignedSteps(ctx, auth.ActorFromContext(ctx))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list assigned steps: %v", err)), nil
	}
	return jsonResult(steps)
}

// MountHTTPHandlers serves the streamable HTTP transport on /mcp and the SSE
// transport on /mcp/sse and /mcp/message. Tool calls see the request context,
// so an authentication middleware in front of mux provides the actor.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	streamable := server.NewStreamableHTTPServer(mcpServer, server.WithEndpointPath("/mcp"))
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.Handle("/mcp", streamable)
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}

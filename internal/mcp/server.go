// Package mcp exposes the tracker core as MCP tools over stdio so agent
// clients can list, file, and triage issues.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/omnitrack/omnitrack/internal/advisor"
	"github.com/omnitrack/omnitrack/internal/lifecycle"
	"github.com/omnitrack/omnitrack/internal/models"
	"github.com/omnitrack/omnitrack/internal/query"
	"github.com/omnitrack/omnitrack/internal/store"
)

// Advisor is the advisory capability the MCP tools depend on. It may be
// nil when no API key is configured.
type Advisor interface {
	Summarize(ctx context.Context, title, description string) string
	SuggestPriority(ctx context.Context, description string) models.Priority
}

// Server wraps the tracker data layer and exposes it as MCP tools.
type Server struct {
	store     store.Store
	lifecycle *lifecycle.Controller
	advisor   Advisor
}

// NewServer creates the MCP server wrapper.
func NewServer(s store.Store, adv Advisor) *Server {
	return &Server{
		store:     s,
		lifecycle: lifecycle.New(s),
		advisor:   adv,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("omnitrack", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listProjectsTool())
	srv.AddTool(s.listUsersTool())
	srv.AddTool(s.listIssuesTool())
	srv.AddTool(s.getIssueTool())
	srv.AddTool(s.createIssueTool())
	srv.AddTool(s.setStatusTool())
	srv.AddTool(s.assignIssueTool())
	srv.AddTool(s.dashboardTool())
	srv.AddTool(s.suggestPriorityTool())
	srv.AddTool(s.summarizeIssueTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// track_list_projects
func (s *Server) listProjectsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("track_list_projects",
		mcp.WithDescription("List all projects. Returns a JSON array with id, name, code (the ticket-id prefix), description, owner, and members."),
	)
	return tool, s.handleListProjects
}

func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list projects: %v", err)), nil
	}

	type projectOut struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Code        string   `json:"code"`
		Description string   `json:"description"`
		OwnerID     string   `json:"owner_id"`
		Members     []string `json:"members"`
	}

	out := make([]projectOut, len(projects))
	for i, p := range projects {
		out[i] = projectOut{
			ID:          p.ID,
			Name:        p.Name,
			Code:        p.Code,
			Description: p.Description,
			OwnerID:     p.OwnerID,
			Members:     p.Members,
		}
	}
	return jsonResult(out)
}

// track_list_users
func (s *Server) listUsersTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("track_list_users",
		mcp.WithDescription("List all users. Returns a JSON array with id, name, email, and role."),
	)
	return tool, s.handleListUsers
}

func (s *Server) handleListUsers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list users: %v", err)), nil
	}

	type userOut struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}

	out := make([]userOut, len(users))
	for i, u := range users {
		out[i] = userOut{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
	}
	return jsonResult(out)
}

// track_list_issues
func (s *Server) listIssuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("track_list_issues",
		mcp.WithDescription("List issues, optionally filtered. All filters combine with AND. Statuses: New, In Progress, In Review, Resolved, Closed, Reopened. Priorities: Critical, High, Medium, Low. Types: Bug, Feature Request, Task, Enhancement."),
		mcp.WithString("search", mcp.Description("Case-insensitive substring match over ticket id and title")),
		mcp.WithString("status", mcp.Description("Status filter")),
		mcp.WithString("priority", mcp.Description("Priority filter")),
		mcp.WithString("type", mcp.Description("Issue type filter")),
		mcp.WithString("project", mcp.Description("Project code to filter by")),
	)
	return tool, s.handleListIssues
}

func (s *Server) handleListIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	criteria := query.Criteria{
		Search:   request.GetString("search", ""),
		Status:   request.GetString("status", ""),
		Priority: request.GetString("priority", ""),
		Type:     request.GetString("type", ""),
	}

	if code := request.GetString("project", ""); code != "" {
		p, err := s.store.GetProjectByCode(ctx, code)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("project not found: %s", code)), nil
		}
		criteria.ProjectID = p.ID
	}

	issues, err := s.store.ListIssues(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list issues: %v", err)), nil
	}
	return jsonResult(query.Filter(issues, criteria))
}

// track_get_issue
func (s *Server) getIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("track_get_issue",
		mcp.WithDescription("Get a single issue by ticket id (e.g. CORE-001). Returns the full issue including bug reproduction details when present."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Ticket id")),
	)
	return tool, s.handleGetIssue
}

func (s *Server) handleGetIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	issue, err := s.store.GetIssue(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("issue not found: %s", id)), nil
	}
	return jsonResult(issue)
}

// track_create_issue
func (s *Server) createIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("track_create_issue",
		mcp.WithDescription("Create a new issue in a project. The ticket id is generated from the project code. Status starts as New."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project code (e.g. CORE)")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Issue title")),
		mcp.WithString("description", mcp.Required(), mcp.Description("Issue description")),
		mcp.WithString("reporter", mcp.Required(), mcp.Description("Reporting user id")),
		mcp.WithString("type", mcp.Description("Issue type: Bug, Feature Request, Task, Enhancement (default Task)")),
		mcp.WithString("priority", mcp.Description("Priority: Critical, High, Medium, Low (default Medium)")),
		mcp.WithString("severity", mcp.Description("Severity: Blocker, Major, Minor, Trivial (default Minor)")),
		mcp.WithString("assignee", mcp.Description("Assignee user id")),
	)
	return tool, s.handleCreateIssue
}

func (s *Server) handleCreateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project"), nil
	}
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}
	description, err := request.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: description"), nil
	}
	reporter, err := request.RequireString("reporter")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: reporter"), nil
	}

	p, err := s.store.GetProjectByCode(ctx, code)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("project not found: %s", code)), nil
	}

	draft := &models.Issue{
		Title:       title,
		Description: description,
		ProjectID:   p.ID,
		Type:        models.IssueType(request.GetString("type", string(models.IssueTypeTask))),
		Priority:    models.Priority(request.GetString("priority", string(models.PriorityMedium))),
		Severity:    models.Severity(request.GetString("severity", string(models.SeverityMinor))),
		AssigneeID:  request.GetString("assignee", ""),
	}
	if err := s.store.CreateIssue(ctx, draft, reporter); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create issue: %v", err)), nil
	}
	return jsonResult(draft)
}

// track_set_status
func (s *Server) setStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("track_set_status",
		mcp.WithDescription("Set an issue's status. Any status may be set from any other; only values outside the enumeration are rejected."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Ticket id")),
		mcp.WithString("status", mcp.Required(), mcp.Description("New status: New, In Progress, In Review, Resolved, Closed, Reopened")),
	)
	return tool, s.handleSetStatus
}

func (s *Server) handleSetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	status, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: status"), nil
	}

	issue, err := s.lifecycle.SetStatus(ctx, id, models.IssueStatus(status))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to set status: %v", err)), nil
	}
	return jsonResult(issue)
}

// track_assign_issue
func (s *Server) assignIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("track_assign_issue",
		mcp.WithDescription("Assign an issue to a user, or clear the assignee by passing an empty assignee."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Ticket id")),
		mcp.WithString("assignee", mcp.Description("Assignee user id; empty to unassign")),
	)
	return tool, s.handleAssignIssue
}

func (s *Server) handleAssignIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	issue, err := s.lifecycle.Assign(ctx, id, request.GetString("assignee", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to assign issue: %v", err)), nil
	}
	return jsonResult(issue)
}

// track_dashboard_stats
func (s *Server) dashboardTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("track_dashboard_stats",
		mcp.WithDescription("Dashboard aggregates: total, open, critical, resolved counts plus per-status and per-project breakdowns."),
	)
	return tool, s.handleDashboard
}

func (s *Server) handleDashboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issues, err := s.store.ListIssues(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list issues: %v", err)), nil
	}
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list projects: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"stats":     query.Stats(issues),
		"byStatus":  query.GroupByStatus(issues),
		"byProject": query.GroupByProject(issues, projects),
	})
}

// track_suggest_priority
func (s *Server) suggestPriorityTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("track_suggest_priority",
		mcp.WithDescription("Suggest a priority (Critical, High, Medium, Low) for an issue description. Falls back to Medium when the advisory service is unavailable."),
		mcp.WithString("description", mcp.Required(), mcp.Description("Issue description to triage")),
	)
	return tool, s.handleSuggestPriority
}

func (s *Server) handleSuggestPriority(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	description, err := request.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: description"), nil
	}

	priority := advisor.PriorityFallback
	if s.advisor != nil {
		priority = s.advisor.SuggestPriority(ctx, description)
	}
	return jsonResult(map[string]string{"priority": string(priority)})
}

// track_summarize_issue
func (s *Server) summarizeIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("track_summarize_issue",
		mcp.WithDescription("Generate a one-sentence manager-facing summary of an issue. Falls back to a fixed message when the advisory service is unavailable."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Ticket id")),
	)
	return tool, s.handleSummarizeIssue
}

func (s *Server) handleSummarizeIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	issue, err := s.store.GetIssue(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("issue not found: %s", id)), nil
	}

	summary := advisor.SummaryFallback
	if s.advisor != nil {
		summary = s.advisor.Summarize(ctx, issue.Title, issue.Description)
	}
	return jsonResult(map[string]string{"summary": summary})
}

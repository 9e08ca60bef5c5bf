package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnitrack/omnitrack/internal/advisor"
	"github.com/omnitrack/omnitrack/internal/models"
	"github.com/omnitrack/omnitrack/internal/store"
)

// fakeAdvisor returns canned advisory values.
type fakeAdvisor struct {
	summary  string
	priority models.Priority
}

func (f *fakeAdvisor) Summarize(ctx context.Context, title, description string) string {
	return f.summary
}

func (f *fakeAdvisor) SuggestPriority(ctx context.Context, description string) models.Priority {
	return f.priority
}

func newTestServer(t *testing.T, adv Advisor) *Server {
	t.Helper()

	s, err := store.NewSQLiteStore(store.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Seed(ctx,
		[]*models.User{
			{ID: "u1", Name: "Alice", Email: "a@example.com", Role: models.RoleAdmin},
			{ID: "u2", Name: "Bob", Email: "b@example.com", Role: models.RoleEngineer},
		},
		[]*models.Project{
			{ID: "p1", Name: "Core", Code: "CORE", OwnerID: "u1", Members: []string{"u1", "u2"}},
		},
		nil,
	))

	return NewServer(s, adv)
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	require.NoError(t, json.Unmarshal([]byte(text), target), "result text: %s", text)
}

func createIssueViaTool(t *testing.T, s *Server, args map[string]any) map[string]any {
	t.Helper()
	result, err := s.handleCreateIssue(context.Background(), callToolReq("track_create_issue", args))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	var issue map[string]any
	resultJSON(t, result, &issue)
	return issue
}

func TestMCPServer_RegistersTools(t *testing.T) {
	s := newTestServer(t, nil)
	srv := s.MCPServer()
	assert.NotNil(t, srv)
}

func TestHandleListProjects(t *testing.T) {
	s := newTestServer(t, nil)

	result, err := s.handleListProjects(context.Background(), callToolReq("track_list_projects", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var projects []map[string]any
	resultJSON(t, result, &projects)
	require.Len(t, projects, 1)
	assert.Equal(t, "CORE", projects[0]["code"])
	assert.Equal(t, "u1", projects[0]["owner_id"])
}

func TestHandleListUsers(t *testing.T) {
	s := newTestServer(t, nil)

	result, err := s.handleListUsers(context.Background(), callToolReq("track_list_users", nil))
	require.NoError(t, err)

	var users []map[string]any
	resultJSON(t, result, &users)
	require.Len(t, users, 2)
	assert.Equal(t, "Admin", users[0]["role"])
}

func TestHandleCreateIssue(t *testing.T) {
	s := newTestServer(t, nil)

	issue := createIssueViaTool(t, s, map[string]any{
		"project":     "CORE",
		"title":       "Crash on login",
		"description": "The app crashes.",
		"reporter":    "u1",
		"type":        "Bug",
		"priority":    "Critical",
		"severity":    "Blocker",
		"assignee":    "u2",
	})

	assert.Equal(t, "CORE-001", issue["ID"])
	assert.Equal(t, "New", issue["Status"])
	assert.Equal(t, "u2", issue["AssigneeID"])
	assert.NotNil(t, issue["Bug"], "bug issues carry a bug block")

	t.Run("defaults", func(t *testing.T) {
		issue := createIssueViaTool(t, s, map[string]any{
			"project":     "CORE",
			"title":       "Routine work",
			"description": "d",
			"reporter":    "u1",
		})
		assert.Equal(t, "CORE-002", issue["ID"])
		assert.Equal(t, "Task", issue["Type"])
		assert.Equal(t, "Medium", issue["Priority"])
		assert.Equal(t, "Minor", issue["Severity"])
	})

	t.Run("unknown project", func(t *testing.T) {
		result, err := s.handleCreateIssue(context.Background(), callToolReq("track_create_issue", map[string]any{
			"project": "GONE", "title": "t", "description": "d", "reporter": "u1",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "project not found")
	})

	t.Run("missing required parameter", func(t *testing.T) {
		result, err := s.handleCreateIssue(context.Background(), callToolReq("track_create_issue", map[string]any{
			"project": "CORE",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestHandleListIssues(t *testing.T) {
	s := newTestServer(t, nil)

	createIssueViaTool(t, s, map[string]any{
		"project": "CORE", "title": "Crash on login", "description": "d",
		"reporter": "u1", "type": "Bug", "priority": "Critical",
	})
	createIssueViaTool(t, s, map[string]any{
		"project": "CORE", "title": "Dark mode", "description": "d",
		"reporter": "u2", "type": "Enhancement",
	})

	t.Run("all", func(t *testing.T) {
		result, err := s.handleListIssues(context.Background(), callToolReq("track_list_issues", nil))
		require.NoError(t, err)
		var issues []map[string]any
		resultJSON(t, result, &issues)
		require.Len(t, issues, 2)
		assert.Equal(t, "CORE-002", issues[0]["ID"], "newest first")
	})

	t.Run("conjunctive filters", func(t *testing.T) {
		result, err := s.handleListIssues(context.Background(), callToolReq("track_list_issues", map[string]any{
			"type": "Bug", "priority": "Critical",
		}))
		require.NoError(t, err)
		var issues []map[string]any
		resultJSON(t, result, &issues)
		require.Len(t, issues, 1)
		assert.Equal(t, "CORE-001", issues[0]["ID"])
	})

	t.Run("search", func(t *testing.T) {
		result, err := s.handleListIssues(context.Background(), callToolReq("track_list_issues", map[string]any{
			"search": "crash",
		}))
		require.NoError(t, err)
		var issues []map[string]any
		resultJSON(t, result, &issues)
		assert.Len(t, issues, 1)
	})

	t.Run("unknown project code", func(t *testing.T) {
		result, err := s.handleListIssues(context.Background(), callToolReq("track_list_issues", map[string]any{
			"project": "GONE",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestHandleGetIssue(t *testing.T) {
	s := newTestServer(t, nil)
	created := createIssueViaTool(t, s, map[string]any{
		"project": "CORE", "title": "t", "description": "d", "reporter": "u1",
	})

	result, err := s.handleGetIssue(context.Background(), callToolReq("track_get_issue", map[string]any{
		"id": created["ID"],
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var issue map[string]any
	resultJSON(t, result, &issue)
	assert.Equal(t, created["ID"], issue["ID"])

	t.Run("not found", func(t *testing.T) {
		result, err := s.handleGetIssue(context.Background(), callToolReq("track_get_issue", map[string]any{
			"id": "CORE-999",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestHandleSetStatus(t *testing.T) {
	s := newTestServer(t, nil)
	created := createIssueViaTool(t, s, map[string]any{
		"project": "CORE", "title": "t", "description": "d", "reporter": "u1",
	})
	id := created["ID"].(string)

	result, err := s.handleSetStatus(context.Background(), callToolReq("track_set_status", map[string]any{
		"id": id, "status": "Closed",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var issue map[string]any
	resultJSON(t, result, &issue)
	assert.Equal(t, "Closed", issue["Status"])

	// Straight back from Closed to New is allowed.
	result, err = s.handleSetStatus(context.Background(), callToolReq("track_set_status", map[string]any{
		"id": id, "status": "New",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	t.Run("invalid status", func(t *testing.T) {
		result, err := s.handleSetStatus(context.Background(), callToolReq("track_set_status", map[string]any{
			"id": id, "status": "Archived",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestHandleAssignIssue(t *testing.T) {
	s := newTestServer(t, nil)
	created := createIssueViaTool(t, s, map[string]any{
		"project": "CORE", "title": "t", "description": "d", "reporter": "u1",
	})
	id := created["ID"].(string)

	result, err := s.handleAssignIssue(context.Background(), callToolReq("track_assign_issue", map[string]any{
		"id": id, "assignee": "u2",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var issue map[string]any
	resultJSON(t, result, &issue)
	assert.Equal(t, "u2", issue["AssigneeID"])

	t.Run("unassign", func(t *testing.T) {
		result, err := s.handleAssignIssue(context.Background(), callToolReq("track_assign_issue", map[string]any{
			"id": id,
		}))
		require.NoError(t, err)
		require.False(t, result.IsError)
		resultJSON(t, result, &issue)
		assert.Equal(t, "", issue["AssigneeID"])
	})

	t.Run("unknown assignee", func(t *testing.T) {
		result, err := s.handleAssignIssue(context.Background(), callToolReq("track_assign_issue", map[string]any{
			"id": id, "assignee": "u9",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestHandleDashboard(t *testing.T) {
	s := newTestServer(t, nil)
	createIssueViaTool(t, s, map[string]any{
		"project": "CORE", "title": "a", "description": "d", "reporter": "u1", "priority": "Critical",
	})

	result, err := s.handleDashboard(context.Background(), callToolReq("track_dashboard_stats", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out struct {
		Stats struct {
			Total    int `json:"total"`
			Open     int `json:"open"`
			Critical int `json:"critical"`
		} `json:"stats"`
		ByStatus  map[string]int `json:"byStatus"`
		ByProject []struct {
			ProjectCode string `json:"projectCode"`
			Count       int    `json:"count"`
		} `json:"byProject"`
	}
	resultJSON(t, result, &out)
	assert.Equal(t, 1, out.Stats.Total)
	assert.Equal(t, 1, out.Stats.Critical)
	assert.Equal(t, 1, out.ByStatus["New"])
	require.Len(t, out.ByProject, 1)
	assert.Equal(t, "CORE", out.ByProject[0].ProjectCode)
}

func TestHandleSuggestPriority(t *testing.T) {
	t.Run("with advisor", func(t *testing.T) {
		s := newTestServer(t, &fakeAdvisor{priority: models.PriorityHigh})
		result, err := s.handleSuggestPriority(context.Background(), callToolReq("track_suggest_priority", map[string]any{
			"description": "Data loss on save",
		}))
		require.NoError(t, err)

		var out map[string]string
		resultJSON(t, result, &out)
		assert.Equal(t, "High", out["priority"])
	})

	t.Run("nil advisor falls back", func(t *testing.T) {
		s := newTestServer(t, nil)
		result, err := s.handleSuggestPriority(context.Background(), callToolReq("track_suggest_priority", map[string]any{
			"description": "d",
		}))
		require.NoError(t, err)

		var out map[string]string
		resultJSON(t, result, &out)
		assert.Equal(t, string(advisor.PriorityFallback), out["priority"])
	})
}

func TestHandleSummarizeIssue(t *testing.T) {
	t.Run("with advisor", func(t *testing.T) {
		s := newTestServer(t, &fakeAdvisor{summary: "Login is broken."})
		created := createIssueViaTool(t, s, map[string]any{
			"project": "CORE", "title": "t", "description": "d", "reporter": "u1",
		})

		result, err := s.handleSummarizeIssue(context.Background(), callToolReq("track_summarize_issue", map[string]any{
			"id": created["ID"],
		}))
		require.NoError(t, err)

		var out map[string]string
		resultJSON(t, result, &out)
		assert.Equal(t, "Login is broken.", out["summary"])
	})

	t.Run("nil advisor falls back", func(t *testing.T) {
		s := newTestServer(t, nil)
		created := createIssueViaTool(t, s, map[string]any{
			"project": "CORE", "title": "t", "description": "d", "reporter": "u1",
		})

		result, err := s.handleSummarizeIssue(context.Background(), callToolReq("track_summarize_issue", map[string]any{
			"id": created["ID"],
		}))
		require.NoError(t, err)

		var out map[string]string
		resultJSON(t, result, &out)
		assert.Equal(t, advisor.SummaryFallback, out["summary"])
	})

	t.Run("missing issue", func(t *testing.T) {
		s := newTestServer(t, nil)
		result, err := s.handleSummarizeIssue(context.Background(), callToolReq("track_summarize_issue", map[string]any{
			"id": "CORE-999",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

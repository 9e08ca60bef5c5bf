package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/omnitrack/omnitrack/internal/advisor"
	"github.com/omnitrack/omnitrack/internal/apperrors"
	"github.com/omnitrack/omnitrack/internal/lifecycle"
	"github.com/omnitrack/omnitrack/internal/models"
	"github.com/omnitrack/omnitrack/internal/query"
	"github.com/omnitrack/omnitrack/internal/store"
)

// Advisor is the advisory capability the API depends on. Both methods
// degrade to fallback values internally and never fail.
type Advisor interface {
	Summarize(ctx context.Context, title, description string) string
	SuggestPriority(ctx context.Context, description string) models.Priority
}

// Server provides the REST API handlers.
type Server struct {
	store     store.Store
	lifecycle *lifecycle.Controller
	advisor   Advisor
}

// NewServer creates a new API server. The advisor may be nil when no API
// key is configured; advisory endpoints then serve the fallback values.
func NewServer(s store.Store, adv Advisor) *Server {
	return &Server{
		store:     s,
		lifecycle: lifecycle.New(s),
		advisor:   adv,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/users", s.listUsers)
	mux.HandleFunc("GET /api/v1/projects", s.listProjects)
	mux.HandleFunc("GET /api/v1/projects/{id}", s.getProject)

	mux.HandleFunc("GET /api/v1/issues", s.listIssues)
	mux.HandleFunc("POST /api/v1/issues", s.createIssue)
	mux.HandleFunc("GET /api/v1/issues/{id}", s.getIssue)
	mux.HandleFunc("PUT /api/v1/issues/{id}", s.editIssue)
	mux.HandleFunc("POST /api/v1/issues/{id}/status", s.setStatus)
	mux.HandleFunc("POST /api/v1/issues/{id}/assignee", s.assign)
	mux.HandleFunc("POST /api/v1/issues/{id}/summary", s.summarizeIssue)

	mux.HandleFunc("GET /api/v1/dashboard", s.dashboard)

	mux.HandleFunc("POST /api/v1/advice/priority", s.suggestPriority)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error to its HTTP status via the apperrors taxonomy.
func writeError(w http.ResponseWriter, err error) {
	status := apperrors.StatusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Warn("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// --- Users and projects ---

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.store.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// --- Issues ---

func (s *Server) listIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := s.store.ListIssues(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	criteria := query.Criteria{
		Search:    q.Get("search"),
		Status:    q.Get("status"),
		Priority:  q.Get("priority"),
		Type:      q.Get("type"),
		ProjectID: q.Get("project"),
	}
	filtered := query.Filter(issues, criteria)
	if filtered == nil {
		filtered = []*models.Issue{}
	}
	writeJSON(w, http.StatusOK, filtered)
}

// createIssueRequest is the JSON body for POST /api/v1/issues.
type createIssueRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	ProjectID   string             `json:"project_id"`
	Type        string             `json:"type"`
	Priority    string             `json:"priority"`
	Severity    string             `json:"severity"`
	ReporterID  string             `json:"reporter_id"`
	AssigneeID  string             `json:"assignee_id"`
	Labels      []string           `json:"labels"`
	Bug         *models.BugDetails `json:"bug"`
}

func (s *Server) createIssue(w http.ResponseWriter, r *http.Request) {
	var req createIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Validation("invalid JSON"))
		return
	}

	draft := &models.Issue{
		Title:       req.Title,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		Type:        models.IssueType(req.Type),
		Priority:    models.Priority(req.Priority),
		Severity:    models.Severity(req.Severity),
		AssigneeID:  req.AssigneeID,
		Labels:      req.Labels,
		Bug:         req.Bug,
	}
	if err := s.store.CreateIssue(r.Context(), draft, req.ReporterID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, draft)
}

func (s *Server) getIssue(w http.ResponseWriter, r *http.Request) {
	issue, err := s.store.GetIssue(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

// editIssueRequest is the JSON body for PUT /api/v1/issues/{id}. Absent
// fields leave the stored value unchanged.
type editIssueRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Priority    *string            `json:"priority"`
	Severity    *string            `json:"severity"`
	Labels      *[]string          `json:"labels"`
	Bug         *models.BugDetails `json:"bug"`
}

func (s *Server) editIssue(w http.ResponseWriter, r *http.Request) {
	var req editIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Validation("invalid JSON"))
		return
	}

	patch := lifecycle.Patch{
		Title:       req.Title,
		Description: req.Description,
		Labels:      req.Labels,
		Bug:         req.Bug,
	}
	if req.Priority != nil {
		p := models.Priority(*req.Priority)
		patch.Priority = &p
	}
	if req.Severity != nil {
		sv := models.Severity(*req.Severity)
		patch.Severity = &sv
	}

	issue, err := s.lifecycle.Edit(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Validation("invalid JSON"))
		return
	}

	issue, err := s.lifecycle.SetStatus(r.Context(), r.PathValue("id"), models.IssueStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) assign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssigneeID string `json:"assignee_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Validation("invalid JSON"))
		return
	}

	issue, err := s.lifecycle.Assign(r.Context(), r.PathValue("id"), req.AssigneeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

// --- Dashboard ---

type dashboardResponse struct {
	Stats     query.DashboardStats       `json:"stats"`
	ByStatus  map[models.IssueStatus]int `json:"byStatus"`
	ByProject []query.ProjectCount       `json:"byProject"`
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	issues, err := s.store.ListIssues(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Stats:     query.Stats(issues),
		ByStatus:  query.GroupByStatus(issues),
		ByProject: query.GroupByProject(issues, projects),
	})
}

// --- Advisory ---

// Advisory endpoints always succeed: failures inside the advisor degrade
// to the documented fallback values and are never reported as errors.

func (s *Server) summarizeIssue(w http.ResponseWriter, r *http.Request) {
	issue, err := s.store.GetIssue(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	summary := advisorSummary(r.Context(), s.advisor, issue.Title, issue.Description)
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *Server) suggestPriority(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Validation("invalid JSON"))
		return
	}

	priority := advisorPriority(r.Context(), s.advisor, req.Description)
	writeJSON(w, http.StatusOK, map[string]string{"priority": string(priority)})
}

func advisorSummary(ctx context.Context, adv Advisor, title, description string) string {
	if adv == nil {
		return advisor.SummaryFallback
	}
	return adv.Summarize(ctx, title, description)
}

func advisorPriority(ctx context.Context, adv Advisor, description string) models.Priority {
	if adv == nil {
		return advisor.PriorityFallback
	}
	return adv.SuggestPriority(ctx, description)
}

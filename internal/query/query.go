// Package query implements the read-side filter and aggregation logic.
// Everything here recomputes from the live collection on each call; the
// store is small and mutations are infrequent, so there is no caching.
package query

import (
	"strings"

	"github.com/omnitrack/omnitrack/internal/models"
)

// All is the wildcard criteria value that matches every issue.
const All = "All"

// Criteria selects issues for list views. Zero or "All" values match
// everything; set values are combined with logical AND.
type Criteria struct {
	Search    string // case-insensitive substring over id and title
	Status    string // exact status or All
	Priority  string // exact priority or All
	Type      string // exact type or All
	ProjectID string // exact project id or All
}

func matchesAll(v string) bool { return v == "" || v == All }

// Filter returns the issues matching the criteria, preserving input order.
func Filter(issues []*models.Issue, c Criteria) []*models.Issue {
	search := strings.ToLower(c.Search)
	var out []*models.Issue
	for _, issue := range issues {
		if search != "" &&
			!strings.Contains(strings.ToLower(issue.Title), search) &&
			!strings.Contains(strings.ToLower(issue.ID), search) {
			continue
		}
		if !matchesAll(c.Status) && string(issue.Status) != c.Status {
			continue
		}
		if !matchesAll(c.Priority) && string(issue.Priority) != c.Priority {
			continue
		}
		if !matchesAll(c.Type) && string(issue.Type) != c.Type {
			continue
		}
		if !matchesAll(c.ProjectID) && issue.ProjectID != c.ProjectID {
			continue
		}
		out = append(out, issue)
	}
	return out
}

// DashboardStats holds the headline counts for the dashboard.
type DashboardStats struct {
	Total    int `json:"total"`
	Open     int `json:"open"`
	Critical int `json:"critical"`
	Resolved int `json:"resolved"` // all-time; no date bound is applied
}

// Stats computes the dashboard counters over the given issues.
func Stats(issues []*models.Issue) DashboardStats {
	var s DashboardStats
	s.Total = len(issues)
	for _, issue := range issues {
		if issue.Status != models.IssueStatusResolved && issue.Status != models.IssueStatusClosed {
			s.Open++
		}
		if issue.Priority == models.PriorityCritical {
			s.Critical++
		}
		if issue.Status == models.IssueStatusResolved {
			s.Resolved++
		}
	}
	return s
}

// GroupByStatus counts issues per status. Every enumerated status is
// present in the result, including zero counts.
func GroupByStatus(issues []*models.Issue) map[models.IssueStatus]int {
	counts := make(map[models.IssueStatus]int, len(models.IssueStatuses))
	for _, st := range models.IssueStatuses {
		counts[st] = 0
	}
	for _, issue := range issues {
		counts[issue.Status]++
	}
	return counts
}

// ProjectCount pairs a project code with its issue count.
type ProjectCount struct {
	ProjectCode string `json:"projectCode"`
	Count       int    `json:"count"`
}

// GroupByProject counts issues per project, in the given projects' order.
func GroupByProject(issues []*models.Issue, projects []*models.Project) []ProjectCount {
	byID := make(map[string]int, len(projects))
	for _, issue := range issues {
		byID[issue.ProjectID]++
	}
	out := make([]ProjectCount, 0, len(projects))
	for _, p := range projects {
		out = append(out, ProjectCount{ProjectCode: p.Code, Count: byID[p.ID]})
	}
	return out
}

package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnitrack/omnitrack/internal/models"
)

func fixtureIssues() []*models.Issue {
	return []*models.Issue{
		{ID: "CORE-003", Title: "Login crash", ProjectID: "p1", Type: models.IssueTypeBug,
			Priority: models.PriorityCritical, Status: models.IssueStatusInProgress},
		{ID: "CORE-002", Title: "Dark mode", ProjectID: "p1", Type: models.IssueTypeFeature,
			Priority: models.PriorityLow, Status: models.IssueStatusNew},
		{ID: "MOBI-001", Title: "Crash on rotate", ProjectID: "p2", Type: models.IssueTypeBug,
			Priority: models.PriorityHigh, Status: models.IssueStatusResolved},
		{ID: "CORE-001", Title: "Update deps", ProjectID: "p1", Type: models.IssueTypeTask,
			Priority: models.PriorityMedium, Status: models.IssueStatusClosed},
	}
}

func ids(issues []*models.Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.ID
	}
	return out
}

func TestFilter_Identity(t *testing.T) {
	issues := fixtureIssues()

	t.Run("zero criteria", func(t *testing.T) {
		got := Filter(issues, Criteria{})
		assert.Equal(t, ids(issues), ids(got), "order preserved")
	})

	t.Run("explicit All", func(t *testing.T) {
		got := Filter(issues, Criteria{Status: All, Priority: All, Type: All, ProjectID: All})
		assert.Len(t, got, len(issues))
	})
}

func TestFilter_Search(t *testing.T) {
	issues := fixtureIssues()

	t.Run("matches title case-insensitively", func(t *testing.T) {
		got := Filter(issues, Criteria{Search: "CRASH"})
		assert.Equal(t, []string{"CORE-003", "MOBI-001"}, ids(got))
	})

	t.Run("matches ticket id", func(t *testing.T) {
		got := Filter(issues, Criteria{Search: "mobi"})
		assert.Equal(t, []string{"MOBI-001"}, ids(got))
	})

	t.Run("no match", func(t *testing.T) {
		got := Filter(issues, Criteria{Search: "zzz"})
		assert.Empty(t, got)
	})
}

func TestFilter_Conjunctive(t *testing.T) {
	issues := fixtureIssues()

	// Each criterion alone matches more than both together.
	bugs := Filter(issues, Criteria{Type: "Bug"})
	require.Len(t, bugs, 2)
	inP1 := Filter(issues, Criteria{ProjectID: "p1"})
	require.Len(t, inP1, 3)

	both := Filter(issues, Criteria{Type: "Bug", ProjectID: "p1"})
	assert.Equal(t, []string{"CORE-003"}, ids(both))

	none := Filter(issues, Criteria{Type: "Bug", ProjectID: "p1", Status: "Closed"})
	assert.Empty(t, none)
}

func TestStats(t *testing.T) {
	stats := Stats(fixtureIssues())

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Open, "Resolved and Closed are not open")
	assert.Equal(t, 1, stats.Critical)
	assert.Equal(t, 1, stats.Resolved, "Closed does not count as resolved")
}

func TestStats_Empty(t *testing.T) {
	stats := Stats(nil)
	assert.Equal(t, DashboardStats{}, stats)
}

func TestGroupByStatus(t *testing.T) {
	counts := GroupByStatus(fixtureIssues())

	// Every enumerated status present, including zero counts.
	assert.Len(t, counts, len(models.IssueStatuses))
	assert.Equal(t, 1, counts[models.IssueStatusNew])
	assert.Equal(t, 1, counts[models.IssueStatusInProgress])
	assert.Equal(t, 0, counts[models.IssueStatusReopened])

	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, 4, total)
}

func TestGroupByProject(t *testing.T) {
	projects := []*models.Project{
		{ID: "p1", Code: "CORE"},
		{ID: "p2", Code: "MOBI"},
		{ID: "p3", Code: "ANLY"},
	}

	counts := GroupByProject(fixtureIssues(), projects)
	require.Len(t, counts, 3, "every project present, even with no issues")
	assert.Equal(t, ProjectCount{ProjectCode: "CORE", Count: 3}, counts[0])
	assert.Equal(t, ProjectCount{ProjectCode: "MOBI", Count: 1}, counts[1])
	assert.Equal(t, ProjectCount{ProjectCode: "ANLY", Count: 0}, counts[2])
}

package lifecycle

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnitrack/omnitrack/internal/apperrors"
	"github.com/omnitrack/omnitrack/internal/models"
	"github.com/omnitrack/omnitrack/internal/store"
)

func newTestController(t *testing.T) (*Controller, store.Store, *models.Issue) {
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
		[]*models.Project{{ID: "p1", Name: "Core", Code: "CORE", OwnerID: "u1"}},
		nil,
	))

	issue := &models.Issue{
		Title:       "Crash on login",
		Description: "App crashes when logging in.",
		ProjectID:   "p1",
		Type:        models.IssueTypeBug,
		Priority:    models.PriorityHigh,
		Severity:    models.SeverityMajor,
	}
	require.NoError(t, s.CreateIssue(ctx, issue, "u1"))

	return New(s), s, issue
}

func TestSetStatus_AnyToAny(t *testing.T) {
	c, _, issue := newTestController(t)
	ctx := context.Background()

	// The transition graph is flat: walk through every status and then
	// jump straight back to New from Closed.
	for _, st := range models.IssueStatuses {
		got, err := c.SetStatus(ctx, issue.ID, st)
		require.NoError(t, err)
		assert.Equal(t, st, got.Status)
	}

	got, err := c.SetStatus(ctx, issue.ID, models.IssueStatusNew)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusNew, got.Status)
}

func TestSetStatus_StampsUpdatedAt(t *testing.T) {
	c, s, issue := newTestController(t)
	ctx := context.Background()

	prev := issue.UpdatedAt
	created := issue.CreatedAt
	for _, st := range []models.IssueStatus{
		models.IssueStatusInProgress,
		models.IssueStatusResolved,
		models.IssueStatusReopened,
	} {
		got, err := c.SetStatus(ctx, issue.ID, st)
		require.NoError(t, err)
		assert.True(t, got.UpdatedAt.After(prev), "UpdatedAt is strictly increasing")
		assert.WithinDuration(t, created, got.CreatedAt, time.Second, "CreatedAt never changes")
		prev = got.UpdatedAt
	}

	stored, err := s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, prev, stored.UpdatedAt, time.Second)
}

func TestSetStatus_Invalid(t *testing.T) {
	c, _, issue := newTestController(t)

	_, err := c.SetStatus(context.Background(), issue.ID, "Archived")
	assert.True(t, apperrors.IsValidation(err))

	_, err = c.SetStatus(context.Background(), "CORE-999", models.IssueStatusClosed)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAssign(t *testing.T) {
	c, _, issue := newTestController(t)
	ctx := context.Background()

	got, err := c.Assign(ctx, issue.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, "u2", got.AssigneeID)
	assert.True(t, got.UpdatedAt.After(issue.UpdatedAt))

	t.Run("unassign", func(t *testing.T) {
		got, err := c.Assign(ctx, issue.ID, "")
		require.NoError(t, err)
		assert.Empty(t, got.AssigneeID)
	})

	t.Run("unknown assignee", func(t *testing.T) {
		_, err := c.Assign(ctx, issue.ID, "u9")
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestEdit(t *testing.T) {
	c, _, issue := newTestController(t)
	ctx := context.Background()

	title := "Crash on login (iOS only)"
	priority := models.PriorityCritical
	labels := []string{"crash", "ios"}

	got, err := c.Edit(ctx, issue.ID, Patch{
		Title:    &title,
		Priority: &priority,
		Labels:   &labels,
		Bug:      &models.BugDetails{Environment: "iOS 18"},
	})
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, priority, got.Priority)
	assert.Equal(t, labels, got.Labels)
	assert.Equal(t, "iOS 18", got.Bug.Environment)

	// Untouched fields survive.
	assert.Equal(t, issue.Description, got.Description)
	assert.Equal(t, issue.Severity, got.Severity)

	// Immutable fields.
	assert.Equal(t, issue.ID, got.ID)
	assert.Equal(t, issue.ProjectID, got.ProjectID)
	assert.Equal(t, issue.Type, got.Type)
	assert.Equal(t, issue.ReporterID, got.ReporterID)
	assert.WithinDuration(t, issue.CreatedAt, got.CreatedAt, time.Second)
}

func TestEdit_Validation(t *testing.T) {
	c, s, issue := newTestController(t)
	ctx := context.Background()

	empty := ""
	_, err := c.Edit(ctx, issue.ID, Patch{Title: &empty})
	assert.True(t, apperrors.IsValidation(err))

	long := strings.Repeat("x", models.MaxTitleLen+1)
	_, err = c.Edit(ctx, issue.ID, Patch{Title: &long})
	assert.True(t, apperrors.IsValidation(err))

	t.Run("title limit counts runes, not bytes", func(t *testing.T) {
		task := &models.Issue{
			Title:       "Rename me",
			Description: "d",
			ProjectID:   "p1",
			Type:        models.IssueTypeTask,
			Priority:    models.PriorityLow,
			Severity:    models.SeverityTrivial,
		}
		require.NoError(t, s.CreateIssue(ctx, task, "u1"))

		wide := strings.Repeat("崩", models.MaxTitleLen)
		got, err := c.Edit(ctx, task.ID, Patch{Title: &wide})
		require.NoError(t, err)
		assert.Equal(t, wide, got.Title)

		over := strings.Repeat("崩", models.MaxTitleLen+1)
		_, err = c.Edit(ctx, task.ID, Patch{Title: &over})
		assert.True(t, apperrors.IsValidation(err))
	})

	bad := models.Priority("urgent")
	_, err = c.Edit(ctx, issue.ID, Patch{Priority: &bad})
	assert.True(t, apperrors.IsValidation(err))

	t.Run("bug details rejected on non-bug", func(t *testing.T) {
		task := &models.Issue{
			Title:       "Routine task",
			Description: "d",
			ProjectID:   "p1",
			Type:        models.IssueTypeTask,
			Priority:    models.PriorityLow,
			Severity:    models.SeverityTrivial,
		}
		require.NoError(t, s.CreateIssue(ctx, task, "u1"))

		_, err := c.Edit(ctx, task.ID, Patch{Bug: &models.BugDetails{}})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("failed edit leaves the issue untouched", func(t *testing.T) {
		stored, err := s.GetIssue(ctx, issue.ID)
		require.NoError(t, err)
		assert.Equal(t, issue.Title, stored.Title)
		assert.WithinDuration(t, issue.UpdatedAt, stored.UpdatedAt, time.Second)
	})
}

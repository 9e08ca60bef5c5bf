// Package lifecycle enforces write-side rules on issues: status changes,
// assignment, and edits, with timestamp bookkeeping. All mutations flow
// through here so the store never stamps timestamps itself.
package lifecycle

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/omnitrack/omnitrack/internal/apperrors"
	"github.com/omnitrack/omnitrack/internal/models"
	"github.com/omnitrack/omnitrack/internal/store"
)

// Controller applies validated mutations to issues.
type Controller struct {
	store store.Store
}

// New creates a Controller over the given store.
func New(s store.Store) *Controller {
	return &Controller{store: s}
}

// stamp sets UpdatedAt to now, nudging forward when the clock has not
// advanced past the previous value so UpdatedAt is strictly increasing.
func stamp(issue *models.Issue) {
	now := time.Now().UTC()
	if !now.After(issue.UpdatedAt) {
		now = issue.UpdatedAt.Add(time.Millisecond)
	}
	issue.UpdatedAt = now
}

// SetStatus moves the issue to the new status. Any enumerated status may
// be set from any other; the flat transition graph is deliberate. Only a
// value outside the enumeration is rejected.
func (c *Controller) SetStatus(ctx context.Context, id string, status models.IssueStatus) (*models.Issue, error) {
	if !status.Valid() {
		return nil, apperrors.Validation("invalid status: %q", status)
	}
	issue, err := c.store.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := issue.Clone()
	updated.Status = status
	stamp(updated)
	if err := c.store.UpdateIssue(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Assign sets the issue's assignee; an empty id clears it. The assignee
// must be a known user, but project membership is not checked.
func (c *Controller) Assign(ctx context.Context, id, assigneeID string) (*models.Issue, error) {
	if assigneeID != "" {
		if _, err := c.store.GetUser(ctx, assigneeID); err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.Validation("assignee does not exist: %s", assigneeID)
			}
			return nil, err
		}
	}
	issue, err := c.store.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := issue.Clone()
	updated.AssigneeID = assigneeID
	stamp(updated)
	if err := c.store.UpdateIssue(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Patch holds the editable issue fields. Nil pointers leave the stored
// value unchanged.
type Patch struct {
	Title       *string
	Description *string
	Priority    *models.Priority
	Severity    *models.Severity
	Labels      *[]string
	Bug         *models.BugDetails
}

// Edit applies a partial edit to the issue and stamps UpdatedAt. The
// issue's id, project, type, reporter, and creation time are immutable.
func (c *Controller) Edit(ctx context.Context, id string, patch Patch) (*models.Issue, error) {
	issue, err := c.store.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := issue.Clone()
	if patch.Title != nil {
		if *patch.Title == "" {
			return nil, apperrors.Validation("title is required")
		}
		if utf8.RuneCountInString(*patch.Title) > models.MaxTitleLen {
			return nil, apperrors.Validation("title exceeds %d characters", models.MaxTitleLen)
		}
		updated.Title = *patch.Title
	}
	if patch.Description != nil {
		if *patch.Description == "" {
			return nil, apperrors.Validation("description is required")
		}
		updated.Description = *patch.Description
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return nil, apperrors.Validation("invalid priority: %q", *patch.Priority)
		}
		updated.Priority = *patch.Priority
	}
	if patch.Severity != nil {
		if !patch.Severity.Valid() {
			return nil, apperrors.Validation("invalid severity: %q", *patch.Severity)
		}
		updated.Severity = *patch.Severity
	}
	if patch.Labels != nil {
		updated.Labels = append([]string(nil), (*patch.Labels)...)
	}
	if patch.Bug != nil {
		if issue.Type != models.IssueTypeBug {
			return nil, apperrors.Validation("bug details are only allowed on %s issues", models.IssueTypeBug)
		}
		bug := *patch.Bug
		updated.Bug = &bug
	}

	stamp(updated)
	if err := c.store.UpdateIssue(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

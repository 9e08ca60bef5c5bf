package models

import (
	"fmt"
	"time"
)

// IssueStatus represents the state of an issue. Transitions are
// intentionally unrestricted: any status may be set from any other.
type IssueStatus string

const (
	IssueStatusNew        IssueStatus = "New"
	IssueStatusInProgress IssueStatus = "In Progress"
	IssueStatusInReview   IssueStatus = "In Review"
	IssueStatusResolved   IssueStatus = "Resolved"
	IssueStatusClosed     IssueStatus = "Closed"
	IssueStatusReopened   IssueStatus = "Reopened"
)

// IssueStatuses lists every valid status in display order.
var IssueStatuses = []IssueStatus{
	IssueStatusNew,
	IssueStatusInProgress,
	IssueStatusInReview,
	IssueStatusResolved,
	IssueStatusClosed,
	IssueStatusReopened,
}

// Valid reports whether the status is one of the enumerated values.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusNew, IssueStatusInProgress, IssueStatusInReview,
		IssueStatusResolved, IssueStatusClosed, IssueStatusReopened:
		return true
	}
	return false
}

// ParseIssueStatus converts a string to an IssueStatus, rejecting unknown values.
func ParseIssueStatus(s string) (IssueStatus, error) {
	st := IssueStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid status: %q", s)
	}
	return st, nil
}

// Priority represents the urgency axis of an issue, independent of severity.
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// Priorities lists every valid priority from most to least urgent.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// Valid reports whether the priority is one of the enumerated values.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank returns the sort rank of the priority, 0 being the most urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

// ParsePriority converts a string to a Priority, rejecting unknown values.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority: %q", s)
	}
	return p, nil
}

// Severity represents the impact axis of an issue, independent of priority.
type Severity string

const (
	SeverityBlocker Severity = "Blocker"
	SeverityMajor   Severity = "Major"
	SeverityMinor   Severity = "Minor"
	SeverityTrivial Severity = "Trivial"
)

// Severities lists every valid severity from most to least impactful.
var Severities = []Severity{SeverityBlocker, SeverityMajor, SeverityMinor, SeverityTrivial}

// Valid reports whether the severity is one of the enumerated values.
func (s Severity) Valid() bool {
	switch s {
	case SeverityBlocker, SeverityMajor, SeverityMinor, SeverityTrivial:
		return true
	}
	return false
}

// ParseSeverity converts a string to a Severity, rejecting unknown values.
func ParseSeverity(s string) (Severity, error) {
	sv := Severity(s)
	if !sv.Valid() {
		return "", fmt.Errorf("invalid severity: %q", s)
	}
	return sv, nil
}

// IssueType represents the kind of work an issue tracks.
type IssueType string

const (
	IssueTypeBug         IssueType = "Bug"
	IssueTypeFeature     IssueType = "Feature Request"
	IssueTypeTask        IssueType = "Task"
	IssueTypeEnhancement IssueType = "Enhancement"
)

// IssueTypes lists every valid issue type.
var IssueTypes = []IssueType{IssueTypeBug, IssueTypeFeature, IssueTypeTask, IssueTypeEnhancement}

// Valid reports whether the type is one of the enumerated values.
func (t IssueType) Valid() bool {
	switch t {
	case IssueTypeBug, IssueTypeFeature, IssueTypeTask, IssueTypeEnhancement:
		return true
	}
	return false
}

// ParseIssueType converts a string to an IssueType, rejecting unknown values.
func ParseIssueType(s string) (IssueType, error) {
	t := IssueType(s)
	if !t.Valid() {
		return "", fmt.Errorf("invalid issue type: %q", s)
	}
	return t, nil
}

// MaxTitleLen is the maximum issue title length, counted in runes.
const MaxTitleLen = 200

// BugDetails holds the reproduction fields that exist only for Bug issues.
type BugDetails struct {
	StepsToReproduce string
	ExpectedBehavior string
	ActualBehavior   string
	Environment      string
	Version          string
}

// Issue represents a single trackable unit of work within a project.
// The Bug field is non-nil iff Type == IssueTypeBug.
type Issue struct {
	ID          string // ticket id like CORE-001, assigned once at creation
	Title       string
	Description string
	ProjectID   string
	Type        IssueType
	Priority    Priority
	Severity    Severity
	Status      IssueStatus
	ReporterID  string
	AssigneeID  string // empty = unassigned
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Bug         *BugDetails
	Labels      []string // ordered, duplicates allowed
	Attachments []string
}

// Clone returns a deep copy of the issue so callers can mutate a
// candidate value without touching the stored one.
func (i *Issue) Clone() *Issue {
	out := *i
	if i.Bug != nil {
		bug := *i.Bug
		out.Bug = &bug
	}
	out.Labels = append([]string(nil), i.Labels...)
	out.Attachments = append([]string(nil), i.Attachments...)
	return &out
}

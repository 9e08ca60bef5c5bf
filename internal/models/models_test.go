package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIssueStatus(t *testing.T) {
	for _, st := range IssueStatuses {
		got, err := ParseIssueStatus(string(st))
		require.NoError(t, err)
		assert.Equal(t, st, got)
	}

	for _, bad := range []string{"", "new", "IN PROGRESS", "Done", "Open"} {
		_, err := ParseIssueStatus(bad)
		assert.Error(t, err, "should reject %q", bad)
	}
}

func TestParsePriority(t *testing.T) {
	for _, p := range Priorities {
		got, err := ParsePriority(string(p))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	_, err := ParsePriority("urgent")
	assert.Error(t, err)
	_, err = ParsePriority("critical") // case matters
	assert.Error(t, err)
}

func TestPriorityRank(t *testing.T) {
	// Priorities is ordered most to least urgent; Rank must agree.
	for i := 1; i < len(Priorities); i++ {
		assert.Less(t, Priorities[i-1].Rank(), Priorities[i].Rank())
	}
	assert.Equal(t, 0, PriorityCritical.Rank())
}

func TestParseSeverity(t *testing.T) {
	for _, sv := range Severities {
		got, err := ParseSeverity(string(sv))
		require.NoError(t, err)
		assert.Equal(t, sv, got)
	}

	_, err := ParseSeverity("Catastrophic")
	assert.Error(t, err)
}

func TestParseIssueType(t *testing.T) {
	for _, it := range IssueTypes {
		got, err := ParseIssueType(string(it))
		require.NoError(t, err)
		assert.Equal(t, it, got)
	}

	_, err := ParseIssueType("Feature")
	assert.Error(t, err, "only the full display string is valid")
}

func TestParseRole(t *testing.T) {
	for _, r := range Roles {
		got, err := ParseRole(string(r))
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	_, err := ParseRole("QA")
	assert.Error(t, err)
}

func TestProjectIsMember(t *testing.T) {
	p := &Project{
		ID:      "p1",
		OwnerID: "u1",
		Members: []string{"u2", "u3"},
	}

	assert.True(t, p.IsMember("u2"))
	assert.True(t, p.IsMember("u1"), "owner counts even when absent from Members")
	assert.False(t, p.IsMember("u9"))
	assert.False(t, p.IsMember(""))
}

func TestIssueClone(t *testing.T) {
	orig := &Issue{
		ID:     "CORE-001",
		Title:  "Crash on login",
		Type:   IssueTypeBug,
		Bug:    &BugDetails{StepsToReproduce: "1. Log in"},
		Labels: []string{"crash", "auth"},
	}

	clone := orig.Clone()
	clone.Title = "changed"
	clone.Bug.StepsToReproduce = "changed"
	clone.Labels[0] = "changed"

	assert.Equal(t, "Crash on login", orig.Title)
	assert.Equal(t, "1. Log in", orig.Bug.StepsToReproduce)
	assert.Equal(t, "crash", orig.Labels[0])
}

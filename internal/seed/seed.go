// Package seed loads the initial users, projects, and issues for a
// tracker session from YAML. A default dataset is embedded so the tool
// works out of the box; a custom file can be supplied via config.
package seed

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/omnitrack/omnitrack/internal/models"
)

//go:embed seed.yaml
var defaultSeed []byte

// File is the parsed form of a seed file.
type File struct {
	Users    []UserSeed    `yaml:"users"`
	Projects []ProjectSeed `yaml:"projects"`
	Issues   []IssueSeed   `yaml:"issues"`
}

// UserSeed describes one seeded user.
type UserSeed struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Role   string `yaml:"role"`
	Avatar string `yaml:"avatar"`
}

// ProjectSeed describes one seeded project.
type ProjectSeed struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Code        string   `yaml:"code"`
	Description string   `yaml:"description"`
	Owner       string   `yaml:"owner"`
	Members     []string `yaml:"members"`
}

// BugSeed holds the bug-only reproduction fields.
type BugSeed struct {
	StepsToReproduce string `yaml:"stepsToReproduce"`
	ExpectedBehavior string `yaml:"expectedBehavior"`
	ActualBehavior   string `yaml:"actualBehavior"`
	Environment      string `yaml:"environment"`
	Version          string `yaml:"version"`
}

// IssueSeed describes one seeded issue.
type IssueSeed struct {
	ID          string    `yaml:"id"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Project     string    `yaml:"project"`
	Type        string    `yaml:"type"`
	Priority    string    `yaml:"priority"`
	Severity    string    `yaml:"severity"`
	Status      string    `yaml:"status"`
	Reporter    string    `yaml:"reporter"`
	Assignee    string    `yaml:"assignee"`
	CreatedAt   time.Time `yaml:"createdAt"`
	UpdatedAt   time.Time `yaml:"updatedAt"`
	Bug         *BugSeed  `yaml:"bug"`
	Labels      []string  `yaml:"labels"`
}

// Default parses the embedded seed dataset.
func Default() (*File, error) {
	return parse(defaultSeed)
}

// LoadPath parses a seed file from disk.
func LoadPath(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

// Build converts the parsed file into model values, rejecting any value
// outside the domain enumerations.
func (f *File) Build() ([]*models.User, []*models.Project, []*models.Issue, error) {
	users := make([]*models.User, 0, len(f.Users))
	for _, u := range f.Users {
		role, err := models.ParseRole(u.Role)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("user %s: %w", u.ID, err)
		}
		users = append(users, &models.User{
			ID:     u.ID,
			Name:   u.Name,
			Email:  u.Email,
			Role:   role,
			Avatar: u.Avatar,
		})
	}

	projects := make([]*models.Project, 0, len(f.Projects))
	for _, p := range f.Projects {
		projects = append(projects, &models.Project{
			ID:          p.ID,
			Name:        p.Name,
			Code:        p.Code,
			Description: p.Description,
			OwnerID:     p.Owner,
			Members:     p.Members,
		})
	}

	now := time.Now().UTC()
	issues := make([]*models.Issue, 0, len(f.Issues))
	for _, i := range f.Issues {
		issueType, err := models.ParseIssueType(i.Type)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("issue %s: %w", i.ID, err)
		}
		priority, err := models.ParsePriority(i.Priority)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("issue %s: %w", i.ID, err)
		}
		severity, err := models.ParseSeverity(i.Severity)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("issue %s: %w", i.ID, err)
		}
		status, err := models.ParseIssueStatus(i.Status)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("issue %s: %w", i.ID, err)
		}

		issue := &models.Issue{
			ID:          i.ID,
			Title:       i.Title,
			Description: i.Description,
			ProjectID:   i.Project,
			Type:        issueType,
			Priority:    priority,
			Severity:    severity,
			Status:      status,
			ReporterID:  i.Reporter,
			AssigneeID:  i.Assignee,
			CreatedAt:   i.CreatedAt,
			UpdatedAt:   i.UpdatedAt,
			Labels:      i.Labels,
			Attachments: []string{},
		}
		if issue.CreatedAt.IsZero() {
			issue.CreatedAt = now
		}
		if issue.UpdatedAt.IsZero() {
			issue.UpdatedAt = issue.CreatedAt
		}
		if i.Bug != nil {
			issue.Bug = &models.BugDetails{
				StepsToReproduce: i.Bug.StepsToReproduce,
				ExpectedBehavior: i.Bug.ExpectedBehavior,
				ActualBehavior:   i.Bug.ActualBehavior,
				Environment:      i.Bug.Environment,
				Version:          i.Bug.Version,
			}
		}
		issues = append(issues, issue)
	}

	return users, projects, issues, nil
}

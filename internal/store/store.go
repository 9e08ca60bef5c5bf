package store

import (
	"context"

	"github.com/omnitrack/omnitrack/internal/models"
)

// Store defines the data layer for omnitrack. It owns the canonical
// collections of users, projects, and issues for the process lifetime.
type Store interface {
	// Seed loads the initial users, projects, and issues. Users and
	// projects are read-only after seeding; issues remain mutable.
	Seed(ctx context.Context, users []*models.User, projects []*models.Project, issues []*models.Issue) error

	// Seeded reports whether the store already holds seed data, so a
	// persistent database is not re-seeded on later runs.
	Seeded(ctx context.Context) (bool, error)

	// Users
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)

	// Projects
	GetProject(ctx context.Context, id string) (*models.Project, error)
	GetProjectByCode(ctx context.Context, code string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)

	// Issues
	//
	// CreateIssue validates the draft, assigns a ticket id from the
	// project's counter, stamps status/reporter/timestamps, and inserts
	// at the head of the collection (newest listed first).
	//
	// UpdateIssue replaces the stored issue with the same id verbatim.
	// It does not touch timestamps; stamping UpdatedAt is the lifecycle
	// controller's responsibility so that no-op replacements do not
	// spuriously bump it.
	CreateIssue(ctx context.Context, draft *models.Issue, reporterID string) error
	UpdateIssue(ctx context.Context, issue *models.Issue) error
	GetIssue(ctx context.Context, id string) (*models.Issue, error)
	ListIssues(ctx context.Context) ([]*models.Issue, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/omnitrack/omnitrack/internal/apperrors"
	"github.com/omnitrack/omnitrack/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryDSN opens a private in-memory database. This is the default:
// the tracker holds its working set in process memory only.
const MemoryDSN = ":memory:"

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens a SQLite database at the given DSN. Pass
// MemoryDSN for the standard in-memory store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all access through Go's connection pool; for
	// an in-memory DSN it also keeps every query on the same database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Seeding ---

// Seed loads the initial users, projects, and issues. Seeded issues keep
// their given ids and timestamps; the per-project ticket counter is
// advanced past the highest seeded ticket number.
func (s *SQLiteStore) Seed(ctx context.Context, users []*models.User, projects []*models.Project, issues []*models.Issue) error {
	for _, u := range users {
		if u.ID == "" {
			u.ID = newULID()
		}
		if !u.Role.Valid() {
			return apperrors.Validation("user %s: invalid role %q", u.ID, u.Role)
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO users (id, name, email, role, avatar) VALUES (?, ?, ?, ?, ?)`,
			u.ID, u.Name, u.Email, string(u.Role), u.Avatar,
		)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}

	for _, p := range projects {
		if p.ID == "" {
			p.ID = newULID()
		}
		if p.Code == "" {
			return apperrors.Validation("project %s: code is required", p.ID)
		}
		members, err := json.Marshal(p.Members)
		if err != nil {
			return fmt.Errorf("marshal members: %w", err)
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO projects (id, name, code, description, owner_id, members) VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Code, p.Description, p.OwnerID, string(members),
		)
		if err != nil {
			return fmt.Errorf("seed project %s: %w", p.ID, err)
		}
	}

	// Insert in reverse so the first seed entry ends up newest-first in
	// listings, matching the order the seed file presents them.
	maxNum := make(map[string]int)
	for i := len(issues) - 1; i >= 0; i-- {
		issue := issues[i]
		if !issue.Status.Valid() {
			return apperrors.Validation("issue %s: invalid status %q", issue.ID, issue.Status)
		}
		if err := s.validateDraft(ctx, issue); err != nil {
			return fmt.Errorf("seed issue %s: %w", issue.ID, err)
		}
		if _, err := s.GetUser(ctx, issue.ReporterID); err != nil {
			return fmt.Errorf("seed issue %s: reporter: %w", issue.ID, err)
		}
		if issue.Type == models.IssueTypeBug && issue.Bug == nil {
			issue.Bug = &models.BugDetails{}
		}
		if issue.Attachments == nil {
			issue.Attachments = []string{}
		}
		if err := s.insertIssue(ctx, issue); err != nil {
			return fmt.Errorf("seed issue %s: %w", issue.ID, err)
		}
		if n, ok := ticketNumber(issue.ID); ok {
			if n > maxNum[issue.ProjectID] {
				maxNum[issue.ProjectID] = n
			}
		}
	}

	for projectID, n := range maxNum {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO ticket_counters (project_id, next_number) VALUES (?, ?)
			ON CONFLICT(project_id) DO UPDATE SET next_number = MAX(next_number, excluded.next_number)`,
			projectID, n,
		)
		if err != nil {
			return fmt.Errorf("seed ticket counter for %s: %w", projectID, err)
		}
	}

	return nil
}

// Seeded reports whether seed data is already present. Any user row
// counts: users are only ever written by Seed.
func (s *SQLiteStore) Seeded(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check seed state: %w", err)
	}
	return count > 0, nil
}

// ticketNumber extracts the numeric suffix of a ticket id like CORE-042.
func ticketNumber(id string) (int, bool) {
	idx := strings.LastIndex(id, "-")
	if idx < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(id[idx+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// --- Users ---

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	u := &models.User{}
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, role, avatar FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &role, &u.Avatar)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("user not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = models.Role(role)
	return u, nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, role, avatar FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		var role string
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &role, &u.Avatar); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Role = models.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}

// --- Projects ---

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	return s.getProject(ctx, `SELECT id, name, code, description, owner_id, members FROM projects WHERE id = ?`, id)
}

func (s *SQLiteStore) GetProjectByCode(ctx context.Context, code string) (*models.Project, error) {
	return s.getProject(ctx, `SELECT id, name, code, description, owner_id, members FROM projects WHERE code = ?`, code)
}

func (s *SQLiteStore) getProject(ctx context.Context, query, key string) (*models.Project, error) {
	p := &models.Project{}
	var members string
	err := s.db.QueryRowContext(ctx, query, key).
		Scan(&p.ID, &p.Name, &p.Code, &p.Description, &p.OwnerID, &members)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("project not found: %s", key)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if err := json.Unmarshal([]byte(members), &p.Members); err != nil {
		return nil, fmt.Errorf("unmarshal members: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) ListProjects(ctx context.Context) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, code, description, owner_id, members FROM projects ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*models.Project
	for rows.Next() {
		p := &models.Project{}
		var members string
		if err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.Description, &p.OwnerID, &members); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		if err := json.Unmarshal([]byte(members), &p.Members); err != nil {
			return nil, fmt.Errorf("unmarshal members: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// --- Issues ---

// validateDraft checks the invariants common to created and seeded issues.
func (s *SQLiteStore) validateDraft(ctx context.Context, issue *models.Issue) error {
	if strings.TrimSpace(issue.Title) == "" {
		return apperrors.Validation("title is required")
	}
	if utf8.RuneCountInString(issue.Title) > models.MaxTitleLen {
		return apperrors.Validation("title exceeds %d characters", models.MaxTitleLen)
	}
	if strings.TrimSpace(issue.Description) == "" {
		return apperrors.Validation("description is required")
	}
	if !issue.Type.Valid() {
		return apperrors.Validation("invalid issue type: %q", issue.Type)
	}
	if !issue.Priority.Valid() {
		return apperrors.Validation("invalid priority: %q", issue.Priority)
	}
	if !issue.Severity.Valid() {
		return apperrors.Validation("invalid severity: %q", issue.Severity)
	}
	if issue.Bug != nil && issue.Type != models.IssueTypeBug {
		return apperrors.Validation("bug details are only allowed on %s issues", models.IssueTypeBug)
	}
	if _, err := s.GetProject(ctx, issue.ProjectID); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.Validation("project does not exist: %s", issue.ProjectID)
		}
		return err
	}
	if issue.AssigneeID != "" {
		if _, err := s.GetUser(ctx, issue.AssigneeID); err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.Validation("assignee does not exist: %s", issue.AssigneeID)
			}
			return err
		}
	}
	return nil
}

// CreateIssue validates the draft, generates the next ticket id for the
// project, stamps the creation fields, and inserts the issue so it lists
// newest-first.
func (s *SQLiteStore) CreateIssue(ctx context.Context, draft *models.Issue, reporterID string) error {
	if err := s.validateDraft(ctx, draft); err != nil {
		return err
	}
	if _, err := s.GetUser(ctx, reporterID); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.Validation("reporter does not exist: %s", reporterID)
		}
		return err
	}

	project, err := s.GetProject(ctx, draft.ProjectID)
	if err != nil {
		return err
	}

	// Per-project monotonic counter guarantees unique ticket ids.
	var n int
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO ticket_counters (project_id, next_number) VALUES (?, 1)
		ON CONFLICT(project_id) DO UPDATE SET next_number = next_number + 1
		RETURNING next_number`,
		draft.ProjectID,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("next ticket number: %w", err)
	}

	now := time.Now().UTC()
	draft.ID = fmt.Sprintf("%s-%03d", project.Code, n)
	draft.Status = models.IssueStatusNew
	draft.ReporterID = reporterID
	draft.CreatedAt = now
	draft.UpdatedAt = now
	draft.Attachments = []string{}
	if draft.Type == models.IssueTypeBug && draft.Bug == nil {
		draft.Bug = &models.BugDetails{}
	}

	if err := s.insertIssue(ctx, draft); err != nil {
		return fmt.Errorf("create issue: %w", err)
	}
	return nil
}

func (s *SQLiteStore) insertIssue(ctx context.Context, issue *models.Issue) error {
	labels, err := json.Marshal(issue.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}
	attachments, err := json.Marshal(issue.Attachments)
	if err != nil {
		return fmt.Errorf("marshal attachments: %w", err)
	}

	var steps, expected, actual, env, version sql.NullString
	if issue.Bug != nil {
		steps = sql.NullString{String: issue.Bug.StepsToReproduce, Valid: true}
		expected = sql.NullString{String: issue.Bug.ExpectedBehavior, Valid: true}
		actual = sql.NullString{String: issue.Bug.ActualBehavior, Valid: true}
		env = sql.NullString{String: issue.Bug.Environment, Valid: true}
		version = sql.NullString{String: issue.Bug.Version, Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO issues (id, title, description, project_id, type, priority, severity, status,
			reporter_id, assignee_id, created_at, updated_at,
			steps_to_reproduce, expected_behavior, actual_behavior, environment, bug_version,
			labels, attachments)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		issue.ID, issue.Title, issue.Description, issue.ProjectID,
		string(issue.Type), string(issue.Priority), string(issue.Severity), string(issue.Status),
		issue.ReporterID, issue.AssigneeID, issue.CreatedAt, issue.UpdatedAt,
		steps, expected, actual, env, version,
		string(labels), string(attachments),
	)
	return err
}

// UpdateIssue replaces the stored issue with the same id. Timestamps are
// written as given; the lifecycle controller is responsible for stamping.
func (s *SQLiteStore) UpdateIssue(ctx context.Context, issue *models.Issue) error {
	labels, err := json.Marshal(issue.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}
	attachments, err := json.Marshal(issue.Attachments)
	if err != nil {
		return fmt.Errorf("marshal attachments: %w", err)
	}

	var steps, expected, actual, env, version sql.NullString
	if issue.Bug != nil {
		steps = sql.NullString{String: issue.Bug.StepsToReproduce, Valid: true}
		expected = sql.NullString{String: issue.Bug.ExpectedBehavior, Valid: true}
		actual = sql.NullString{String: issue.Bug.ActualBehavior, Valid: true}
		env = sql.NullString{String: issue.Bug.Environment, Valid: true}
		version = sql.NullString{String: issue.Bug.Version, Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE issues SET title=?, description=?, type=?, priority=?, severity=?, status=?,
			assignee_id=?, updated_at=?,
			steps_to_reproduce=?, expected_behavior=?, actual_behavior=?, environment=?, bug_version=?,
			labels=?, attachments=?
		WHERE id=?`,
		issue.Title, issue.Description,
		string(issue.Type), string(issue.Priority), string(issue.Severity), string(issue.Status),
		issue.AssigneeID, issue.UpdatedAt,
		steps, expected, actual, env, version,
		string(labels), string(attachments),
		issue.ID,
	)
	if err != nil {
		return fmt.Errorf("update issue: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperrors.NotFound("issue not found: %s", issue.ID)
	}
	return nil
}

const issueColumns = `id, title, description, project_id, type, priority, severity, status,
	reporter_id, assignee_id, created_at, updated_at,
	steps_to_reproduce, expected_behavior, actual_behavior, environment, bug_version,
	labels, attachments`

func scanIssue(scan func(dest ...any) error) (*models.Issue, error) {
	issue := &models.Issue{}
	var issueType, priority, severity, status string
	var steps, expected, actual, env, version sql.NullString
	var labels, attachments string

	err := scan(
		&issue.ID, &issue.Title, &issue.Description, &issue.ProjectID,
		&issueType, &priority, &severity, &status,
		&issue.ReporterID, &issue.AssigneeID, &issue.CreatedAt, &issue.UpdatedAt,
		&steps, &expected, &actual, &env, &version,
		&labels, &attachments,
	)
	if err != nil {
		return nil, err
	}

	issue.Type = models.IssueType(issueType)
	issue.Priority = models.Priority(priority)
	issue.Severity = models.Severity(severity)
	issue.Status = models.IssueStatus(status)
	issue.CreatedAt = issue.CreatedAt.UTC()
	issue.UpdatedAt = issue.UpdatedAt.UTC()

	if steps.Valid || expected.Valid || actual.Valid || env.Valid || version.Valid {
		issue.Bug = &models.BugDetails{
			StepsToReproduce: steps.String,
			ExpectedBehavior: expected.String,
			ActualBehavior:   actual.String,
			Environment:      env.String,
			Version:          version.String,
		}
	}
	if err := json.Unmarshal([]byte(labels), &issue.Labels); err != nil {
		return nil, fmt.Errorf("unmarshal labels: %w", err)
	}
	if err := json.Unmarshal([]byte(attachments), &issue.Attachments); err != nil {
		return nil, fmt.Errorf("unmarshal attachments: %w", err)
	}
	return issue, nil
}

func (s *SQLiteStore) GetIssue(ctx context.Context, id string) (*models.Issue, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
	issue, err := scanIssue(row.Scan)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("issue not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get issue: %w", err)
	}
	return issue, nil
}

// ListIssues returns all issues in store order, newest-created first.
func (s *SQLiteStore) ListIssues(ctx context.Context) ([]*models.Issue, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+issueColumns+` FROM issues ORDER BY rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var issues []*models.Issue
	for rows.Next() {
		issue, err := scanIssue(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/omnitrack/omnitrack/internal/lifecycle"
	"github.com/omnitrack/omnitrack/internal/models"
	"github.com/omnitrack/omnitrack/internal/output"
	"github.com/omnitrack/omnitrack/internal/query"
	"github.com/omnitrack/omnitrack/internal/store"
)

var (
	issueTitle    string
	issueDesc     string
	issuePriority string
	issueSeverity string
	issueType     string
	issueLabels   []string
	issueSearch   string
	issueStatus   string
	issueProject  string
	issueSuggest  bool

	bugSteps    string
	bugExpected string
	bugActual   string
	bugEnv      string
	bugVersion  string
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Manage issues",
	Long:  "File, list, triage, and resolve issues.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun()
	},
}

var issueAddCmd = &cobra.Command{
	Use:   "add <project-code>",
	Short: "File a new issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueAddRun(args[0])
	},
}

var issueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List issues",
	Long:    "List issues. All filters combine with AND; omitted filters match everything.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun()
	},
}

var issueShowCmd = &cobra.Command{
	Use:   "show <ticket-id>",
	Short: "Show issue details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueShowRun(args[0])
	},
}

var issueStatusCmd = &cobra.Command{
	Use:   "status <ticket-id> <status>",
	Short: "Set an issue's status",
	Long: `Set an issue's status. Any status may be set from any other.
Valid statuses: New, "In Progress", "In Review", Resolved, Closed, Reopened.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueStatusRun(args[0], args[1])
	},
}

var issueAssignCmd = &cobra.Command{
	Use:   "assign <ticket-id> [user-id]",
	Short: "Assign an issue to a user (omit user to unassign)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		assignee := ""
		if len(args) > 1 {
			assignee = args[1]
		}
		return issueAssignRun(args[0], assignee)
	},
}

func init() {
	issueAddCmd.Flags().StringVar(&issueTitle, "title", "", "Issue title (required)")
	issueAddCmd.Flags().StringVar(&issueDesc, "desc", "", "Issue description (required)")
	issueAddCmd.Flags().StringVar(&issueType, "type", string(models.IssueTypeTask), "Type: Bug, \"Feature Request\", Task, Enhancement")
	issueAddCmd.Flags().StringVar(&issuePriority, "priority", string(models.PriorityMedium), "Priority: Critical, High, Medium, Low")
	issueAddCmd.Flags().StringVar(&issueSeverity, "severity", string(models.SeverityMinor), "Severity: Blocker, Major, Minor, Trivial")
	issueAddCmd.Flags().StringSliceVar(&issueLabels, "label", nil, "Label (repeatable)")
	issueAddCmd.Flags().BoolVar(&issueSuggest, "suggest-priority", false, "Ask the advisory service to suggest a priority from the description")
	issueAddCmd.Flags().StringVar(&bugSteps, "steps", "", "Bug: steps to reproduce")
	issueAddCmd.Flags().StringVar(&bugExpected, "expected", "", "Bug: expected behavior")
	issueAddCmd.Flags().StringVar(&bugActual, "actual", "", "Bug: actual behavior")
	issueAddCmd.Flags().StringVar(&bugEnv, "env", "", "Bug: environment")
	issueAddCmd.Flags().StringVar(&bugVersion, "affects-version", "", "Bug: affected version")
	_ = issueAddCmd.MarkFlagRequired("title")
	_ = issueAddCmd.MarkFlagRequired("desc")

	issueListCmd.Flags().StringVar(&issueSearch, "search", "", "Substring match over ticket id and title")
	issueListCmd.Flags().StringVar(&issueStatus, "status", "", "Filter by status")
	issueListCmd.Flags().StringVar(&issuePriority, "priority", "", "Filter by priority")
	issueListCmd.Flags().StringVar(&issueType, "type", "", "Filter by type")
	issueListCmd.Flags().StringVar(&issueProject, "project", "", "Filter by project code")

	issueCmd.AddCommand(issueAddCmd)
	issueCmd.AddCommand(issueListCmd)
	issueCmd.AddCommand(issueShowCmd)
	issueCmd.AddCommand(issueStatusCmd)
	issueCmd.AddCommand(issueAssignCmd)
	rootCmd.AddCommand(issueCmd)
}

func issueAddRun(projectCode string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := s.GetProjectByCode(ctx, projectCode)
	if err != nil {
		return err
	}

	priority := models.Priority(issuePriority)
	if issueSuggest {
		if adv := getAdvisor(); adv != nil {
			priority = adv.SuggestPriority(ctx, issueDesc)
			ui.Info("Suggested priority: %s", output.PriorityColor(priority))
		} else {
			ui.Warning("Advisory service not configured (set ANTHROPIC_API_KEY); keeping %s", issuePriority)
		}
	}

	draft := &models.Issue{
		Title:       issueTitle,
		Description: issueDesc,
		ProjectID:   p.ID,
		Type:        models.IssueType(issueType),
		Priority:    priority,
		Severity:    models.Severity(issueSeverity),
		Labels:      issueLabels,
	}
	if draft.Type == models.IssueTypeBug {
		draft.Bug = &models.BugDetails{
			StepsToReproduce: bugSteps,
			ExpectedBehavior: bugExpected,
			ActualBehavior:   bugActual,
			Environment:      bugEnv,
			Version:          bugVersion,
		}
	}

	if err := s.CreateIssue(ctx, draft, actingUser()); err != nil {
		return fmt.Errorf("create issue: %w", err)
	}

	ui.Success("Created issue %s: %s", output.Cyan(draft.ID), draft.Title)
	return nil
}

func issueListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	criteria := query.Criteria{
		Search:   issueSearch,
		Status:   issueStatus,
		Priority: issuePriority,
		Type:     issueType,
	}
	if issueProject != "" {
		p, err := s.GetProjectByCode(ctx, issueProject)
		if err != nil {
			return err
		}
		criteria.ProjectID = p.ID
	}

	issues, err := s.ListIssues(ctx)
	if err != nil {
		return err
	}
	issues = query.Filter(issues, criteria)

	if len(issues) == 0 {
		ui.Info("No issues found.")
		return nil
	}

	// Cache project codes for display
	codes := make(map[string]string)

	table := ui.Table([]string{"ID", "Project", "Title", "Type", "Status", "Priority", "Assignee"})
	for _, issue := range issues {
		code := codes[issue.ProjectID]
		if code == "" {
			if p, err := s.GetProject(ctx, issue.ProjectID); err == nil {
				code = p.Code
				codes[issue.ProjectID] = code
			}
		}

		_ = table.Append([]string{
			output.Cyan(issue.ID),
			code,
			issue.Title,
			string(issue.Type),
			output.StatusColor(issue.Status),
			output.PriorityColor(issue.Priority),
			issue.AssigneeID,
		})
	}
	_ = table.Render()
	return nil
}

func issueShowRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := s.GetIssue(ctx, id)
	if err != nil {
		return err
	}

	projectName := issue.ProjectID
	if p, err := s.GetProject(ctx, issue.ProjectID); err == nil {
		projectName = fmt.Sprintf("%s (%s)", p.Name, p.Code)
	}

	fmt.Printf("%s  %s\n\n", output.Cyan(issue.ID), issue.Title)
	fmt.Printf("Project:   %s\n", projectName)
	fmt.Printf("Type:      %s\n", issue.Type)
	fmt.Printf("Status:    %s\n", output.StatusColor(issue.Status))
	fmt.Printf("Priority:  %s\n", output.PriorityColor(issue.Priority))
	fmt.Printf("Severity:  %s\n", issue.Severity)
	fmt.Printf("Reporter:  %s\n", userLabel(ctx, s, issue.ReporterID))
	if issue.AssigneeID != "" {
		fmt.Printf("Assignee:  %s\n", userLabel(ctx, s, issue.AssigneeID))
	}
	if len(issue.Labels) > 0 {
		fmt.Printf("Labels:    %s\n", strings.Join(issue.Labels, ", "))
	}
	fmt.Printf("Created:   %s\n", issue.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("Updated:   %s\n", issue.UpdatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("\n%s\n", issue.Description)

	if issue.Bug != nil {
		fmt.Println()
		if issue.Bug.StepsToReproduce != "" {
			fmt.Printf("Steps to reproduce:\n%s\n", issue.Bug.StepsToReproduce)
		}
		if issue.Bug.ExpectedBehavior != "" {
			fmt.Printf("Expected: %s\n", issue.Bug.ExpectedBehavior)
		}
		if issue.Bug.ActualBehavior != "" {
			fmt.Printf("Actual:   %s\n", issue.Bug.ActualBehavior)
		}
		if issue.Bug.Environment != "" {
			fmt.Printf("Env:      %s\n", issue.Bug.Environment)
		}
		if issue.Bug.Version != "" {
			fmt.Printf("Version:  %s\n", issue.Bug.Version)
		}
	}
	return nil
}

func issueStatusRun(id, status string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	ctrl := lifecycle.New(s)
	issue, err := ctrl.SetStatus(context.Background(), id, models.IssueStatus(status))
	if err != nil {
		return err
	}

	ui.Success("%s is now %s", output.Cyan(issue.ID), output.StatusColor(issue.Status))
	return nil
}

func issueAssignRun(id, assignee string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	ctrl := lifecycle.New(s)
	issue, err := ctrl.Assign(context.Background(), id, assignee)
	if err != nil {
		return err
	}

	if issue.AssigneeID == "" {
		ui.Success("%s is now unassigned", output.Cyan(issue.ID))
	} else {
		ui.Success("%s assigned to %s", output.Cyan(issue.ID), issue.AssigneeID)
	}
	return nil
}

func userLabel(ctx context.Context, s store.Store, id string) string {
	if u, err := s.GetUser(ctx, id); err == nil {
		return fmt.Sprintf("%s (%s)", u.Name, u.ID)
	}
	return id
}

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/omnitrack/omnitrack/internal/output"
	"github.com/omnitrack/omnitrack/internal/query"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectListRun()
	},
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectListRun()
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <code>",
	Short: "Show project details and its open issues",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectShowRun(args[0])
	},
}

func init() {
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	rootCmd.AddCommand(projectCmd)
}

func projectListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	projects, err := s.ListProjects(ctx)
	if err != nil {
		return err
	}
	issues, err := s.ListIssues(ctx)
	if err != nil {
		return err
	}
	counts := query.GroupByProject(issues, projects)
	byCode := make(map[string]int, len(counts))
	for _, c := range counts {
		byCode[c.ProjectCode] = c.Count
	}

	table := ui.Table([]string{"Code", "Name", "Owner", "Members", "Issues"})
	for _, p := range projects {
		_ = table.Append([]string{
			output.Cyan(p.Code),
			p.Name,
			p.OwnerID,
			fmt.Sprintf("%d", len(p.Members)),
			fmt.Sprintf("%d", byCode[p.Code]),
		})
	}
	_ = table.Render()
	return nil
}

func projectShowRun(code string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := s.GetProjectByCode(ctx, code)
	if err != nil {
		return err
	}

	fmt.Printf("%s  %s\n\n", output.Cyan(p.Code), p.Name)
	if p.Description != "" {
		fmt.Printf("%s\n\n", p.Description)
	}
	fmt.Printf("Owner:    %s\n", userLabel(ctx, s, p.OwnerID))
	fmt.Printf("Members:  %s\n", strings.Join(p.Members, ", "))

	issues, err := s.ListIssues(ctx)
	if err != nil {
		return err
	}
	issues = query.Filter(issues, query.Criteria{ProjectID: p.ID})
	if len(issues) == 0 {
		fmt.Println("\nNo issues.")
		return nil
	}

	fmt.Println()
	table := ui.Table([]string{"ID", "Title", "Status", "Priority"})
	for _, issue := range issues {
		_ = table.Append([]string{
			output.Cyan(issue.ID),
			issue.Title,
			output.StatusColor(issue.Status),
			output.PriorityColor(issue.Priority),
		})
	}
	_ = table.Render()
	return nil
}

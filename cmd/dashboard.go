package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omnitrack/omnitrack/internal/models"
	"github.com/omnitrack/omnitrack/internal/output"
	"github.com/omnitrack/omnitrack/internal/query"
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"dash"},
	Short:   "Show headline counts and breakdowns",
	RunE: func(cmd *cobra.Command, args []string) error {
		return dashboardRun()
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func dashboardRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issues, err := s.ListIssues(ctx)
	if err != nil {
		return err
	}
	projects, err := s.ListProjects(ctx)
	if err != nil {
		return err
	}

	stats := query.Stats(issues)
	fmt.Printf("Total:     %d\n", stats.Total)
	fmt.Printf("Open:      %s\n", output.Yellow(fmt.Sprintf("%d", stats.Open)))
	fmt.Printf("Critical:  %s\n", output.Red(fmt.Sprintf("%d", stats.Critical)))
	fmt.Printf("Resolved:  %s\n", output.Green(fmt.Sprintf("%d", stats.Resolved)))

	fmt.Println("\nBy status:")
	byStatus := query.GroupByStatus(issues)
	table := ui.Table([]string{"Status", "Count"})
	for _, st := range models.IssueStatuses {
		_ = table.Append([]string{output.StatusColor(st), fmt.Sprintf("%d", byStatus[st])})
	}
	_ = table.Render()

	fmt.Println("\nBy project:")
	table = ui.Table([]string{"Project", "Count"})
	for _, pc := range query.GroupByProject(issues, projects) {
		_ = table.Append([]string{output.Cyan(pc.ProjectCode), fmt.Sprintf("%d", pc.Count)})
	}
	_ = table.Render()

	return nil
}

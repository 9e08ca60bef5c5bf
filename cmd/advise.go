package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/omnitrack/omnitrack/internal/output"
)

var adviseCmd = &cobra.Command{
	Use:   "advise",
	Short: "AI-assisted triage helpers",
	Long: `Advisory helpers backed by the Anthropic API. These commands degrade
gracefully: without an API key they print the documented fallback values.`,
}

var adviseSummaryCmd = &cobra.Command{
	Use:   "summary <ticket-id>",
	Short: "Generate a one-sentence summary of an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return adviseSummaryRun(args[0])
	},
}

var advisePriorityCmd = &cobra.Command{
	Use:   "priority <description>",
	Short: "Suggest a priority for an issue description",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return advisePriorityRun(strings.Join(args, " "))
	},
}

func init() {
	adviseCmd.AddCommand(adviseSummaryCmd)
	adviseCmd.AddCommand(advisePriorityCmd)
	rootCmd.AddCommand(adviseCmd)
}

func adviseSummaryRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := s.GetIssue(ctx, id)
	if err != nil {
		return err
	}

	adv := getAdvisor()
	if adv == nil {
		return fmt.Errorf("advisory service not configured: set anthropic.api_key or ANTHROPIC_API_KEY")
	}

	ui.VerboseLog("requesting summary for %s", issue.ID)
	fmt.Println(adv.Summarize(ctx, issue.Title, issue.Description))
	return nil
}

func advisePriorityRun(description string) error {
	adv := getAdvisor()
	if adv == nil {
		return fmt.Errorf("advisory service not configured: set anthropic.api_key or ANTHROPIC_API_KEY")
	}

	priority := adv.SuggestPriority(context.Background(), description)
	fmt.Println(output.PriorityColor(priority))
	return nil
}

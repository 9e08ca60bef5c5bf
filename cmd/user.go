package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/omnitrack/omnitrack/internal/output"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "List team members",
	RunE: func(cmd *cobra.Command, args []string) error {
		return userListRun()
	},
}

var userListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List team members",
	RunE: func(cmd *cobra.Command, args []string) error {
		return userListRun()
	},
}

func init() {
	userCmd.AddCommand(userListCmd)
	rootCmd.AddCommand(userCmd)
}

func userListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	users, err := s.ListUsers(context.Background())
	if err != nil {
		return err
	}

	table := ui.Table([]string{"ID", "Name", "Email", "Role"})
	for _, u := range users {
		_ = table.Append([]string{output.Cyan(u.ID), u.Name, u.Email, string(u.Role)})
	}
	_ = table.Render()
	return nil
}

// Package cmd implements the worklog command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "worklog",
	Short: "worklog - career journal backend with an AI assistant",
	Long: `worklog is the backend for a personal career journal.

It stores short work-log entries in PostgreSQL, computes activity
streaks, and exposes a streaming chat assistant that can query the
caller's own logged history through function-calling tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Package cli holds the dailyplanner commands.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "dailyplanner",
	Short:        "Task planner that turns tasks into a day-by-day schedule",
	Long:         `dailyplanner stores tasks and working-hour overrides, allocates the tasks across days and serves the resulting calendar over Telegram.`,
	SilenceUsage: true,
	// Running without a subcommand starts the bot.
	RunE: runBot,
}

func init() {
	rootCmd.AddCommand(botCmd, allocateCmd, calendarCmd, migrateCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

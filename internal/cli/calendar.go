package cli

import (
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var (
	calendarUser      int64
	calendarStart     string
	calendarWithTasks bool
	calendarSkipEmpty bool
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Print one user's calendar as JSON",
	RunE:  runCalendar,
}

func init() {
	calendarCmd.Flags().Int64VarP(&calendarUser, "user", "u", 0, "Telegram id of the user")
	calendarCmd.Flags().StringVarP(&calendarStart, "start", "s", "", "First day to show, YYYY-MM-DD (default today)")
	calendarCmd.Flags().BoolVar(&calendarWithTasks, "with-tasks", false, "Include each execution's task")
	calendarCmd.Flags().BoolVar(&calendarSkipEmpty, "skip-empty", false, "Hide days without work")
	_ = calendarCmd.MarkFlagRequired("user")
}

func runCalendar(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start, err := parseStart(calendarStart)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.store.Users.FindByTelegramID(ctx, calendarUser)
	if err != nil {
		return err
	}
	from := time.Now()
	if start != nil {
		from = *start
	}
	days, err := a.calendar.GetCalendar(ctx, user.ID, from, calendarWithTasks, calendarSkipEmpty)
	if err != nil {
		return err
	}

	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(days)
}

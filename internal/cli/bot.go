package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"task-planner/internal/bot"
	"task-planner/internal/kv"
	"task-planner/internal/service"
)

const reportTimeout = 30 * time.Second

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot with periodic agenda reports",
	RunE:  runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.cfg.RequireTelegram(); err != nil {
		return err
	}

	telegramBot, err := bot.New(a.cfg.TelegramToken, bot.Deps{
		Users:         a.store.Users,
		Tasks:         a.tasks,
		ManualDays:    a.manualDays,
		Calendar:      a.calendar,
		Allocation:    a.allocation,
		Reminder:      a.reminder,
		CalendarLimit: a.calendarLimit,
		AllocateLimit: a.allocateLimit,
	}, a.log)
	if err != nil {
		return err
	}

	scheduler := service.NewSchedulerService(time.Local, a.log)
	if a.cfg.ReportInterval > 0 {
		if _, err := scheduler.ScheduleInterval(a.cfg.ReportInterval, func() {
			jobCtx, cancel := context.WithTimeout(ctx, reportTimeout)
			defer cancel()
			if err := telegramBot.SendDailyReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error().Err(err).Msg("send reports")
			}
		}); err != nil {
			return err
		}
	}
	if mem, ok := a.kv.(*kv.MemoryStore); ok && a.cfg.KV.SweepInterval > 0 {
		if _, err := scheduler.ScheduleSweep(a.cfg.KV.SweepInterval, mem); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	a.log.Info().Dur("report_interval", a.cfg.ReportInterval).Msg("daily planner bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.log.Info().Msg("shutdown complete")
	return nil
}

package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"task-planner/internal/model"
	"task-planner/internal/planner"
)

// CalendarSource is the read side the agenda is built from.
type CalendarSource interface {
	GetCalendar(ctx context.Context, ownerID uint, start time.Time, withTasks, skipEmpty bool) ([]DayView, error)
	ListFailed(ctx context.Context, ownerID uint) ([]FailedTaskView, error)
}

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	calendar CalendarSource
}

func NewReminderService(calendar CalendarSource) *ReminderService {
	return &ReminderService{calendar: calendar}
}

// DailySummary lists today's scheduled work, the next scheduled day and the
// tasks the last allocation could not place.
func (s *ReminderService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	today := planner.DateOf(now)
	days, err := s.calendar.GetCalendar(ctx, user.ID, today, true, true)
	if err != nil {
		return "", err
	}
	failed, err := s.calendar.ListFailed(ctx, user.ID)
	if err != nil {
		return "", err
	}

	var todays, next *DayView
	for i := range days {
		if days[i].Date.Equal(today) {
			todays = &days[i]
			continue
		}
		if next == nil {
			next = &days[i]
		}
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily agenda</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", today.Format(dateLayout)))

	builder.WriteString("🔥 <b>Today</b>\n")
	if todays == nil {
		builder.WriteString("— nothing scheduled\n")
	} else {
		builder.WriteString(formatDay(*todays))
	}

	if next != nil {
		builder.WriteString(fmt.Sprintf("\n⏭ <b>Next: %s</b>\n", next.Date.Format(dateLayout)))
		builder.WriteString(formatDay(*next))
	}

	if len(failed) > 0 {
		builder.WriteString("\n⚠️ <b>Could not be scheduled</b>\n")
		for _, f := range failed {
			builder.WriteString(formatFailed(f, today))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

// FormatCalendar renders days the way the agenda does, one block per day.
func FormatCalendar(days []DayView) string {
	if len(days) == 0 {
		return "— nothing scheduled"
	}
	var sb strings.Builder
	for i, d := range days {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(fmt.Sprintf("🗓 <b>%s</b> · %dh\n", d.Date.Format(dateLayout), d.WorkHours))
		sb.WriteString(formatDay(d))
	}
	return strings.TrimSpace(sb.String())
}

func formatDay(d DayView) string {
	if len(d.TaskExecutions) == 0 {
		return "— free day\n"
	}
	var sb strings.Builder
	for _, e := range d.TaskExecutions {
		sb.WriteString(fmt.Sprintf("• %s · %dh\n", taskLabel(e.Task, e.TaskID), e.DoingHours))
	}
	return sb.String()
}

func formatFailed(f FailedTaskView, today time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("• %s", taskLabel(f.Task, f.TaskID)))
	if f.Task != nil && f.Task.Deadline != nil {
		d := planner.DateOf(*f.Task.Deadline)
		if d.Before(today) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s, <b>overdue</b>", d.Format(dateLayout)))
		} else {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s", d.Format(dateLayout)))
		}
	}
	sb.WriteByte('\n')
	return sb.String()
}

func taskLabel(t *TaskView, id uint) string {
	if t == nil || strings.TrimSpace(t.Name) == "" {
		return fmt.Sprintf("task #%d", id)
	}
	return fmt.Sprintf("%s <i>#%d</i>", html.EscapeString(strings.TrimSpace(t.Name)), id)
}

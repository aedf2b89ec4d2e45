package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-planner/internal/errs"
	"task-planner/internal/model"
	"task-planner/internal/planner"
	"task-planner/internal/service"
)

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• /addtask name | hours=2 interest=5 importance=5 deadline=2025-01-31\n" +
	"• /edittask &lt;id&gt; [name] | options (deadline=none clears it)\n" +
	"• /tasks — your tasks\n" +
	"• /deltask &lt;id&gt; — delete a task\n" +
	"• /manualday YYYY-MM-DD hours — pin a day's working hours\n" +
	"• /manualdays — pinned days\n" +
	"• /delmanualday &lt;id&gt; — unpin a day\n" +
	"• /allocate &lt;method&gt; [YYYY-MM-DD] — rebuild the schedule\n" +
	"• /calendar [YYYY-MM-DD] [all] — scheduled days\n" +
	"• /agenda — today's work\n" +
	"• /failed — tasks that could not be scheduled"

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
		return b.sendText(ctx, msg.Chat.ID, "I did not understand that. Try /help.")
	}

	b.log.Debug().
		Int64("telegram_id", msg.From.ID).
		Str("command", msg.Command()).
		Str("args", msg.CommandArguments()).
		Msg("command")

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	if err := b.handleCommand(ctx, msg, user); err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	return nil
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.sendText(ctx, chatID, helpText)
	case "addtask":
		return b.handleAddTask(ctx, chatID, user, args)
	case "edittask":
		return b.handleEditTask(ctx, chatID, user, args)
	case "tasks":
		return b.sendTaskList(ctx, chatID, user)
	case "deltask":
		return b.handleDeleteTask(ctx, chatID, user, args)
	case "manualday":
		return b.handleManualDay(ctx, chatID, user, args)
	case "manualdays":
		return b.handleListManualDays(ctx, chatID, user)
	case "delmanualday":
		return b.handleDeleteManualDay(ctx, chatID, user, args)
	case "allocate":
		return b.handleAllocate(ctx, chatID, user, args)
	case "calendar":
		return b.handleCalendar(ctx, chatID, user, args)
	case "agenda":
		return b.handleAgenda(ctx, chatID, user)
	case "failed":
		return b.handleFailed(ctx, chatID, user)
	default:
		return b.sendText(ctx, chatID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(msg.Text)
	var run func(*model.User) error
	switch text {
	case menuLabelTasks:
		run = func(u *model.User) error { return b.sendTaskList(ctx, msg.Chat.ID, u) }
	case menuLabelCalendar:
		run = func(u *model.User) error { return b.handleCalendar(ctx, msg.Chat.ID, u, "") }
	case menuLabelAgenda:
		run = func(u *model.User) error { return b.handleAgenda(ctx, msg.Chat.ID, u) }
	case menuLabelHelp:
		return true, b.sendText(ctx, msg.Chat.ID, helpText)
	default:
		return false, nil
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err == nil {
		err = run(user)
	}
	if err != nil {
		return true, b.replyError(ctx, msg.Chat.ID, err)
	}
	return true, nil
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I split your tasks into a day-by-day plan.</b>\n\n%s", escape(name), helpText)
	return b.sendText(ctx, msg.Chat.ID, text)
}

func (b *Bot) handleAddTask(ctx context.Context, chatID int64, user *model.User, raw string) error {
	args, err := parseTaskArgs(raw)
	if err != nil {
		return err
	}
	task, err := b.deps.Tasks.CreateTask(ctx, user.ID, args.input)
	if err != nil {
		return err
	}
	return b.sendText(ctx, chatID, "✅ Added "+formatTask(*task))
}

func (b *Bot) handleEditTask(ctx context.Context, chatID int64, user *model.User, raw string) error {
	id, args, err := parseEditArgs(raw)
	if err != nil {
		return err
	}
	task, err := b.deps.Tasks.UpdateTask(ctx, user.ID, id, args.input)
	if err != nil {
		return err
	}
	if args.clearDeadline {
		if task, err = b.deps.Tasks.ClearDeadline(ctx, user.ID, id); err != nil {
			return err
		}
	}
	return b.sendText(ctx, chatID, "✏️ Updated "+formatTask(*task))
}

func (b *Bot) handleDeleteTask(ctx context.Context, chatID int64, user *model.User, raw string) error {
	id, err := parseID(raw)
	if err != nil {
		return err
	}
	task, err := b.deps.Tasks.GetTask(ctx, user.ID, id)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Delete \"%s\"?", escape(shortTitle(task.Name, 40)))
	return b.sendWithReplyMarkup(ctx, chatID, text, confirmDeleteKeyboard(task.ID))
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, user *model.User) error {
	tasks, err := b.deps.Tasks.ListTasks(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return b.sendText(ctx, chatID, "No tasks yet. Add one with /addtask.")
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>Tasks</b>\n")
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tasks))
	for _, t := range tasks {
		sb.WriteString(formatTask(t))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+shortTitle(t.Name, 24), fmt.Sprintf("%s%d", cbDeletePrefix, t.ID)),
		))
	}
	return b.sendWithReplyMarkup(ctx, chatID, strings.TrimSpace(sb.String()), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) handleManualDay(ctx context.Context, chatID int64, user *model.User, raw string) error {
	date, hours, err := parseManualDayArgs(raw)
	if err != nil {
		return err
	}
	day, err := b.deps.ManualDays.SetManualDay(ctx, user.ID, date, hours)
	if err != nil {
		return err
	}
	return b.sendText(ctx, chatID, fmt.Sprintf("📌 %s pinned to %dh <i>#%d</i>", day.Date.Format(dateLayout), day.WorkHours, day.ID))
}

func (b *Bot) handleListManualDays(ctx context.Context, chatID int64, user *model.User) error {
	days, err := b.deps.ManualDays.ListManualDays(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(days) == 0 {
		return b.sendText(ctx, chatID, "No pinned days.")
	}
	var sb strings.Builder
	sb.WriteString("📌 <b>Pinned days</b>\n")
	for _, d := range days {
		sb.WriteString(fmt.Sprintf("• %s · %dh <i>#%d</i>\n", planner.DateOf(d.Date).Format(dateLayout), d.WorkHours, d.ID))
	}
	return b.sendText(ctx, chatID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleDeleteManualDay(ctx context.Context, chatID int64, user *model.User, raw string) error {
	id, err := parseID(raw)
	if err != nil {
		return err
	}
	if err := b.deps.ManualDays.DeleteManualDay(ctx, user.ID, id); err != nil {
		return err
	}
	return b.sendText(ctx, chatID, "📌 Day unpinned.")
}

func (b *Bot) handleAllocate(ctx context.Context, chatID int64, user *model.User, raw string) error {
	if err := b.allow(ctx, b.deps.AllocateLimit, routeAllocate, user); err != nil {
		return err
	}
	method, start, err := parseAllocateArgs(raw)
	if err != nil {
		return b.sendText(ctx, chatID, escape(errs.Message(err))+"\nMethods: "+methodList())
	}
	report, err := b.deps.Allocation.Allocate(ctx, service.AllocationRequest{OwnerID: user.ID, Method: method, StartDate: start})
	if errs.KindOf(err) == errs.KindInvalidMethod {
		return b.sendText(ctx, chatID, "⚠️ "+escape(errs.Message(err))+"\nMethods: "+methodList())
	}
	if err != nil {
		return err
	}
	text := fmt.Sprintf("🧮 Schedule rebuilt from %s with <b>%s</b>: %d days, %d blocks, %d unscheduled.",
		report.StartDate.Format(dateLayout), report.Method, report.Days, report.Executions, report.Failed)
	return b.sendText(ctx, chatID, text)
}

func (b *Bot) handleCalendar(ctx context.Context, chatID int64, user *model.User, raw string) error {
	if err := b.allow(ctx, b.deps.CalendarLimit, routeCalendar, user); err != nil {
		return err
	}
	start, all, err := parseCalendarArgs(raw, planner.DateOf(b.now()))
	if err != nil {
		return err
	}
	days, err := b.deps.Calendar.GetCalendar(ctx, user.ID, start, true, !all)
	if err != nil {
		return err
	}
	return b.sendText(ctx, chatID, service.FormatCalendar(days))
}

func (b *Bot) handleAgenda(ctx context.Context, chatID int64, user *model.User) error {
	if err := b.allow(ctx, b.deps.CalendarLimit, routeCalendar, user); err != nil {
		return err
	}
	text, err := b.deps.Reminder.DailySummary(ctx, *user, b.now())
	if err != nil {
		return err
	}
	return b.sendText(ctx, chatID, text)
}

func (b *Bot) handleFailed(ctx context.Context, chatID int64, user *model.User) error {
	if err := b.allow(ctx, b.deps.CalendarLimit, routeCalendar, user); err != nil {
		return err
	}
	failed, err := b.deps.Calendar.ListFailed(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(failed) == 0 {
		return b.sendText(ctx, chatID, "✅ Every task fits the schedule.")
	}
	var sb strings.Builder
	sb.WriteString("⚠️ <b>Could not be scheduled</b>\n")
	for _, f := range failed {
		name := fmt.Sprintf("task #%d", f.TaskID)
		if f.Task != nil {
			name = escape(f.Task.Name)
		}
		sb.WriteString(fmt.Sprintf("• %s <i>#%d</i>\n", name, f.TaskID))
	}
	return b.sendText(ctx, chatID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	b.ack(cb)
	chatID := cb.Message.Chat.ID

	switch data := cb.Data; {
	case strings.HasPrefix(data, cbDeletePrefix):
		id, err := parseCallbackID(data, cbDeletePrefix)
		if err != nil {
			return nil
		}
		user, err := b.ensureUser(ctx, cb.From)
		if err != nil {
			return b.replyError(ctx, chatID, err)
		}
		if err := b.handleDeleteTask(ctx, chatID, user, fmt.Sprint(id)); err != nil {
			return b.replyError(ctx, chatID, err)
		}
		return nil
	case strings.HasPrefix(data, cbConfirmPrefix):
		id, err := parseCallbackID(data, cbConfirmPrefix)
		if err != nil {
			return nil
		}
		user, err := b.ensureUser(ctx, cb.From)
		if err != nil {
			return b.replyError(ctx, chatID, err)
		}
		if err := b.deps.Tasks.DeleteTask(ctx, user.ID, id); err != nil {
			return b.replyError(ctx, chatID, err)
		}
		if err := b.sendText(ctx, chatID, "🗑 Task deleted."); err != nil {
			return err
		}
		return b.sendTaskList(ctx, chatID, user)
	default:
		return nil
	}
}

func formatTask(t model.Task) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>%s</b> <i>#%d</i> · %dh · interest %d · importance %d",
		escape(t.Name), t.ID, t.WorkHours, t.Interest, t.Importance))
	if t.Deadline != nil {
		sb.WriteString(" · due " + planner.DateOf(*t.Deadline).Format(dateLayout))
	}
	sb.WriteByte('\n')
	return sb.String()
}

func methodList() string {
	names := make([]string, 0, len(planner.Methods()))
	for _, m := range planner.Methods() {
		names = append(names, m.String())
	}
	return strings.Join(names, ", ")
}

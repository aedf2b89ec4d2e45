package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"task-planner/internal/errs"
	"task-planner/internal/model"
	"task-planner/internal/ratelimit"
	"task-planner/internal/repository"
	"task-planner/internal/service"
)

const (
	routeCalendar = "/calendar"
	routeAllocate = "/allocate"
)

const (
	cbDeletePrefix  = "delete:"
	cbConfirmPrefix = "confirm:"
	cbCancelPrefix  = "cancel:"
)

const (
	menuLabelTasks    = "📋 Tasks"
	menuLabelCalendar = "🗓 Calendar"
	menuLabelAgenda   = "🔥 Agenda"
	menuLabelHelp     = "ℹ️ Help"
)

// Telegram allows about 30 messages per second per bot.
const (
	sendRate  = 25
	sendBurst = 5
)

// api is the part of *tgbotapi.BotAPI the bot uses.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Deps are the services behind the bot commands.
type Deps struct {
	Users         *repository.UserRepository
	Tasks         *service.TaskService
	ManualDays    *service.ManualDayService
	Calendar      *service.CalendarService
	Allocation    *service.AllocationService
	Reminder      *service.ReminderService
	CalendarLimit *ratelimit.Limiter
	AllocateLimit *ratelimit.Limiter
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api  api
	deps Deps
	send *rate.Limiter
	now  func() time.Time
	log  zerolog.Logger
}

func New(token string, deps Deps, log zerolog.Logger) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "create bot api")
	}
	b := newBot(botAPI, deps, log)
	b.log.Info().Str("account", botAPI.Self.UserName).Msg("bot authorized")
	return b, nil
}

func newBot(a api, deps Deps, log zerolog.Logger) *Bot {
	return &Bot{
		api:  a,
		deps: deps,
		send: rate.NewLimiter(rate.Limit(sendRate), sendBurst),
		now:  time.Now,
		log:  log.With().Str("component", "bot").Logger(),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Error().Err(err).Msg("handle callback")
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Error().Err(err).Msg("handle message")
			}
		}
	}

	return ctx.Err()
}

// SendDailyReports sends the agenda to every known user.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.deps.Users.ListAll(ctx)
	if err != nil {
		return err
	}
	now := b.now()
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		text, err := b.deps.Reminder.DailySummary(ctx, user, now)
		if err != nil {
			b.log.Error().Err(err).Int64("telegram_id", user.TelegramID).Msg("build agenda")
			continue
		}
		if err := b.sendText(ctx, user.TelegramID, text); err != nil {
			b.log.Error().Err(err).Int64("telegram_id", user.TelegramID).Msg("send agenda")
		}
	}
	return nil
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.deps.Users.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

// allow applies the route's limiter to user.
func (b *Bot) allow(ctx context.Context, l *ratelimit.Limiter, route string, user *model.User) error {
	if l == nil {
		return nil
	}
	return l.Allow(ctx, route, ratelimit.UserIdentity(user.ID))
}

// replyError turns err into a chat reply. Domain errors are shown as is;
// anything else is logged and answered generically.
func (b *Bot) replyError(ctx context.Context, chatID int64, err error) error {
	if errs.KindOf(err) == errs.KindInternal {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("command failed")
	}
	return b.sendText(ctx, chatID, "⚠️ "+escape(errs.Message(err)))
}

func (b *Bot) sendText(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	return b.sendMessage(ctx, msg)
}

func (b *Bot) sendWithReplyMarkup(ctx context.Context, chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	return b.sendMessage(ctx, msg)
}

func (b *Bot) sendMessage(ctx context.Context, msg tgbotapi.Chattable) error {
	if err := b.send.Wait(ctx); err != nil {
		return err
	}
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) ack(cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn().Err(err).Msg("callback ack")
	}
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelTasks),
			tgbotapi.NewKeyboardButton(menuLabelCalendar),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelAgenda),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func confirmDeleteKeyboard(taskID uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Delete", fmt.Sprintf("%s%d", cbConfirmPrefix, taskID)),
			tgbotapi.NewInlineKeyboardButtonData("↩️ Keep", fmt.Sprintf("%s%d", cbCancelPrefix, taskID)),
		),
	)
}

func escape(s string) string {
	return html.EscapeString(s)
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

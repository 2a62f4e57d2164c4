package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"simple-todos/internal/model"
	"simple-todos/internal/service"
)

const (
	cbCheckPrefix   = "check:"
	cbUncheckPrefix = "uncheck:"
	cbRemovePrefix  = "remove:"
)

const (
	iconOpen    = "⬜"
	iconChecked = "✅"
	iconRemove  = "🗑"
	maxTitleLen = 28
)

// sender is the subset of the Telegram API the bot uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot exposes the task methods to Telegram chats. A chat becomes a caller
// once /login links it to an account.
type Bot struct {
	api      sender
	updates  func(ctx context.Context) tgbotapi.UpdatesChannel
	tasks    *service.TaskService
	accounts *service.AccountService
	log      zerolog.Logger

	mu       sync.Mutex
	awaiting map[int64]bool
	hide     map[int64]bool
}

func New(token string, tasks *service.TaskService, accounts *service.AccountService, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Info().Str("account", api.Self.UserName).Msg("bot authorized")

	b := newBot(api, tasks, accounts, log)
	b.updates = func(ctx context.Context) tgbotapi.UpdatesChannel {
		cfg := tgbotapi.NewUpdate(0)
		cfg.Timeout = 60
		go func() {
			<-ctx.Done()
			api.StopReceivingUpdates()
		}()
		return api.GetUpdatesChan(cfg)
	}
	return b, nil
}

func newBot(api sender, tasks *service.TaskService, accounts *service.AccountService, log zerolog.Logger) *Bot {
	return &Bot{
		api:      api,
		tasks:    tasks,
		accounts: accounts,
		log:      log.With().Str("component", "bot").Logger(),
		awaiting: make(map[int64]bool),
		hide:     make(map[int64]bool),
	}
}

// Start polls updates until ctx is cancelled. It returns as soon as ctx is
// done and does not wait for an in-flight long poll to finish.
func (b *Bot) Start(ctx context.Context) error {
	b.log.Info().Msg("start polling updates")
	updates := b.updates(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return ctx.Err()
			}
			if err := b.HandleUpdate(ctx, update); err != nil {
				b.log.Error().Err(err).Int("update_id", update.UpdateID).Msg("handle update")
			}
		}
	}
}

// HandleUpdate dispatches a single update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() || update.Message.From == nil {
			return nil
		}
		return b.handleMessage(ctx, update.Message)
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if !msg.IsCommand() {
		if b.takeAwaiting(msg.From.ID) {
			return b.insert(ctx, msg.Chat.ID, msg.From.ID, msg.Text)
		}
		return b.sendText(msg.Chat.ID, "Send /add to create a task or /help for the list of commands.")
	}

	b.log.Debug().Int64("telegram_id", msg.From.ID).Str("command", msg.Command()).Msg("command received")
	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start", "help":
		return b.sendText(msg.Chat.ID, helpText)
	case "login":
		return b.handleLogin(ctx, msg, args)
	case "logout":
		if err := b.accounts.UnlinkTelegram(ctx, msg.From.ID); err != nil {
			return err
		}
		return b.sendText(msg.Chat.ID, "Logged out.")
	case "add":
		if args == "" {
			b.setAwaiting(msg.From.ID)
			return b.sendText(msg.Chat.ID, "Type the new task.")
		}
		return b.insert(ctx, msg.Chat.ID, msg.From.ID, args)
	case "tasks":
		return b.sendTaskList(ctx, msg.Chat.ID, msg.From.ID)
	case "hide", "show":
		b.setHide(msg.From.ID, msg.Command() == "hide")
		return b.sendTaskList(ctx, msg.Chat.ID, msg.From.ID)
	case "cancel":
		b.takeAwaiting(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleLogin(ctx context.Context, msg *tgbotapi.Message, args string) error {
	// The command carries the password in clear text.
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
		b.log.Warn().Err(err).Int64("telegram_id", msg.From.ID).Msg("delete login message")
	}

	parts := strings.Fields(args)
	if len(parts) != 2 {
		return b.sendText(msg.Chat.ID, "Usage: /login &lt;username&gt; &lt;password&gt;")
	}
	user, err := b.accounts.LinkTelegram(ctx, msg.From.ID, parts[0], parts[1])
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("Logged in as <b>%s</b>.", escape(user.Username)))
}

func (b *Bot) insert(ctx context.Context, chatID, telegramID int64, text string) error {
	caller, err := b.accounts.CallerForTelegram(ctx, telegramID)
	if err != nil {
		return err
	}
	if _, err := b.tasks.Insert(ctx, caller, strings.TrimSpace(text)); err != nil {
		return b.replyError(chatID, err)
	}
	return b.sendTaskList(ctx, chatID, telegramID)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn().Err(err).Msg("callback ack")
	}

	caller, err := b.accounts.CallerForTelegram(ctx, cb.From.ID)
	if err != nil {
		return err
	}

	chatID := cb.Message.Chat.ID
	switch data := cb.Data; {
	case strings.HasPrefix(data, cbCheckPrefix):
		err = b.tasks.SetIsChecked(ctx, caller, strings.TrimPrefix(data, cbCheckPrefix), true)
	case strings.HasPrefix(data, cbUncheckPrefix):
		err = b.tasks.SetIsChecked(ctx, caller, strings.TrimPrefix(data, cbUncheckPrefix), false)
	case strings.HasPrefix(data, cbRemovePrefix):
		err = b.tasks.Remove(ctx, caller, strings.TrimPrefix(data, cbRemovePrefix))
	default:
		return nil
	}
	if err != nil {
		return b.replyError(chatID, err)
	}
	return b.sendTaskList(ctx, chatID, cb.From.ID)
}

func (b *Bot) sendTaskList(ctx context.Context, chatID, telegramID int64) error {
	caller, err := b.accounts.CallerForTelegram(ctx, telegramID)
	if err != nil {
		return err
	}
	list, err := b.tasks.List(ctx, caller, b.hiding(telegramID))
	if err != nil {
		return b.replyError(chatID, err)
	}

	header := fmt.Sprintf("📝 <b>To-Do List</b> (%d)", list.Pending)
	if len(list.Tasks) == 0 {
		return b.sendText(chatID, header+"\nNothing here. Add a task with /add.")
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list.Tasks))
	for _, task := range list.Tasks {
		rows = append(rows, taskRow(task))
	}
	msg := tgbotapi.NewMessage(chatID, header)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = b.api.Send(msg)
	return err
}

func taskRow(task model.Task) []tgbotapi.InlineKeyboardButton {
	icon, data := iconOpen, cbCheckPrefix+task.ID
	if task.IsChecked {
		icon, data = iconChecked, cbUncheckPrefix+task.ID
	}
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(icon+" "+shortTitle(task.Text, maxTitleLen), data),
		tgbotapi.NewInlineKeyboardButtonData(iconRemove, cbRemovePrefix+task.ID),
	)
}

// replyError shows method rejections to the user and returns anything else.
func (b *Bot) replyError(chatID int64, err error) error {
	if me, ok := service.AsMethodError(err); ok {
		if errors.Is(err, service.ErrNotAuthorized) {
			return b.sendText(chatID, escape(me.Message)+" Use /login first.")
		}
		return b.sendText(chatID, escape(me.Message))
	}
	return err
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) setAwaiting(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.awaiting[userID] = true
}

func (b *Bot) takeAwaiting(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	ok := b.awaiting[userID]
	delete(b.awaiting, userID)
	return ok
}

func (b *Bot) setHide(userID int64, hide bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hide[userID] = hide
}

func (b *Bot) hiding(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hide[userID]
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

func escape(s string) string {
	return html.EscapeString(s)
}

const helpText = "📝 <b>Simple To-Dos</b>\n" +
	"• /login &lt;username&gt; &lt;password&gt; - link this chat to your account\n" +
	"• /tasks - show your tasks, tap one to toggle it\n" +
	"• /add &lt;text&gt; - add a task\n" +
	"• /hide - hide completed tasks\n" +
	"• /show - show completed tasks\n" +
	"• /logout - unlink this chat\n" +
	"• /cancel - cancel the current input"

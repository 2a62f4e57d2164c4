package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simple-todos/internal/model"
	"simple-todos/internal/repository"
	"simple-todos/internal/service"
)

type fakeSender struct {
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) callbackAcks() int {
	n := 0
	for _, c := range f.requests {
		if _, ok := c.(tgbotapi.CallbackConfig); ok {
			n++
		}
	}
	return n
}

func (f *fakeSender) deleted() []tgbotapi.DeleteMessageConfig {
	var out []tgbotapi.DeleteMessageConfig
	for _, c := range f.requests {
		if d, ok := c.(tgbotapi.DeleteMessageConfig); ok {
			out = append(out, d)
		}
	}
	return out
}

func (f *fakeSender) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

type botEnv struct {
	bot      *Bot
	api      *fakeSender
	tasks    *repository.TaskRepository
	accounts *service.AccountService
}

func newBotEnv(t *testing.T) botEnv {
	t.Helper()
	db, err := repository.NewDB("file:"+uuid.NewString()+"?mode=memory&cache=shared", zerolog.Nop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	tasks := repository.NewTaskRepository(db)
	accounts := service.NewAccountService(repository.NewUserRepository(db), repository.NewSessionRepository(db), time.Hour, zerolog.Nop())
	api := &fakeSender{}
	return botEnv{
		bot:      newBot(api, service.NewTaskService(tasks, zerolog.Nop()), accounts, zerolog.Nop()),
		api:      api,
		tasks:    tasks,
		accounts: accounts,
	}
}

func message(from int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: int(from)*100 + len(text),
		From:      &tgbotapi.User{ID: from},
		Chat:      &tgbotapi.Chat{ID: from, Type: "private"},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func callback(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: from, Type: "private"}},
		Data:    data,
	}}
}

func (e botEnv) send(t *testing.T, update tgbotapi.Update) {
	t.Helper()
	require.NoError(t, e.bot.HandleUpdate(context.Background(), update))
}

func (e botEnv) login(t *testing.T, telegramID int64, username string) string {
	t.Helper()
	user, err := e.accounts.CreateUser(context.Background(), username, "secret")
	require.NoError(t, err)
	e.send(t, message(telegramID, "/login "+username+" secret"))
	assert.Contains(t, e.api.last(t).Text, "Logged in as")
	return user.ID
}

func (e botEnv) count(t *testing.T) int64 {
	t.Helper()
	n, err := e.tasks.CountAll(context.Background())
	require.NoError(t, err)
	return n
}

func TestBot_RequiresLogin(t *testing.T) {
	env := newBotEnv(t)

	env.send(t, message(1, "/add Buy milk"))
	assert.Contains(t, env.api.last(t).Text, "Not authorized")
	assert.EqualValues(t, 0, env.count(t))

	env.send(t, message(1, "/login alice wrong"))
	assert.Contains(t, env.api.last(t).Text, "Invalid username or password")
}

func TestBot_AddAndList(t *testing.T) {
	env := newBotEnv(t)
	owner := env.login(t, 1, "alice")

	env.send(t, message(1, "/add Buy milk"))
	last := env.api.last(t)
	assert.Contains(t, last.Text, "(1)")
	markup, ok := last.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Contains(t, markup.InlineKeyboard[0][0].Text, "Buy milk")

	env.send(t, message(1, "/add"))
	env.send(t, message(1, "Walk dog"))

	all, err := env.tasks.ListByOwner(context.Background(), owner, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Walk dog", all[0].Text)
}

func TestBot_ToggleAndRemoveCallbacks(t *testing.T) {
	env := newBotEnv(t)
	owner := env.login(t, 1, "alice")
	ctx := context.Background()
	id, err := env.tasks.Insert(ctx, &model.Task{Text: "Test Task", UserID: owner})
	require.NoError(t, err)

	env.send(t, callback(1, cbCheckPrefix+id))
	task, err := env.tasks.FindByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, task.IsChecked)
	assert.Equal(t, 1, env.api.callbackAcks())

	env.send(t, message(1, "/hide"))
	assert.Contains(t, env.api.last(t).Text, "Nothing here")

	env.send(t, callback(1, cbUncheckPrefix+id))
	task, err = env.tasks.FindByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, task.IsChecked)

	env.login(t, 2, "bob")
	env.send(t, callback(2, cbRemovePrefix+id))
	assert.Contains(t, env.api.last(t).Text, "Access denied")
	assert.EqualValues(t, 1, env.count(t))

	env.send(t, callback(1, cbRemovePrefix+id))
	assert.EqualValues(t, 0, env.count(t))
}

func TestBot_LoginMessageIsDeleted(t *testing.T) {
	env := newBotEnv(t)
	_, err := env.accounts.CreateUser(context.Background(), "alice", "secret")
	require.NoError(t, err)

	testCases := []struct {
		name string
		text string
	}{
		{name: "wrong password", text: "/login alice wrong"},
		{name: "malformed", text: "/login alice"},
		{name: "success", text: "/login alice secret"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			update := message(1, tc.text)
			before := len(env.api.deleted())

			env.send(t, update)

			deleted := env.api.deleted()
			require.Len(t, deleted, before+1)
			assert.Equal(t, update.Message.Chat.ID, deleted[before].ChatID)
			assert.Equal(t, update.Message.MessageID, deleted[before].MessageID)
		})
	}
}

func TestBot_StartReturnsOnCancel(t *testing.T) {
	env := newBotEnv(t)
	updates := make(chan tgbotapi.Update, 1)
	env.bot.updates = func(context.Context) tgbotapi.UpdatesChannel { return updates }
	updates <- message(1, "/help")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.bot.Start(ctx) }()

	require.Eventually(t, func() bool { return len(updates) == 0 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Start kept waiting on the update channel")
	}
}

func TestBot_Logout(t *testing.T) {
	env := newBotEnv(t)
	env.login(t, 1, "alice")

	env.send(t, message(1, "/logout"))
	env.send(t, message(1, "/tasks"))
	assert.Contains(t, env.api.last(t).Text, "Not authorized")
}

func TestBot_IgnoresGroupChats(t *testing.T) {
	env := newBotEnv(t)
	update := message(1, "/help")
	update.Message.Chat.Type = "group"

	env.send(t, update)
	assert.Empty(t, env.api.sent)
}

func TestShortTitle(t *testing.T) {
	assert.Equal(t, "short", shortTitle(" short ", 10))
	assert.Equal(t, "abcd…", shortTitle("abcdefgh", 5))
	assert.Equal(t, "a b", shortTitle("a\nb", 5))
}

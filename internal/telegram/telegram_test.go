package telegram

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"tg_concierge_bot/internal/config"
	"tg_concierge_bot/internal/delivery"
	"tg_concierge_bot/internal/event"
)

type fakeBot struct {
	startedWith context.Context

	sendParams []*bot.SendMessageParams
	sendResult *models.Message
	sendErr    error

	deleteParams []*bot.DeleteMessageParams
	deleteErr    error

	me       *models.User
	getMeErr error
	meCalls  int

	answered []*bot.AnswerCallbackQueryParams
}

func (f *fakeBot) Start(ctx context.Context) {
	f.startedWith = ctx
}

func (f *fakeBot) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.sendParams = append(f.sendParams, params)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	if f.sendResult != nil {
		return f.sendResult, nil
	}
	return &models.Message{ID: len(f.sendParams)}, nil
}

func (f *fakeBot) DeleteMessage(_ context.Context, params *bot.DeleteMessageParams) (bool, error) {
	f.deleteParams = append(f.deleteParams, params)
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	return true, nil
}

func (f *fakeBot) GetMe(context.Context) (*models.User, error) {
	f.meCalls++
	if f.getMeErr != nil {
		return nil, f.getMeErr
	}
	return f.me, nil
}

func (f *fakeBot) AnswerCallbackQuery(_ context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	f.answered = append(f.answered, params)
	return true, nil
}

type fakeSubmitter struct {
	events []event.Event
	accept bool
}

func (f *fakeSubmitter) Submit(ev event.Event) bool {
	f.events = append(f.events, ev)
	return f.accept
}

func stubCreateBot(t *testing.T, fake botAPI, err error) {
	t.Helper()
	prev := createBot
	createBot = func(string, ...bot.Option) (botAPI, error) {
		return fake, err
	}
	t.Cleanup(func() { createBot = prev })
}

func nullLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func TestNewClientCreatesBot(t *testing.T) {
	var gotToken string
	var gotOptions []bot.Option
	fake := &fakeBot{}

	prev := createBot
	createBot = func(token string, options ...bot.Option) (botAPI, error) {
		gotToken = token
		gotOptions = options
		return fake, nil
	}
	t.Cleanup(func() { createBot = prev })

	client, err := NewClient(config.Config{TelegramToken: "token-123"}, &fakeSubmitter{accept: true}, nullLogger())
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if client == nil || client.bot == nil {
		t.Fatalf("expected client and bot to be initialized")
	}
	if gotToken != "token-123" {
		t.Fatalf("expected token token-123, got %q", gotToken)
	}
	if len(gotOptions) != 3 {
		t.Fatalf("expected 3 bot options (allowed updates, default handler, error handler), got %d", len(gotOptions))
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient(config.Config{}, &fakeSubmitter{}, nullLogger()); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestNewClientPropagatesBotError(t *testing.T) {
	expected := errors.New("boom")
	stubCreateBot(t, nil, expected)

	_, err := NewClient(config.Config{TelegramToken: "token"}, &fakeSubmitter{}, nil)
	if !errors.Is(err, expected) {
		t.Fatalf("expected error %v, got %v", expected, err)
	}
}

func TestClientStartLogsAndUsesContext(t *testing.T) {
	hookLogger, hook := logtest.NewNullLogger()
	fake := &fakeBot{}
	client := &Client{
		bot:    fake,
		logger: logrus.NewEntry(hookLogger),
	}

	ctx := context.Background()
	client.Start(ctx)

	if fake.startedWith != ctx {
		t.Fatalf("expected bot to start with provided context")
	}

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries (start/stop), got %d", len(entries))
	}
	if entries[0].Data["event"] != "telegram_listen" {
		t.Fatalf("expected start log event, got %v", entries[0].Data["event"])
	}
	if entries[1].Data["event"] != "telegram_stopped" {
		t.Fatalf("expected stop log event, got %v", entries[1].Data["event"])
	}
}

func TestUpdateHandlerConvertsAndSubmits(t *testing.T) {
	fake := &fakeBot{}
	submitter := &fakeSubmitter{accept: true}
	client := &Client{bot: fake, logger: nullLogger()}
	handler := client.updateHandler(submitter)

	handler(context.Background(), nil, &models.Update{
		Message: &models.Message{
			ID:   5,
			From: &models.User{ID: 10, FirstName: "Alice"},
			Chat: models.Chat{ID: 10, Type: "private"},
			Text: "/menu",
		},
	})

	if len(submitter.events) != 1 {
		t.Fatalf("expected 1 submitted event, got %d", len(submitter.events))
	}
	cmd, ok := submitter.events[0].(event.Command)
	if !ok || cmd.Name != "menu" {
		t.Fatalf("expected /menu command event, got %#v", submitter.events[0])
	}
}

func TestUpdateHandlerAnswersCallbacks(t *testing.T) {
	fake := &fakeBot{}
	submitter := &fakeSubmitter{accept: true}
	client := &Client{bot: fake, logger: nullLogger()}
	handler := client.updateHandler(submitter)

	handler(context.Background(), nil, &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "cb-1",
			From: models.User{ID: 10},
			Data: "tickets",
			Message: models.MaybeInaccessibleMessage{
				Type:    models.MaybeInaccessibleMessageTypeMessage,
				Message: &models.Message{ID: 9, Chat: models.Chat{ID: -50, Type: "supergroup"}},
			},
		},
	})

	if len(fake.answered) != 1 || fake.answered[0].CallbackQueryID != "cb-1" {
		t.Fatalf("expected callback to be answered, got %v", fake.answered)
	}

	if len(submitter.events) != 1 {
		t.Fatalf("expected 1 submitted event, got %d", len(submitter.events))
	}
	press, ok := submitter.events[0].(event.ButtonPress)
	if !ok || press.Payload != "tickets" || press.Chat.ID != -50 {
		t.Fatalf("expected button press event, got %#v", submitter.events[0])
	}
}

func TestUpdateHandlerSkipsEmptyUpdates(t *testing.T) {
	submitter := &fakeSubmitter{accept: true}
	client := &Client{bot: &fakeBot{}, logger: nullLogger()}
	handler := client.updateHandler(submitter)

	handler(context.Background(), nil, nil)
	handler(context.Background(), nil, &models.Update{})

	if len(submitter.events) != 0 {
		t.Fatalf("expected no submissions, got %d", len(submitter.events))
	}
}

func TestSendDirectMapsForbiddenToUnreachable(t *testing.T) {
	fake := &fakeBot{sendErr: bot.ErrorForbidden}
	client := &Client{bot: fake, logger: nullLogger()}

	err := client.SendDirect(context.Background(), 10, "hi")
	if !errors.Is(err, delivery.ErrRecipientUnreachable) {
		t.Fatalf("expected ErrRecipientUnreachable, got %v", err)
	}
}

func TestSendDirectPropagatesOtherErrors(t *testing.T) {
	expected := errors.New("rate limited")
	fake := &fakeBot{sendErr: expected}
	client := &Client{bot: fake, logger: nullLogger()}

	err := client.SendDirect(context.Background(), 10, "hi")
	if !errors.Is(err, expected) {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
	if errors.Is(err, delivery.ErrRecipientUnreachable) {
		t.Fatalf("unexpected unreachable classification for %v", err)
	}
}

func TestSendDirectUsesMarkdown(t *testing.T) {
	fake := &fakeBot{}
	client := &Client{bot: fake, logger: nullLogger()}

	if err := client.SendDirect(context.Background(), 10, "*hi*"); err != nil {
		t.Fatalf("SendDirect returned error: %v", err)
	}

	params := fake.sendParams[0]
	if params.ChatID != int64(10) || params.Text != "*hi*" {
		t.Fatalf("unexpected params %+v", params)
	}
	if params.ParseMode != models.ParseModeMarkdown {
		t.Fatalf("expected markdown parse mode, got %v", params.ParseMode)
	}
}

func TestSendToChatBuildsReplyAndKeyboard(t *testing.T) {
	fake := &fakeBot{sendResult: &models.Message{ID: 88}}
	client := &Client{bot: fake, logger: nullLogger()}

	id, err := client.SendToChat(context.Background(), -50, delivery.ChatMessage{
		Text:    "pick one",
		ReplyTo: 31,
		Keyboard: [][]delivery.Button{
			{{Label: "Open", URL: "https://t.me/x?start=tickets"}},
			{{Label: "FAQ", Data: "faq"}},
		},
	})
	if err != nil {
		t.Fatalf("SendToChat returned error: %v", err)
	}
	if id != 88 {
		t.Fatalf("expected message id 88, got %d", id)
	}

	params := fake.sendParams[0]
	if params.ReplyParameters == nil || params.ReplyParameters.MessageID != 31 {
		t.Fatalf("expected reply to 31, got %+v", params.ReplyParameters)
	}

	markup, ok := params.ReplyMarkup.(*models.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("expected inline keyboard markup, got %T", params.ReplyMarkup)
	}
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("expected 2 keyboard rows, got %d", len(markup.InlineKeyboard))
	}
	if markup.InlineKeyboard[0][0].URL == "" || markup.InlineKeyboard[1][0].CallbackData != "faq" {
		t.Fatalf("unexpected keyboard %+v", markup.InlineKeyboard)
	}
}

func TestSendToChatOmitsEmptyKeyboard(t *testing.T) {
	fake := &fakeBot{}
	client := &Client{bot: fake, logger: nullLogger()}

	if _, err := client.SendToChat(context.Background(), -50, delivery.ChatMessage{Text: "plain"}); err != nil {
		t.Fatalf("SendToChat returned error: %v", err)
	}

	params := fake.sendParams[0]
	if params.ReplyMarkup != nil {
		t.Fatalf("expected no reply markup, got %+v", params.ReplyMarkup)
	}
	if params.ReplyParameters != nil {
		t.Fatalf("expected no reply parameters, got %+v", params.ReplyParameters)
	}
}

func TestDeleteMessage(t *testing.T) {
	fake := &fakeBot{}
	client := &Client{bot: fake, logger: nullLogger()}

	if err := client.DeleteMessage(context.Background(), -50, 7); err != nil {
		t.Fatalf("DeleteMessage returned error: %v", err)
	}

	if len(fake.deleteParams) != 1 {
		t.Fatalf("expected one delete call, got %d", len(fake.deleteParams))
	}
	params := fake.deleteParams[0]
	if params.ChatID != int64(-50) || params.MessageID != 7 {
		t.Fatalf("unexpected delete params %+v", params)
	}
}

func TestBotUsernameFetchesAndCaches(t *testing.T) {
	fake := &fakeBot{me: &models.User{Username: "concierge_bot"}}
	client := &Client{bot: fake, logger: nullLogger()}

	if got := client.BotUsername(); got != "concierge_bot" {
		t.Fatalf("expected username concierge_bot, got %q", got)
	}
	if got := client.BotUsername(); got != "concierge_bot" {
		t.Fatalf("expected cached username, got %q", got)
	}
	if fake.meCalls != 1 {
		t.Fatalf("expected single GetMe call, got %d", fake.meCalls)
	}
}

func TestBotUsernameFailureReturnsEmpty(t *testing.T) {
	fake := &fakeBot{getMeErr: errors.New("network down")}
	client := &Client{bot: fake, logger: nullLogger()}

	if got := client.BotUsername(); got != "" {
		t.Fatalf("expected empty username on failure, got %q", got)
	}

	// A later call retries rather than caching the failure.
	fake.getMeErr = nil
	fake.me = &models.User{Username: "concierge_bot"}
	if got := client.BotUsername(); got != "concierge_bot" {
		t.Fatalf("expected retry to succeed, got %q", got)
	}
}

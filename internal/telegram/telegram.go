// Package telegram hosts the Telegram client: long polling, update-to-event
// conversion, and the outbound messenger surface.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"tg_concierge_bot/internal/config"
	"tg_concierge_bot/internal/delivery"
	"tg_concierge_bot/internal/event"
	"tg_concierge_bot/internal/logging"
	"tg_concierge_bot/internal/metrics"
)

// sendTimeout bounds every outbound API call.
const sendTimeout = 10 * time.Second

type botAPI interface {
	Start(ctx context.Context)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
	GetMe(ctx context.Context) (*models.User, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

var (
	defaultAllowedUpdates = bot.AllowedUpdates{
		"message",
		"callback_query",
	}

	createBot = func(token string, options ...bot.Option) (botAPI, error) {
		return bot.New(token, options...)
	}
)

// Submitter receives converted events for asynchronous handling.
type Submitter interface {
	Submit(ev event.Event) bool
}

// Client wraps the Telegram bot instance. It converts raw updates into events
// for the dispatch pool and implements the outbound messenger surface.
type Client struct {
	bot    botAPI
	logger *logrus.Entry

	mu       sync.Mutex
	username string
}

// NewClient initializes the Telegram bot with long polling. Inbound updates
// are converted and handed to the submitter; the callback spinner is answered
// inline before handoff.
func NewClient(cfg config.Config, submitter Submitter, logger *logrus.Entry) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	client := &Client{logger: logger}

	tgBot, err := createBot(cfg.TelegramToken,
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(client.updateHandler(submitter)),
		bot.WithErrorsHandler(errorHandler(logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}

	client.bot = tgBot
	return client, nil
}

// Start begins receiving updates via long polling until the context is
// canceled.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger.WithFields(logging.Fields{
		"event":           "telegram_listen",
		"allowed_updates": defaultAllowedUpdates,
	}).Info("starting telegram long polling")

	c.bot.Start(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram polling stopped")
}

func (c *Client) updateHandler(submitter Submitter) bot.HandlerFunc {
	return func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		if update == nil {
			return
		}

		// Answer the callback first so the client-side spinner clears even
		// when the queue is saturated.
		if update.CallbackQuery != nil {
			answerCtx, cancel := context.WithTimeout(ctx, sendTimeout)
			if _, err := c.bot.AnswerCallbackQuery(answerCtx, &bot.AnswerCallbackQueryParams{
				CallbackQueryID: update.CallbackQuery.ID,
			}); err != nil {
				c.logger.WithField("event", "callback_answer_failed").WithError(err).Debug("failed to answer callback query")
			}
			cancel()
		}

		ev, ok := event.FromUpdate(update)
		if !ok {
			return
		}

		metrics.UpdatesTotal.WithLabelValues(event.Kind(ev)).Inc()
		submitter.Submit(ev)
	}
}

// SendDirect sends a private text message. A platform refusal because the
// user never opened a private chat is translated into the delivery sentinel.
func (c *Client) SendDirect(ctx context.Context, userID int64, text string) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    userID,
		Text:      text,
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		if errors.Is(err, bot.ErrorForbidden) {
			return fmt.Errorf("send direct to %d: %w", userID, delivery.ErrRecipientUnreachable)
		}
		return fmt.Errorf("send direct to %d: %w", userID, err)
	}

	return nil
}

// SendToChat posts a message to any chat and returns the new message id.
func (c *Client) SendToChat(ctx context.Context, chatID int64, msg delivery.ChatMessage) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      msg.Text,
		ParseMode: models.ParseModeMarkdown,
	}

	if msg.ReplyTo != 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: msg.ReplyTo}
	}

	if markup := keyboardMarkup(msg.Keyboard); markup != nil {
		params.ReplyMarkup = markup
	}

	sent, err := c.bot.SendMessage(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("send to chat %d: %w", chatID, err)
	}

	return sent.ID, nil
}

// DeleteMessage removes a previously sent message.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if _, err := c.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	}); err != nil {
		return fmt.Errorf("delete message %d in chat %d: %w", messageID, chatID, err)
	}

	return nil
}

// BotUsername returns the bot's username for deep links, fetching and caching
// it on first use. An empty string means the lookup failed; deep links built
// from it will be broken until the next successful fetch.
func (c *Client) BotUsername() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.username != "" {
		return c.username
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	me, err := c.bot.GetMe(ctx)
	if err != nil {
		c.logger.WithField("event", "get_me_failed").WithError(err).Warn("failed to resolve bot username")
		return ""
	}

	c.username = me.Username
	return c.username
}

func keyboardMarkup(rows [][]delivery.Button) *models.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}

	keyboard := make([][]models.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, button := range row {
			buttons = append(buttons, models.InlineKeyboardButton{
				Text:         button.Label,
				URL:          button.URL,
				CallbackData: button.Data,
			})
		}
		keyboard = append(keyboard, buttons)
	}

	return &models.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}

func errorHandler(logger *logrus.Entry) bot.ErrorsHandler {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(err error) {
		if err == nil {
			return
		}

		logger.WithField("event", "telegram_error").WithError(err).Error("telegram polling error")
	}
}

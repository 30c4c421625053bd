// Package delivery implements the DM-first delivery strategy: attempt a direct
// private message, and fall back to a privacy-preserving deep-link prompt in
// the originating group when the recipient has never opened a private chat.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tg_concierge_bot/internal/logging"
	"tg_concierge_bot/internal/metrics"
)

// ErrRecipientUnreachable marks a delivery rejected because the recipient has
// not started a private chat with the bot.
var ErrRecipientUnreachable = errors.New("recipient unreachable")

// Outcome is the terminal result of a delivery attempt. Callers never
// propagate delivery failures further.
type Outcome int

const (
	Delivered Outcome = iota
	Redirected
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Redirected:
		return "redirected"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// markdownEscaper neutralizes the legacy-Markdown control characters the
// platform parses, so interpolated user input cannot break a formatted send.
var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// EscapeMarkdown returns text safe to interpolate into a Markdown-formatted
// message.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

// Button is a single inline keyboard button. Exactly one of URL or Data should
// be set.
type Button struct {
	Label string
	URL   string
	Data  string
}

// ChatMessage is an outbound message addressed to a chat.
type ChatMessage struct {
	Text     string
	ReplyTo  int // message id to reply to; zero for none
	Keyboard [][]Button
}

// Messenger is the platform surface the strategy needs. The Telegram client
// implements it; tests use fakes.
type Messenger interface {
	SendDirect(ctx context.Context, userID int64, text string) error
	SendToChat(ctx context.Context, chatID int64, msg ChatMessage) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	BotUsername() string
}

// Scheduler defers a function call. The returned cancel is best-effort.
type Scheduler interface {
	After(d time.Duration, fn func()) (cancel func())
}

// TimerScheduler schedules on the process clock.
type TimerScheduler struct{}

func (TimerScheduler) After(d time.Duration, fn func()) func() {
	timer := time.AfterFunc(d, fn)
	return func() { timer.Stop() }
}

// Content is a route's rendered response plus the identifier embedded in
// redirect deep links.
type Content struct {
	RouteID string
	Text    string
}

// Origin is the group context a request came from, when any.
type Origin struct {
	ChatID    int64
	MessageID int
}

// Strategy performs DM-first deliveries and transient group acknowledgements.
type Strategy struct {
	messenger Messenger
	scheduler Scheduler
	logger    *logrus.Entry
}

// NewStrategy constructs a Strategy.
func NewStrategy(messenger Messenger, scheduler Scheduler, logger *logrus.Entry) *Strategy {
	if scheduler == nil {
		scheduler = TimerScheduler{}
	}
	if logger == nil {
		logger = logging.Logger()
	}

	return &Strategy{
		messenger: messenger,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Deliver attempts a direct message to the recipient. On a delivery-rejected
// failure with a group origin present, it posts a deep-link prompt back in the
// group instead. Every failure class is terminal here: logged, never surfaced.
func (s *Strategy) Deliver(ctx context.Context, recipient int64, content Content, origin *Origin) Outcome {
	err := s.messenger.SendDirect(ctx, recipient, content.Text)
	if err == nil {
		metrics.DeliveriesTotal.WithLabelValues(Delivered.String()).Inc()
		return Delivered
	}

	if errors.Is(err, ErrRecipientUnreachable) && origin != nil {
		s.postRedirect(ctx, recipient, content.RouteID, *origin)
		metrics.DeliveriesTotal.WithLabelValues(Redirected.String()).Inc()
		return Redirected
	}

	s.logger.WithFields(logging.Fields{
		"event":   "delivery_failed",
		"user_id": recipient,
		"route":   content.RouteID,
	}).WithError(err).Warn("direct delivery failed")

	metrics.DeliveriesTotal.WithLabelValues(Failed.String()).Inc()
	return Failed
}

func (s *Strategy) postRedirect(ctx context.Context, recipient int64, routeID string, origin Origin) {
	prompt := ChatMessage{
		Text:    "For your privacy, continue in DM.\nTap below and press *Start*.",
		ReplyTo: origin.MessageID,
		Keyboard: [][]Button{{{
			Label: "🔒 Open chat & Press Start",
			URL:   s.deepLink(routeID),
		}}},
	}

	if _, err := s.messenger.SendToChat(ctx, origin.ChatID, prompt); err != nil {
		// Secondary failures are swallowed by contract.
		s.logger.WithFields(logging.Fields{
			"event":   "redirect_prompt_failed",
			"user_id": recipient,
			"chat_id": origin.ChatID,
			"route":   routeID,
		}).WithError(err).Warn("failed to post redirect prompt")
	}
}

func (s *Strategy) deepLink(routeID string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", s.messenger.BotUsername(), routeID)
}

// Acknowledge posts a transient note in a group and schedules its removal
// after the delay to keep group channels uncluttered. Both the post and the
// removal are best-effort.
func (s *Strategy) Acknowledge(ctx context.Context, chatID int64, text string, delay time.Duration) {
	messageID, err := s.messenger.SendToChat(ctx, chatID, ChatMessage{Text: text})
	if err != nil {
		s.logger.WithFields(logging.Fields{
			"event":   "group_ack_failed",
			"chat_id": chatID,
		}).WithError(err).Debug("failed to post group acknowledgement")
		return
	}

	s.scheduler.After(delay, func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.messenger.DeleteMessage(cleanupCtx, chatID, messageID); err != nil {
			s.logger.WithFields(logging.Fields{
				"event":      "group_ack_cleanup_failed",
				"chat_id":    chatID,
				"message_id": messageID,
			}).WithError(err).Debug("failed to delete group acknowledgement")
		}
	})
}

package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tg_concierge_bot/internal/delivery"
	"tg_concierge_bot/internal/event"
	"tg_concierge_bot/internal/logging"
	"tg_concierge_bot/internal/onboarding"
	"tg_concierge_bot/internal/routes"
)

const (
	buttonAckDelay = 12 * time.Second
	textAckDelay   = 15 * time.Second

	rsvpPayloadPrefix = "RSVP"
	defaultEventName  = "American Invasion"

	fallbackPrompt = "Got it! Type /menu to browse options."
)

// Deliverer is the DM-first delivery surface.
type Deliverer interface {
	Deliver(ctx context.Context, recipient int64, content delivery.Content, origin *delivery.Origin) delivery.Outcome
	Acknowledge(ctx context.Context, chatID int64, text string, delay time.Duration)
}

// Messenger sends plain replies outside the delivery strategy.
type Messenger interface {
	SendDirect(ctx context.Context, userID int64, text string) error
	SendToChat(ctx context.Context, chatID int64, msg delivery.ChatMessage) (int, error)
}

// Flow is the onboarding surface the router drives.
type Flow interface {
	Begin(ctx context.Context, user event.User)
	Handle(ctx context.Context, user event.User, in onboarding.Input) bool
}

// AdminSurface handles privileged commands and callback actions.
type AdminSurface interface {
	HandleCommand(ctx context.Context, userID int64, name string, args []string) bool
	HandleAction(ctx context.Context, userID int64, payload string)
}

// UserRegistrar upserts interacting users into the directory.
type UserRegistrar interface {
	EnsureUser(ctx context.Context, userID int64, firstName string) (bool, error)
}

// GroupRegistrar upserts groups the bot participates in and tracks the
// members welcomed there.
type GroupRegistrar interface {
	EnsureGroup(ctx context.Context, chatID int64, title, kind string) (bool, error)
	RecordJoin(ctx context.Context, chatID int64, joined int) error
}

// RSVPIntake registers pending RSVPs arriving through deep links.
type RSVPIntake interface {
	Create(ctx context.Context, userID int64, eventName string) (bool, error)
}

// Router is the single entry point for classified events. It owns no
// concurrency; the pool serializes nothing and the collaborators guard their
// own state.
type Router struct {
	table      *routes.Table
	classifier *Classifier
	deliverer  Deliverer
	messenger  Messenger
	flow       Flow
	admin      AdminSurface
	users      UserRegistrar
	groups     GroupRegistrar
	rsvps      RSVPIntake
	logger     *logrus.Entry
}

// RouterDeps bundles the router's collaborators.
type RouterDeps struct {
	Table     *routes.Table
	Deliverer Deliverer
	Messenger Messenger
	Flow      Flow
	Admin     AdminSurface
	Users     UserRegistrar
	Groups    GroupRegistrar
	RSVPs     RSVPIntake
	Logger    *logrus.Entry
}

// NewRouter constructs a Router.
func NewRouter(deps RouterDeps) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Logger()
	}

	return &Router{
		table:      deps.Table,
		classifier: NewClassifier(deps.Table),
		deliverer:  deps.Deliverer,
		messenger:  deps.Messenger,
		flow:       deps.Flow,
		admin:      deps.Admin,
		users:      deps.Users,
		groups:     deps.Groups,
		rsvps:      deps.RSVPs,
		logger:     logger,
	}
}

// Handle routes one event to completion. It never returns an error: every
// failure class is terminal at this level and logged.
func (r *Router) Handle(ctx context.Context, ev event.Event) {
	switch e := ev.(type) {
	case event.Command:
		r.registerUser(ctx, e.Sender)
		r.handleCommand(ctx, e)
	case event.ButtonPress:
		r.registerUser(ctx, e.Sender)
		r.handleButton(ctx, e)
	case event.TextMessage:
		r.registerUser(ctx, e.Sender)
		r.handleText(ctx, e)
	case event.MediaMessage:
		r.registerUser(ctx, e.Sender)
		r.handleMedia(ctx, e)
	case event.MembershipChange:
		r.handleMembership(ctx, e)
	default:
		r.logger.WithFields(logging.Fields{
			"event": "unhandled_event",
			"kind":  event.Kind(ev),
		}).Debug("ignoring unhandled event type")
	}
}

func (r *Router) handleCommand(ctx context.Context, cmd event.Command) {
	switch cmd.Name {
	case "start":
		if cmd.Chat.IsPrivate() {
			r.handleStart(ctx, cmd)
		}
	case "menu":
		r.sendMenu(ctx, cmd.Chat.ID)
	case "designer_portal":
		if cmd.Chat.IsPrivate() {
			r.flow.Begin(ctx, cmd.Sender)
		} else {
			r.deliverer.Acknowledge(ctx, cmd.Chat.ID,
				"👗 Designer onboarding runs in DM — open a private chat with me and send /designer_portal.",
				textAckDelay)
		}
	default:
		// Admin commands are private-chat only; in groups they fall through
		// and are dropped with everything else unrecognized.
		if cmd.Chat.IsPrivate() {
			if r.admin.HandleCommand(ctx, cmd.Sender.ID, cmd.Name, cmd.Args) {
				return
			}
			r.sendDirect(ctx, cmd.Sender.ID, fallbackPrompt)
		}
	}
}

// handleStart resolves the /start payload: an RSVP deep link confirms the
// connection and registers a pending RSVP, a route id (arriving via a redirect
// deep link) delivers that route's content, anything else gets the welcome
// menu.
func (r *Router) handleStart(ctx context.Context, cmd event.Command) {
	payload := ""
	if len(cmd.Args) > 0 {
		payload = strings.TrimSpace(cmd.Args[0])
	}

	if strings.HasPrefix(payload, rsvpPayloadPrefix) {
		r.handleRSVPStart(ctx, cmd.Sender, payload)
		return
	}

	if route, ok := r.table.Lookup(payload); ok {
		r.deliverer.Deliver(ctx, cmd.Sender.ID,
			delivery.Content{RouteID: route.ID, Text: route.Render()}, nil)
		return
	}

	r.sendDirect(ctx, cmd.Sender.ID,
		fmt.Sprintf("👋 Welcome %s! I'm the Emerge concierge — tickets, shop, designers and more.",
			delivery.EscapeMarkdown(cmd.Sender.FirstName)))
	r.sendMenu(ctx, cmd.Sender.ID)
}

func (r *Router) handleRSVPStart(ctx context.Context, sender event.User, payload string) {
	eventName := strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(payload, rsvpPayloadPrefix), "_", " "))
	if eventName == "" {
		eventName = defaultEventName
	}

	created, err := r.rsvps.Create(ctx, sender.ID, eventName)
	if err != nil {
		r.logger.WithFields(logging.Fields{
			"event":   "rsvp_intake_failed",
			"user_id": sender.ID,
		}).WithError(err).Warn("failed to register rsvp")
	}

	r.logger.WithFields(logging.Fields{
		"event":   "rsvp_connected",
		"user_id": sender.ID,
		"created": created,
	}).Info("rsvp deep link handled")

	r.sendDirect(ctx, sender.ID,
		fmt.Sprintf("🎟 You're connected, %s!\nYour RSVP for *%s* is in — we'll confirm shortly.",
			delivery.EscapeMarkdown(sender.FirstName), delivery.EscapeMarkdown(eventName)))
	r.sendMenu(ctx, sender.ID)
}

func (r *Router) handleButton(ctx context.Context, press event.ButtonPress) {
	match := r.classifier.Button(press.Payload)

	switch match.Kind {
	case ButtonAdmin:
		r.admin.HandleAction(ctx, press.Sender.ID, press.Payload)

	case ButtonRoute:
		var origin *delivery.Origin
		if press.Chat.IsGroup() {
			origin = &delivery.Origin{ChatID: press.Chat.ID, MessageID: press.MessageID}
		}

		outcome := r.deliverer.Deliver(ctx, press.Sender.ID,
			delivery.Content{RouteID: match.Route.ID, Text: match.Route.Render()}, origin)

		if press.Chat.IsGroup() && outcome == delivery.Delivered {
			r.deliverer.Acknowledge(ctx, press.Chat.ID,
				fmt.Sprintf("📬 %s, check your DM!", delivery.EscapeMarkdown(press.Sender.FirstName)), buttonAckDelay)
		}

	default:
		r.logger.WithFields(logging.Fields{
			"event":   "unknown_button",
			"user_id": press.Sender.ID,
			"payload": press.Payload,
		}).Debug("ignoring unknown button payload")
	}
}

func (r *Router) handleText(ctx context.Context, msg event.TextMessage) {
	if msg.Chat.IsPrivate() {
		if r.flow.Handle(ctx, msg.Sender, onboarding.Input{Text: msg.Body}) {
			return
		}
		// Keyword classification is a group-chat affordance; private free
		// text outside the flow always gets the generic prompt.
		r.sendDirect(ctx, msg.Sender.ID, fallbackPrompt)
		return
	}

	if !msg.Chat.IsGroup() {
		return
	}

	route, ok := r.classifier.GroupText(msg.Body)
	if !ok {
		return
	}

	r.deliverer.Acknowledge(ctx, msg.Chat.ID,
		fmt.Sprintf("✅ I'll DM you info about %s.", route.Label), textAckDelay)

	r.deliverer.Deliver(ctx, msg.Sender.ID,
		delivery.Content{RouteID: route.ID, Text: route.Render()},
		&delivery.Origin{ChatID: msg.Chat.ID, MessageID: msg.MessageID})
}

func (r *Router) handleMedia(ctx context.Context, msg event.MediaMessage) {
	if !msg.Chat.IsPrivate() {
		return
	}

	if r.flow.Handle(ctx, msg.Sender, onboarding.Input{Asset: msg.Asset}) {
		return
	}

	r.sendDirect(ctx, msg.Sender.ID, fallbackPrompt)
}

func (r *Router) handleMembership(ctx context.Context, change event.MembershipChange) {
	if _, err := r.groups.EnsureGroup(ctx, change.Chat.ID, change.Chat.Title, string(change.Chat.Kind)); err != nil {
		r.logger.WithFields(logging.Fields{
			"event":   "group_register_failed",
			"chat_id": change.Chat.ID,
		}).WithError(err).Warn("failed to register group")
	}

	var names []string
	for _, user := range change.Joined {
		if !user.IsBot && user.FirstName != "" {
			names = append(names, delivery.EscapeMarkdown(user.FirstName))
		}
	}
	if len(names) == 0 {
		return
	}

	welcome := fmt.Sprintf("👋 Welcome %s!\nI'm the Emerge concierge — DM me or type /menu here for tickets, shop, designers and more.",
		strings.Join(names, ", "))

	if _, err := r.messenger.SendToChat(ctx, change.Chat.ID, delivery.ChatMessage{Text: welcome}); err != nil {
		r.logger.WithFields(logging.Fields{
			"event":   "welcome_failed",
			"chat_id": change.Chat.ID,
		}).WithError(err).Warn("failed to send group welcome")
		return
	}

	if err := r.groups.RecordJoin(ctx, change.Chat.ID, len(names)); err != nil {
		r.logger.WithFields(logging.Fields{
			"event":   "join_record_failed",
			"chat_id": change.Chat.ID,
		}).WithError(err).Warn("failed to record welcomed members")
	}
}

// sendMenu posts the route menu as an inline keyboard, two routes per row.
func (r *Router) sendMenu(ctx context.Context, chatID int64) {
	var keyboard [][]delivery.Button
	for _, row := range r.table.MenuRows() {
		buttons := make([]delivery.Button, 0, len(row))
		for _, route := range row {
			buttons = append(buttons, delivery.Button{Label: route.Label, Data: route.ID})
		}
		keyboard = append(keyboard, buttons)
	}

	msg := delivery.ChatMessage{
		Text:     "📋 *Main Menu* — pick a topic:",
		Keyboard: keyboard,
	}

	if _, err := r.messenger.SendToChat(ctx, chatID, msg); err != nil {
		r.logger.WithFields(logging.Fields{
			"event":   "menu_send_failed",
			"chat_id": chatID,
		}).WithError(err).Warn("failed to send menu")
	}
}

func (r *Router) registerUser(ctx context.Context, sender event.User) {
	if sender.ID == 0 || sender.IsBot {
		return
	}

	if _, err := r.users.EnsureUser(ctx, sender.ID, sender.FirstName); err != nil {
		r.logger.WithFields(logging.Fields{
			"event":   "user_register_failed",
			"user_id": sender.ID,
		}).WithError(err).Warn("failed to register user")
	}
}

func (r *Router) sendDirect(ctx context.Context, userID int64, text string) {
	if err := r.messenger.SendDirect(ctx, userID, text); err != nil {
		r.logger.WithFields(logging.Fields{
			"event":   "reply_failed",
			"user_id": userID,
		}).WithError(err).Warn("failed to send reply")
	}
}

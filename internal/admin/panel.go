package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"tg_concierge_bot/internal/delivery"
	"tg_concierge_bot/internal/domain"
	"tg_concierge_bot/internal/fanout"
	"tg_concierge_bot/internal/logging"
	"tg_concierge_bot/internal/metrics"
	"tg_concierge_bot/internal/onboarding"
)

const deniedReply = "❌ Admin access required."

// ActionPrefix marks callback payloads that belong to the admin panel.
const ActionPrefix = "admin:"

const pendingListLimit = 10

// RSVPStore reads and reviews RSVP records.
type RSVPStore interface {
	Pending(ctx context.Context, limit int64) ([]domain.RSVP, error)
	SetStatus(ctx context.Context, userID int64, status string) (bool, error)
}

// Directory lists broadcast recipients.
type Directory interface {
	AllIDs(ctx context.Context) ([]int64, error)
}

// Stats supplies the panel's headline counts.
type Stats interface {
	CountUsers(ctx context.Context) (int64, error)
	CountPendingRSVPs(ctx context.Context) (int64, error)
}

// Auditor records admin actions.
type Auditor interface {
	Record(ctx context.Context, adminID int64, action, details string) error
}

// Designers exposes finished onboarding submissions for review.
type Designers interface {
	Submitted() []onboarding.Submission
}

// Messenger is the outbound surface the panel needs. Admin interaction is
// private-chat only, so the chat id always equals the admin's user id.
type Messenger interface {
	SendDirect(ctx context.Context, userID int64, text string) error
	SendToChat(ctx context.Context, chatID int64, msg delivery.ChatMessage) (int, error)
}

// Panel drives the admin command surface. Every entry point checks the gate
// itself and answers unauthorized callers with an explicit denial.
type Panel struct {
	gate       *Gate
	rsvps      RSVPStore
	directory  Directory
	stats      Stats
	auditor    Auditor
	designers  Designers
	messenger  Messenger
	logger     *logrus.Entry
	fanoutOpts fanout.Options
}

// NewPanel constructs a Panel.
func NewPanel(gate *Gate, rsvps RSVPStore, directory Directory, stats Stats, auditor Auditor, designers Designers, messenger Messenger, logger *logrus.Entry) *Panel {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Panel{
		gate:      gate,
		rsvps:     rsvps,
		directory: directory,
		stats:     stats,
		auditor:   auditor,
		designers: designers,
		messenger: messenger,
		logger:    logger,
	}
}

// HandleCommand dispatches one admin command. It returns false when the name is
// not an admin command, leaving it for the caller's fallback handling. Denied
// callers get the denial reply and true.
func (p *Panel) HandleCommand(ctx context.Context, userID int64, name string, args []string) bool {
	switch name {
	case "admin", "rsvps", "approve", "deny", "broadcast":
	default:
		return false
	}

	if !p.gate.Authorize(userID) {
		p.logger.WithFields(logging.Fields{
			"event":   "admin_denied",
			"user_id": userID,
			"command": name,
		}).Warn("unauthorized admin command")
		p.send(ctx, userID, deniedReply)
		return true
	}

	switch name {
	case "admin":
		p.showPanel(ctx, userID)
	case "rsvps":
		p.listPending(ctx, userID)
	case "approve":
		p.review(ctx, userID, args, domain.RSVPApproved)
	case "deny":
		p.review(ctx, userID, args, domain.RSVPDenied)
	case "broadcast":
		p.broadcast(ctx, userID, strings.TrimSpace(strings.Join(args, " ")))
	}

	return true
}

// HandleAction dispatches one admin:* callback payload.
func (p *Panel) HandleAction(ctx context.Context, userID int64, payload string) {
	if !p.gate.Authorize(userID) {
		p.send(ctx, userID, deniedReply)
		return
	}

	switch strings.TrimPrefix(payload, ActionPrefix) {
	case "rsvps":
		p.listPending(ctx, userID)
	case "designers":
		p.listDesigners(ctx, userID)
	case "payments":
		p.audit(ctx, userID, "payments_view", "")
		p.send(ctx, userID, "💳 *Payments*\nPayout methods: Telebirr / M-Pesa / bank / transfer.\nPayout runs are reviewed with each approved designer batch.")
	default:
		p.send(ctx, userID, "Unknown admin action.")
	}
}

func (p *Panel) showPanel(ctx context.Context, adminID int64) {
	users, err := p.stats.CountUsers(ctx)
	if err != nil {
		p.logger.WithError(err).Warn("failed to count users for admin panel")
	}
	pending, err := p.stats.CountPendingRSVPs(ctx)
	if err != nil {
		p.logger.WithError(err).Warn("failed to count pending rsvps for admin panel")
	}

	p.audit(ctx, adminID, "panel_open", "")

	msg := delivery.ChatMessage{
		Text: fmt.Sprintf("🛠 *Admin Panel*\nUsers: %d\nPending RSVPs: %d", users, pending),
		Keyboard: [][]delivery.Button{
			{{Label: "📋 RSVPs", Data: ActionPrefix + "rsvps"}},
			{{Label: "👗 Designers", Data: ActionPrefix + "designers"}},
			{{Label: "💳 Payments", Data: ActionPrefix + "payments"}},
		},
	}

	if _, err := p.messenger.SendToChat(ctx, adminID, msg); err != nil {
		p.logger.WithFields(logging.Fields{
			"event":   "admin_send_failed",
			"user_id": adminID,
		}).WithError(err).Warn("failed to send admin panel")
	}
}

func (p *Panel) listPending(ctx context.Context, adminID int64) {
	p.audit(ctx, adminID, "rsvps_list", "")

	pending, err := p.rsvps.Pending(ctx, pendingListLimit)
	if err != nil {
		p.logger.WithError(err).Warn("failed to list pending rsvps")
		p.send(ctx, adminID, "⚠️ Could not load pending RSVPs.")
		return
	}

	if len(pending) == 0 {
		p.send(ctx, adminID, "No pending RSVPs. 🎉")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 *Pending RSVPs* (%d)\n", len(pending))
	for _, rsvp := range pending {
		fmt.Fprintf(&b, "• user %d — %s (%s)\n", rsvp.UserID, delivery.EscapeMarkdown(rsvp.EventName), rsvp.CreatedAt.Format("2006-01-02"))
	}
	b.WriteString("\nUse /approve <user_id> or /deny <user_id> [reason].")

	p.send(ctx, adminID, b.String())
}

func (p *Panel) review(ctx context.Context, adminID int64, args []string, status string) {
	if len(args) == 0 {
		p.send(ctx, adminID, fmt.Sprintf("Usage: /%s <user_id>", commandForStatus(status)))
		return
	}

	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || targetID == 0 {
		p.send(ctx, adminID, fmt.Sprintf("Invalid user id %q.", args[0]))
		return
	}

	updated, err := p.rsvps.SetStatus(ctx, targetID, status)
	if err != nil {
		p.logger.WithFields(logging.Fields{
			"event":   "rsvp_review_failed",
			"user_id": targetID,
			"status":  status,
		}).WithError(err).Warn("failed to update rsvp status")
		p.send(ctx, adminID, "⚠️ Could not update the RSVP.")
		return
	}

	if !updated {
		p.send(ctx, adminID, fmt.Sprintf("No RSVP found for user %d.", targetID))
		return
	}

	reason := strings.TrimSpace(strings.Join(args[1:], " "))
	p.audit(ctx, adminID, "rsvp_"+status, fmt.Sprintf("user_id=%d %s", targetID, reason))
	p.notifyReviewed(ctx, targetID, status, reason)
	p.send(ctx, adminID, fmt.Sprintf("RSVP for user %d marked %s.", targetID, status))
}

func (p *Panel) notifyReviewed(ctx context.Context, targetID int64, status, reason string) {
	var note string
	switch status {
	case domain.RSVPApproved:
		note = "✅ Your RSVP has been approved. See you there!"
	case domain.RSVPDenied:
		note = "❌ Your RSVP was declined."
		if reason != "" {
			note += "\nReason: " + delivery.EscapeMarkdown(reason)
		}
	default:
		return
	}

	if err := p.messenger.SendDirect(ctx, targetID, note); err != nil {
		// The decision stands even if the user cannot be reached.
		p.logger.WithFields(logging.Fields{
			"event":   "rsvp_notify_failed",
			"user_id": targetID,
			"status":  status,
		}).WithError(err).Warn("failed to notify rsvp decision")
	}
}

func (p *Panel) broadcast(ctx context.Context, adminID int64, text string) {
	if text == "" {
		p.send(ctx, adminID, "Usage: /broadcast <message>")
		return
	}

	ids, err := p.directory.AllIDs(ctx)
	if err != nil {
		p.logger.WithError(err).Warn("failed to load broadcast directory")
		p.send(ctx, adminID, "⚠️ Could not load the user directory.")
		return
	}

	// Broadcast text is sent escaped so a stray underscore cannot fail the
	// whole fan-out at the parse-mode layer.
	body := delivery.EscapeMarkdown(text)
	tally := fanout.Broadcast(ctx, ids, func(ctx context.Context, userID int64) error {
		return p.messenger.SendDirect(ctx, userID, body)
	}, p.fanoutOpts)

	metrics.BroadcastRecipients.WithLabelValues("delivered").Add(float64(tally.Delivered))
	metrics.BroadcastRecipients.WithLabelValues("failed").Add(float64(tally.Total - tally.Delivered))

	p.audit(ctx, adminID, "broadcast", fmt.Sprintf("delivered=%d total=%d", tally.Delivered, tally.Total))

	p.logger.WithFields(logging.Fields{
		"event":     "broadcast_complete",
		"admin_id":  adminID,
		"delivered": tally.Delivered,
		"total":     tally.Total,
	}).Info("broadcast finished")

	p.send(ctx, adminID, fmt.Sprintf("📣 Broadcast sent to %d/%d users.", tally.Delivered, tally.Total))
}

func (p *Panel) listDesigners(ctx context.Context, adminID int64) {
	p.audit(ctx, adminID, "designers_list", "")

	subs := p.designers.Submitted()
	if len(subs) == 0 {
		p.send(ctx, adminID, "No designer submissions yet.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👗 *Designer Submissions* (%d)\n", len(subs))
	for _, sub := range subs {
		fmt.Fprintf(&b, "• %s — %s (id %d, %d products, %s / %s)\n",
			delivery.EscapeMarkdown(sub.Brand), delivery.EscapeMarkdown(sub.FirstName),
			sub.UserID, len(sub.ProductFileIDs),
			delivery.EscapeMarkdown(sub.Shipping), delivery.EscapeMarkdown(sub.Payout))
	}

	p.send(ctx, adminID, b.String())
}

// audit is best-effort; a failed write never blocks the admin flow.
func (p *Panel) audit(ctx context.Context, adminID int64, action, details string) {
	if err := p.auditor.Record(ctx, adminID, action, details); err != nil {
		p.logger.WithFields(logging.Fields{
			"event":    "audit_write_failed",
			"admin_id": adminID,
			"action":   action,
		}).WithError(err).Warn("failed to record admin action")
	}
}

func (p *Panel) send(ctx context.Context, userID int64, text string) {
	if err := p.messenger.SendDirect(ctx, userID, text); err != nil {
		p.logger.WithFields(logging.Fields{
			"event":   "admin_send_failed",
			"user_id": userID,
		}).WithError(err).Warn("failed to send admin reply")
	}
}

func commandForStatus(status string) string {
	if status == domain.RSVPDenied {
		return "deny"
	}
	return "approve"
}

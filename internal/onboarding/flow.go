// Package onboarding implements the designer onboarding state machine: a
// per-user, private-chat flow that collects a brand name, a logo, 1–3 product
// photos, a shipping preference, and a payout preference, then notifies the
// reviewers.
package onboarding

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"tg_concierge_bot/internal/delivery"
	"tg_concierge_bot/internal/event"
	"tg_concierge_bot/internal/fanout"
	"tg_concierge_bot/internal/logging"
	"tg_concierge_bot/internal/metrics"
)

const (
	supportToken    = "support"
	completionToken = "done"
)

// Messenger is the outbound surface the flow needs.
type Messenger interface {
	SendDirect(ctx context.Context, userID int64, text string) error
}

// Input is one private-chat message fed into the state machine.
type Input struct {
	Text  string
	Asset event.AssetRef
}

func (in Input) imageFileID() (string, bool) {
	if in.Asset.FileID != "" && in.Asset.IsImage() {
		return in.Asset.FileID, true
	}
	return "", false
}

// Flow drives onboarding sessions. All transitions run inside the store's
// per-user critical section; replies are sent after it is released.
type Flow struct {
	sessions   Store
	messenger  Messenger
	adminIDs   []int64
	supportURL string
	logger     *logrus.Entry
	fanoutOpts fanout.Options
}

// NewFlow constructs a Flow. adminIDs receive the submission summary fan-out.
func NewFlow(sessions Store, messenger Messenger, adminIDs []int64, supportURL string, logger *logrus.Entry) *Flow {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Flow{
		sessions:   sessions,
		messenger:  messenger,
		adminIDs:   append([]int64(nil), adminIDs...),
		supportURL: supportURL,
		logger:     logger,
	}
}

// Sessions exposes the underlying store for administrative listing.
func (f *Flow) Sessions() Store {
	return f.sessions
}

// Active reports whether the user is mid-onboarding. Terminal sessions do not
// consume messages.
func (f *Flow) Active(userID int64) bool {
	return f.sessions.Active(userID)
}

// Begin starts (or silently restarts) the flow for a user and sends the intro
// prompt. A discarded in-progress session is logged so the reset is visible.
func (f *Flow) Begin(ctx context.Context, user event.User) {
	_, discarded := f.sessions.Begin(user.ID, user.FirstName)
	if discarded {
		f.logger.WithFields(logging.Fields{
			"event":   "onboarding_reset",
			"user_id": user.ID,
		}).Info("restarted onboarding, prior partial data discarded")
	}

	hello := fmt.Sprintf("👋 Hi %s!\n\n"+
		"👗 *Designer Portal — let's get you live.*\n"+
		"I'll collect a few details to open your store.\n\n"+
		"1) Reply with your *brand name*\n"+
		"2) Send a *logo (.png, transparent if possible)*\n"+
		"3) Send *1–3 product photos*\n"+
		"4) Choose *shipping* (local delivery, pickup, worldwide)\n"+
		"5) Choose *payout* (Telebirr / M-Pesa / bank / transfer)\n\n"+
		"_Questions? Reply 'support' anytime._", delivery.EscapeMarkdown(user.FirstName))

	f.send(ctx, user.ID, hello)
}

// Handle consumes one private message for a user mid-onboarding. It returns
// false when the user has no active session, leaving the message for the
// caller's fallback handling.
func (f *Flow) Handle(ctx context.Context, user event.User, in Input) bool {
	if !f.sessions.Active(user.ID) {
		return false
	}

	// Escape hatch: never mutates state or advances the stage.
	if strings.EqualFold(strings.TrimSpace(in.Text), supportToken) {
		f.send(ctx, user.ID, fmt.Sprintf("📞 Support → %s", f.supportURL))
		return true
	}

	var replies []string
	var finalized *Submission

	snap, ok := f.sessions.Update(user.ID, func(sub *Submission) {
		replies, finalized = f.step(sub, in)
	})
	if !ok {
		return false
	}

	for _, reply := range replies {
		f.send(ctx, user.ID, reply)
	}

	if finalized != nil {
		f.finalize(ctx, *finalized)
	}

	f.logger.WithFields(logging.Fields{
		"event":   "onboarding_step",
		"user_id": user.ID,
		"stage":   string(snap.Stage),
	}).Debug("processed onboarding message")

	return true
}

// step applies one input to the session and returns the replies to send. It
// runs inside the per-user critical section and must not block.
func (f *Flow) step(sub *Submission, in Input) ([]string, *Submission) {
	text := strings.TrimSpace(in.Text)

	switch sub.Stage {
	case StageBrandName:
		if text == "" {
			return []string{"Please send a text brand name."}, nil
		}
		sub.Brand = text
		sub.Stage = StageLogo
		return []string{"Got it. Now send your *logo (.png)*."}, nil

	case StageLogo:
		fileID, ok := in.imageFileID()
		if !ok {
			return []string{"Please send a PNG logo (photo or file)."}, nil
		}
		sub.LogoFileID = fileID
		sub.Stage = StageProducts
		return []string{"✅ Logo received.\nSend *1–3 product photos*."}, nil

	case StageProducts:
		return f.stepProducts(sub, in, text), nil

	case StageShipping:
		if text == "" {
			return []string{"Type one: local delivery / pickup / worldwide."}, nil
		}
		sub.Shipping = text
		sub.Stage = StagePayout
		return []string{"Choose payout: Telebirr / M-Pesa / bank / transfer."}, nil

	case StagePayout:
		if text == "" {
			return []string{"Type one: Telebirr / M-Pesa / bank / transfer."}, nil
		}
		sub.Payout = text
		sub.Stage = StageSubmitted
		final := snapshot(*sub)
		return []string{
			"✅ Thanks! Your brand is submitted for review.\n" +
				"We'll enable your store and DM you with access. You can manage items right here.",
		}, &final

	default:
		return nil, nil
	}
}

func (f *Flow) stepProducts(sub *Submission, in Input, text string) []string {
	if fileID, ok := in.imageFileID(); ok {
		if len(sub.ProductFileIDs) < MaxProducts {
			sub.ProductFileIDs = append(sub.ProductFileIDs, fileID)
		}
		if len(sub.ProductFileIDs) < MaxProducts {
			return []string{fmt.Sprintf("Got it (%d/%d). Send more or type 'done' to continue.", len(sub.ProductFileIDs), MaxProducts)}
		}
		sub.Stage = StageShipping
		return []string{"✅ Photos received.\nChoose shipping: local delivery, pickup, worldwide."}
	}

	if strings.EqualFold(text, completionToken) {
		if len(sub.ProductFileIDs) == 0 {
			return []string{"Send at least one product photo before typing 'done'."}
		}
		sub.Stage = StageShipping
		return []string{"✅ Photos received.\nChoose shipping: local delivery, pickup, worldwide."}
	}

	return []string{"Please send product photos (image files)."}
}

// finalize fans the submission summary out to every reviewer independently and
// best-effort; per-recipient failures are swallowed.
func (f *Flow) finalize(ctx context.Context, sub Submission) {
	metrics.OnboardingSubmissions.Inc()

	summary := fmt.Sprintf("🆕 *Designer Submission*\n"+
		"User: %s (id %d)\n"+
		"Brand: %s\n"+
		"Shipping: %s\n"+
		"Payout: %s\n"+
		"Products: %d\n",
		delivery.EscapeMarkdown(sub.FirstName), sub.UserID, delivery.EscapeMarkdown(sub.Brand),
		delivery.EscapeMarkdown(sub.Shipping), delivery.EscapeMarkdown(sub.Payout), len(sub.ProductFileIDs))

	tally := fanout.Broadcast(ctx, f.adminIDs, func(ctx context.Context, adminID int64) error {
		return f.messenger.SendDirect(ctx, adminID, summary)
	}, f.fanoutOpts)

	f.logger.WithFields(logging.Fields{
		"event":     "onboarding_submitted",
		"user_id":   sub.UserID,
		"delivered": tally.Delivered,
		"total":     tally.Total,
	}).Info("designer submission complete, reviewers notified")
}

func (f *Flow) send(ctx context.Context, userID int64, text string) {
	if err := f.messenger.SendDirect(ctx, userID, text); err != nil {
		f.logger.WithFields(logging.Fields{
			"event":   "onboarding_send_failed",
			"user_id": userID,
		}).WithError(err).Warn("failed to send onboarding reply")
	}
}

// Package audit persists a trail of administrative operations so moderation
// decisions stay reviewable after the fact.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg_concierge_bot/internal/domain"
	"tg_concierge_bot/internal/logging"
)

type logCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// Recorder appends admin actions to the audit log collection.
type Recorder struct {
	logs   logCollection
	logger *logrus.Entry
}

// NewRecorder constructs a Recorder for the provided admin_logs collection.
func NewRecorder(logs logCollection, logger *logrus.Entry) *Recorder {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Recorder{
		logs:   logs,
		logger: logger,
	}
}

// Record stores one audit entry. Details is free-form context such as the
// target user id or a denial reason.
func (r *Recorder) Record(ctx context.Context, adminID int64, action, details string) error {
	if r == nil || r.logs == nil {
		return errors.New("audit recorder is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if adminID == 0 {
		return errors.New("admin id is required")
	}

	action = strings.TrimSpace(action)
	if action == "" {
		return errors.New("action is required")
	}

	entry := domain.AdminAction{
		AdminID:   adminID,
		Action:    action,
		Details:   strings.TrimSpace(details),
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
	}

	if _, err := r.logs.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("record admin action: %w", err)
	}

	r.logger.WithFields(logging.Fields{
		"event":    "admin_action",
		"admin_id": adminID,
		"action":   action,
	}).Info("recorded admin action")

	return nil
}

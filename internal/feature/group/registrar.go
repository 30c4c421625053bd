// Package group tracks the group chats the concierge participates in: which
// chats it has been added to, what kind they are, and how many members it has
// welcomed there.
package group

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg_concierge_bot/internal/logging"
)

type groupCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// Registrar maintains the groups collection. EnsureGroup keeps the identity
// fields fresh; RecordJoin accumulates the welcome trail used when reviewing
// where the bot is active.
type Registrar struct {
	groups groupCollection
	logger *logrus.Entry
}

// NewRegistrar constructs a Registrar for the provided groups collection.
func NewRegistrar(groups groupCollection, logger *logrus.Entry) *Registrar {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Registrar{
		groups: groups,
		logger: logger,
	}
}

// EnsureGroup upserts the group record keyed by chat ID, refreshing the title,
// chat kind, and last-seen timestamp on every sighting. It reports whether a
// new record was created.
func (r *Registrar) EnsureGroup(ctx context.Context, chatID int64, title, kind string) (bool, error) {
	if r == nil || r.groups == nil {
		return false, errors.New("group registrar is not initialized")
	}
	if ctx == nil {
		return false, errors.New("context is required")
	}
	if chatID == 0 {
		return false, errors.New("chat id is required")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)

	set := bson.M{"last_seen_at": now}
	if t := strings.TrimSpace(title); t != "" {
		set["title"] = t
	}
	if k := strings.TrimSpace(kind); k != "" {
		set["kind"] = k
	}

	result, err := r.groups.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{
			"$set": set,
			"$setOnInsert": bson.M{
				"chat_id":   chatID,
				"joined_at": now,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("ensure group: %w", err)
	}

	created := result != nil && result.UpsertedCount > 0
	if created {
		r.logger.WithFields(logging.Fields{
			"event":   "group_registered",
			"chat_id": chatID,
			"kind":    kind,
		}).Info("registered new group")
		return true, nil
	}

	r.logger.WithFields(logging.Fields{
		"event":   "group_seen",
		"chat_id": chatID,
	}).Debug("updated group last seen")

	return false, nil
}

// RecordJoin adds the welcomed member count to the group's running total and
// stamps the last join time. The group must already be registered; no record
// is created here.
func (r *Registrar) RecordJoin(ctx context.Context, chatID int64, joined int) error {
	if r == nil || r.groups == nil {
		return errors.New("group registrar is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if chatID == 0 {
		return errors.New("chat id is required")
	}
	if joined < 1 {
		return errors.New("joined count must be positive")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.groups.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{
			"$inc": bson.M{"members_welcomed": joined},
			"$set": bson.M{"last_join_at": now},
		},
	); err != nil {
		return fmt.Errorf("record join: %w", err)
	}

	r.logger.WithFields(logging.Fields{
		"event":   "group_join",
		"chat_id": chatID,
		"joined":  joined,
	}).Debug("recorded welcomed members")

	return nil
}

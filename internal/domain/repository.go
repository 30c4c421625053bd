package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type findUpdateCollection interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

type findCollection interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// RSVPRepository reads and reviews RSVP records in MongoDB.
type RSVPRepository struct {
	collection findUpdateCollection
}

// NewRSVPRepository constructs an RSVPRepository.
func NewRSVPRepository(collection findUpdateCollection) *RSVPRepository {
	return &RSVPRepository{collection: collection}
}

// Pending returns up to limit RSVPs still awaiting review, oldest first.
func (r *RSVPRepository) Pending(ctx context.Context, limit int64) ([]RSVP, error) {
	if r == nil || r.collection == nil {
		return nil, errors.New("rsvp repository is not initialized")
	}
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be greater than 0")
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"status": RSVPPending}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("find pending rsvps: %w", err)
	}

	var rsvps []RSVP
	if err := cursor.All(ctx, &rsvps); err != nil {
		return nil, fmt.Errorf("decode pending rsvps: %w", err)
	}

	return rsvps, nil
}

// SetStatus moves the user's RSVP to the given status. It reports whether a
// record was actually updated.
func (r *RSVPRepository) SetStatus(ctx context.Context, userID int64, status string) (bool, error) {
	if r == nil || r.collection == nil {
		return false, errors.New("rsvp repository is not initialized")
	}
	if ctx == nil {
		return false, errors.New("context is required")
	}
	if userID == 0 {
		return false, errors.New("user_id is required")
	}
	if status != RSVPApproved && status != RSVPDenied && status != RSVPPending {
		return false, fmt.Errorf("invalid rsvp status %q", status)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return false, fmt.Errorf("update rsvp status: %w", err)
	}

	return result != nil && result.MatchedCount > 0, nil
}

// Create registers a pending RSVP for the user unless one already exists.
// It reports whether a new record was inserted.
func (r *RSVPRepository) Create(ctx context.Context, userID int64, eventName string) (bool, error) {
	if r == nil || r.collection == nil {
		return false, errors.New("rsvp repository is not initialized")
	}
	if ctx == nil {
		return false, errors.New("context is required")
	}
	if userID == 0 {
		return false, errors.New("user_id is required")
	}
	if eventName == "" {
		return false, errors.New("event_name is required")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set": bson.M{"updated_at": now},
			"$setOnInsert": bson.M{
				"user_id":    userID,
				"event_name": eventName,
				"status":     RSVPPending,
				"created_at": now,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("create rsvp: %w", err)
	}

	return result != nil && result.UpsertedCount > 0, nil
}

// UserDirectory lists known users for broadcast fan-outs.
type UserDirectory struct {
	collection findCollection
}

// NewUserDirectory constructs a UserDirectory.
func NewUserDirectory(collection findCollection) *UserDirectory {
	return &UserDirectory{collection: collection}
}

// AllIDs returns every registered user id.
func (d *UserDirectory) AllIDs(ctx context.Context) ([]int64, error) {
	if d == nil || d.collection == nil {
		return nil, errors.New("user directory is not initialized")
	}
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	cursor, err := d.collection.Find(ctx, bson.D{},
		options.Find().SetProjection(bson.M{"user_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	var users []User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	ids := make([]int64, 0, len(users))
	for _, user := range users {
		ids = append(ids, user.UserID)
	}

	return ids, nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg_concierge_bot/internal/domain"
)

type countCollection interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// StatsProvider exposes helper methods to retrieve collection counts for the
// admin panel without leaking MongoDB internals to callers.
type StatsProvider struct {
	users countCollection
	rsvps countCollection
}

// NewStatsProvider constructs a StatsProvider backed by the provided user and
// rsvp collections.
func NewStatsProvider(users, rsvps countCollection) *StatsProvider {
	return &StatsProvider{
		users: users,
		rsvps: rsvps,
	}
}

// CountUsers returns the number of documents in the users collection.
func (p *StatsProvider) CountUsers(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.users == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	count, err := p.users.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}

	return count, nil
}

// CountPendingRSVPs returns the number of RSVPs still awaiting review.
func (p *StatsProvider) CountPendingRSVPs(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.rsvps == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	count, err := p.rsvps.CountDocuments(ctx, bson.M{"status": domain.RSVPPending})
	if err != nil {
		return 0, fmt.Errorf("count pending rsvps: %w", err)
	}

	return count, nil
}

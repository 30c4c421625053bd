// Package domain defines shared domain constants and types.
package domain

import "time"

const (
	// RSVPPending marks a submitted RSVP awaiting review.
	RSVPPending = "pending"
	// RSVPApproved marks an RSVP accepted by an admin.
	RSVPApproved = "approved"
	// RSVPDenied marks an RSVP rejected by an admin.
	RSVPDenied = "denied"
)

// RSVP is an event attendance request reviewed through the admin surface.
type RSVP struct {
	UserID    int64     `bson:"user_id" json:"user_id"`
	EventName string    `bson:"event_name" json:"event_name"`
	Status    string    `bson:"status" json:"status"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// AdminAction is an audit record of an administrative operation.
type AdminAction struct {
	AdminID   int64     `bson:"admin_id" json:"admin_id"`
	Action    string    `bson:"action" json:"action"`
	Details   string    `bson:"details" json:"details"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

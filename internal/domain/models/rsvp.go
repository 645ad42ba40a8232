// internal/domain/models/rsvp.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RSVP responses, mirroring calendar attendee response statuses.
const (
	RsvpAccepted  = "accepted"
	RsvpDeclined  = "declined"
	RsvpTentative = "tentative"
	RsvpNone      = "none"
)

// RSVP is a per-user, per-meeting attendance response pulled from the
// calendar system. Exactly one document per (meeting_id, user_id);
// re-pulls overwrite the response in place.
type RSVP struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MeetingID primitive.ObjectID `bson:"meeting_id" json:"meeting_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`

	Email    string `bson:"email" json:"email"`
	Response string `bson:"response" json:"response"`

	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

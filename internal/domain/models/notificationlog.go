// internal/domain/models/notificationlog.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification message types.
const (
	MsgGroupAssigned    = "group_assigned"
	MsgMemberJoined     = "member_joined"
	MsgMemberJoinedChan = "member_joined_channel"
	MsgMeetingReminder  = "meeting_reminder"
)

// Notification reference types.
const (
	RefGroup   = "group"
	RefMeeting = "meeting"
)

// NotificationLogEntry records one message sent to one recipient about one
// referenced entity. The collection is append-only, and a unique index over
// (user_id, message_type, reference_type, reference_id) is the at-most-once
// guarantee: a second send attempt with the same key fails the insert.
type NotificationLogEntry struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	UserID        string `bson:"user_id" json:"user_id"` // Discord user id, or channel id for channel posts
	MessageType   string `bson:"message_type" json:"message_type"`
	ReferenceType string `bson:"reference_type" json:"reference_type"`
	ReferenceID   string `bson:"reference_id" json:"reference_id"`

	SentAt time.Time `bson:"sent_at" json:"sent_at"`
}

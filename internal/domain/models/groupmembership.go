// internal/domain/models/groupmembership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership roles and statuses.
const (
	RoleParticipant = "participant"
	RoleFacilitator = "facilitator"

	MembershipActive  = "active"
	MembershipRemoved = "removed"
)

// GroupMembership is the authoritative join between users and groups,
// and the desired-state input to the sync engine. Exactly one document
// per (group_id, user_id).
//
// The Discord id and email are denormalized onto the row so that reading
// the desired state for a group is a single query; the enrollment flow
// keeps them current.
type GroupMembership struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID  primitive.ObjectID `bson:"user_id" json:"user_id"`

	DiscordID   string `bson:"discord_id" json:"discord_id"`
	Email       string `bson:"email" json:"email"`
	DisplayName string `bson:"display_name" json:"display_name"`

	Role   string `bson:"role" json:"role"`     // "participant" | "facilitator"
	Status string `bson:"status" json:"status"` // "active" | "removed"

	JoinedAt time.Time  `bson:"joined_at" json:"joined_at"`
	LeftAt   *time.Time `bson:"left_at,omitempty" json:"left_at,omitempty"`
}

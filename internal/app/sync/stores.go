// internal/app/sync/stores.go
package groupsync

import (
	"context"

	"github.com/dalemusser/cohortsync/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Narrow store interfaces. The mongo-backed stores under
// internal/app/store satisfy these; tests substitute in-memory fakes.

type GroupStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error)
	SetChannels(ctx context.Context, id primitive.ObjectID, textID, voiceID string) error
	// Activate flips preview -> active and returns true only for the call
	// that performed the transition. It must never regress an active group.
	Activate(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type CohortStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Cohort, error)
	SetCategory(ctx context.Context, id primitive.ObjectID, categoryID string) error
}

type MembershipStore interface {
	ListActive(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMembership, error)
}

type MeetingStore interface {
	ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Meeting, error)
	Insert(ctx context.Context, m models.Meeting) (models.Meeting, error)
	SetDiscordEvent(ctx context.Context, id primitive.ObjectID, eventID string) error
	SetCalendarEvent(ctx context.Context, id primitive.ObjectID, eventID string) error
}

type NotificationLog interface {
	AlreadySent(ctx context.Context, userID, messageType, referenceType, referenceID string) (bool, error)
	RecordSent(ctx context.Context, e models.NotificationLogEntry) error
}

type RsvpStore interface {
	Upsert(ctx context.Context, r models.RSVP) error
}

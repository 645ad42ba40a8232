// internal/domain/models/meeting.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Meeting is one scheduled session of a group. Rows are created by the
// realization flow; the Discord scheduled-event and calendar-event
// references start empty and are filled in as those resources are created.
type Meeting struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID primitive.ObjectID `bson:"group_id" json:"group_id"`
	Seq     int                `bson:"seq" json:"seq"`

	ScheduledAt time.Time `bson:"scheduled_at" json:"scheduled_at"`

	DiscordEventID  string `bson:"discord_event_id" json:"discord_event_id"`
	CalendarEventID string `bson:"calendar_event_id" json:"calendar_event_id"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group status values. The transition is one-way: a group starts in
// preview and flips to active once its infrastructure and at least one
// member's access exist. It never goes back.
const (
	GroupStatusPreview = "preview"
	GroupStatusActive  = "active"
)

// Group is one study group inside a cohort.
//
// NOTE:
//   - Member/facilitator lists are not embedded on Group. All membership
//     is stored in the group_memberships collection.
//   - Discord channel references start empty and are filled in by the
//     realization flow; the role reference is assigned when the group is
//     formed.
type Group struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	CohortID primitive.ObjectID `bson:"cohort_id" json:"cohort_id"`
	Name     string             `bson:"name" json:"name"`
	NameCI   string             `bson:"name_ci" json:"name_ci"`

	RoleID         string `bson:"role_id" json:"role_id"`
	TextChannelID  string `bson:"text_channel_id" json:"text_channel_id"`
	VoiceChannelID string `bson:"voice_channel_id" json:"voice_channel_id"`

	Status string `bson:"status" json:"status"`

	// Weekly meeting slot. MeetingDay is a time.Weekday value (0 = Sunday).
	MeetingDay    int    `bson:"meeting_day" json:"meeting_day"`
	MeetingHour   int    `bson:"meeting_hour" json:"meeting_hour"`
	MeetingMinute int    `bson:"meeting_minute" json:"meeting_minute"`
	TimeZone      string `bson:"time_zone" json:"time_zone"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// MeetingLocation resolves the group's time zone, falling back to UTC.
func (g Group) MeetingLocation() *time.Location {
	if g.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(g.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// internal/domain/models/cohort.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cohort is the parent of a set of groups that run on the same schedule.
// It owns the Discord guild-level resources shared by its groups: the
// category the group channels live under and the announcement channel.
type Cohort struct {
	ID     primitive.ObjectID `bson:"_id" json:"id"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"name_ci"`

	GuildID           string `bson:"guild_id" json:"guild_id"`
	CategoryID        string `bson:"category_id" json:"category_id"`
	AnnounceChannelID string `bson:"announce_channel_id" json:"announce_channel_id"`

	// MeetingCount is how many meetings each group in the cohort holds.
	MeetingCount int `bson:"meeting_count" json:"meeting_count"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

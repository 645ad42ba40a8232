// internal/app/sync/clients.go
package groupsync

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatClient is the surface of the Discord client the engine needs.
// Existence checks read the client's local object cache and never hit the
// network; mutating calls take a context and go over the wire.
//
// Categories are channels on the platform, so ChannelExists covers both.
type ChatClient interface {
	ChannelExists(channelID string) bool

	CreateCategory(ctx context.Context, guildID, name string) (string, error)
	CreateTextChannel(ctx context.Context, guildID, parentID, name string) (string, error)
	CreateVoiceChannel(ctx context.Context, guildID, parentID, name string) (string, error)
	CreateScheduledEvent(ctx context.Context, guildID, channelID, name string, start, end time.Time) (string, error)

	// RoleMemberIDs returns the ids of every guild member currently holding
	// the role, read once from the local member cache.
	RoleMemberIDs(guildID, roleID string) ([]string, error)
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error

	// VoiceConnectOverrideIDs returns the ids of members holding a
	// member-level connect override on the channel, read from the cached
	// channel's overwrite table.
	VoiceConnectOverrideIDs(channelID string) ([]string, error)
	GrantVoiceConnect(ctx context.Context, channelID, userID string) error
	RevokeVoiceConnect(ctx context.Context, channelID, userID string) error

	SendChannelMessage(ctx context.Context, channelID, content string) error
	SendDirectMessage(ctx context.Context, userID, content string) error
}

// Attendee is one calendar event attendee with their response status
// ("accepted", "declined", "tentative" or "none").
type Attendee struct {
	Email    string
	Response string
}

// CalendarClient is the surface of the calendar service the engine needs.
// Attendee replacement is a full replace of the event's list, not an
// incremental patch.
type CalendarClient interface {
	CreateEvent(ctx context.Context, calendarID, title string, start, end time.Time, attendees []string) (string, error)
	EventAttendees(ctx context.Context, calendarID, eventID string) ([]Attendee, error)
	ReplaceEventAttendees(ctx context.Context, calendarID, eventID string, attendees []string) error
}

// ReminderScheduler schedules the reminder job for a meeting. It must be
// idempotent per meeting: the boolean reports whether this call scheduled
// a new job (false means one was already queued). Expiry and cancellation
// of stale jobs are owned by the scheduler itself.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, meetingID, groupID primitive.ObjectID, at time.Time) (bool, error)
}

// RetryKindInfrastructure marks a retry whose original failure happened
// while provisioning. Consumers must replay it with creation permitted,
// since such retries only ever originate from an explicit realization call.
const RetryKindInfrastructure = "infrastructure"

// RetryQueue accepts a follow-up reconciliation request for a group whose
// sync reported a failure. Backoff policy lives behind the queue, not here.
type RetryQueue interface {
	Enqueue(ctx context.Context, kind string, groupID primitive.ObjectID, attempt int) error
}

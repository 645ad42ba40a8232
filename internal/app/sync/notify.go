// internal/app/sync/notify.go
package groupsync

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/cohortsync/internal/domain/models"
	"go.uber.org/zap"
)

// dispatchNotifications routes a message to each identity that was newly
// granted role access this call. A prior group_assigned log entry means
// this is a re-sync of someone already welcomed, so nothing is sent. On
// the sync that activated the group the full welcome goes out; a grant
// into an already-active group is a late join and gets the short DM plus
// a channel announcement. Every send is preceded by a log check and
// followed by a log write, which keeps the at-most-once guarantee.
func (e *Engine) dispatchNotifications(ctx context.Context, des *desiredState, res *Result) {
	n := &res.Notifications
	groupRef := des.Group.ID.Hex()

	for _, id := range res.Discord.GrantedIDs {
		prior, err := e.NotifyLog.AlreadySent(ctx, id, models.MsgGroupAssigned, models.RefGroup, groupRef)
		if err != nil {
			n.Failed++
			e.Log.Error("notification log check failed",
				zap.String("user_id", id), zap.Error(err))
			continue
		}
		if prior {
			n.Skipped++
			continue
		}

		switch {
		case res.Activated:
			e.sendLogged(ctx, n, id, models.MsgGroupAssigned, groupRef, func() error {
				return e.Chat.SendDirectMessage(ctx, id, welcomeMessage(des))
			})
		case des.Group.Status == models.GroupStatusActive:
			e.sendLogged(ctx, n, id, models.MsgMemberJoined, groupRef, func() error {
				return e.Chat.SendDirectMessage(ctx, id, memberJoinedDM(des))
			})
			e.sendLogged(ctx, n, id, models.MsgMemberJoinedChan, groupRef, func() error {
				return e.Chat.SendChannelMessage(ctx, des.Group.TextChannelID, memberJoinedAnnouncement(des, id))
			})
		default:
			// Group is still preview; the welcome belongs to the sync
			// that activates it.
			n.Skipped++
		}
	}
}

// sendLogged performs one check-send-record step for a single notification
// key.
func (e *Engine) sendLogged(ctx context.Context, n *NotifyResult, userID, msgType, groupRef string, send func() error) {
	prior, err := e.NotifyLog.AlreadySent(ctx, userID, msgType, models.RefGroup, groupRef)
	if err != nil {
		n.Failed++
		return
	}
	if prior {
		n.Skipped++
		return
	}
	if err := send(); err != nil {
		n.Failed++
		e.Log.Error("notification send failed",
			zap.String("user_id", userID),
			zap.String("message_type", msgType),
			zap.Error(err))
		return
	}
	entry := models.NotificationLogEntry{
		UserID:        userID,
		MessageType:   msgType,
		ReferenceType: models.RefGroup,
		ReferenceID:   groupRef,
		SentAt:        time.Now().UTC(),
	}
	if err := e.NotifyLog.RecordSent(ctx, entry); err != nil {
		// The message went out but the log write failed; a later sync may
		// re-send. Surface it loudly.
		e.Log.Error("notification log write failed",
			zap.String("user_id", userID),
			zap.String("message_type", msgType),
			zap.Error(err))
	}
	n.Sent++
}

func welcomeMessage(des *desiredState) string {
	return fmt.Sprintf(
		"Welcome to %s! Your group meets weekly on %s at %02d:%02d (%s). "+
			"Your channels are ready; say hello in the group text channel.",
		des.Group.Name,
		time.Weekday(des.Group.MeetingDay),
		des.Group.MeetingHour, des.Group.MeetingMinute,
		des.Group.MeetingLocation())
}

func memberJoinedDM(des *desiredState) string {
	return fmt.Sprintf("You've been added to %s. Check the group channel for the meeting schedule.",
		des.Group.Name)
}

func memberJoinedAnnouncement(des *desiredState, discordID string) string {
	if m, ok := des.byDiscordID(discordID); ok && m.DisplayName != "" {
		return fmt.Sprintf("%s just joined the group. Welcome!", m.DisplayName)
	}
	return fmt.Sprintf("<@%s> just joined the group. Welcome!", discordID)
}

func channelWelcome(des *desiredState) string {
	return fmt.Sprintf("This is the home channel for %s. Meetings run weekly on %s at %02d:%02d (%s).",
		des.Group.Name,
		time.Weekday(des.Group.MeetingDay),
		des.Group.MeetingHour, des.Group.MeetingMinute,
		des.Group.MeetingLocation())
}

// internal/app/sync/provision.go
package groupsync

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/cohortsync/internal/domain/models"
	"go.uber.org/zap"
)

// provision ensures the group's infrastructure exists: the cohort
// category, the text and voice channels, the meeting rows, and a Discord
// scheduled event per meeting. Each step is an idempotent check-then-create
// and is independently skippable; a failed step blocks only the steps that
// depend on the failed resource.
//
// A group with zero active members is left alone entirely; there is
// nothing to realize for it yet.
func (e *Engine) provision(ctx context.Context, des *desiredState, res *Result) {
	infra := &res.Infrastructure
	if len(des.Members) == 0 {
		infra.Skipped = true
		infra.Category = StateSkipped
		infra.TextChannel = StateSkipped
		infra.VoiceChannel = StateSkipped
		e.Log.Info("provisioning skipped: group has no active members",
			zap.String("group_id", des.Group.ID.Hex()))
		return
	}

	e.ensureCohortCategory(ctx, des, infra)
	e.ensureGroupChannels(ctx, des, infra)
	e.ensureGroupMeetings(ctx, des, infra)
	e.ensureMeetingEvents(ctx, des, infra)
}

func (e *Engine) ensureCohortCategory(ctx context.Context, des *desiredState, infra *InfraResult) {
	if des.Cohort.CategoryID != "" && e.Chat.ChannelExists(des.Cohort.CategoryID) {
		infra.Category = StateOK
		return
	}
	id, err := e.Chat.CreateCategory(ctx, des.Cohort.GuildID, des.Cohort.Name)
	if err != nil {
		infra.Category = StateFailed
		infra.Err = appendErr(infra.Err, fmt.Sprintf("create category: %v", err))
		e.Log.Error("category creation failed",
			zap.String("cohort_id", des.Cohort.ID.Hex()), zap.Error(err))
		return
	}
	if err := e.Cohorts.SetCategory(ctx, des.Cohort.ID, id); err != nil {
		infra.Category = StateFailed
		infra.Err = appendErr(infra.Err, fmt.Sprintf("persist category ref: %v", err))
		return
	}
	des.Cohort.CategoryID = id
	infra.Category = StateCreated
}

func (e *Engine) ensureGroupChannels(ctx context.Context, des *desiredState, infra *InfraResult) {
	categoryReady := infra.Category == StateOK || infra.Category == StateCreated

	// Text channel; the welcome post goes out only on first creation.
	switch {
	case des.Group.TextChannelID != "" && e.Chat.ChannelExists(des.Group.TextChannelID):
		infra.TextChannel = StateOK
	case !categoryReady:
		infra.TextChannel = StateSkipped
	default:
		id, err := e.Chat.CreateTextChannel(ctx, des.Cohort.GuildID, des.Cohort.CategoryID, des.Group.Name)
		if err != nil {
			infra.TextChannel = StateFailed
			infra.Err = appendErr(infra.Err, fmt.Sprintf("create text channel: %v", err))
			break
		}
		if err := e.Groups.SetChannels(ctx, des.Group.ID, id, ""); err != nil {
			infra.TextChannel = StateFailed
			infra.Err = appendErr(infra.Err, fmt.Sprintf("persist text channel ref: %v", err))
			break
		}
		des.Group.TextChannelID = id
		infra.TextChannel = StateCreated
		if err := e.Chat.SendChannelMessage(ctx, id, channelWelcome(des)); err != nil {
			e.Log.Warn("channel welcome post failed",
				zap.String("channel_id", id), zap.Error(err))
		}
	}

	switch {
	case des.Group.VoiceChannelID != "" && e.Chat.ChannelExists(des.Group.VoiceChannelID):
		infra.VoiceChannel = StateOK
	case !categoryReady:
		infra.VoiceChannel = StateSkipped
	default:
		id, err := e.Chat.CreateVoiceChannel(ctx, des.Cohort.GuildID, des.Cohort.CategoryID, des.Group.Name+" voice")
		if err != nil {
			infra.VoiceChannel = StateFailed
			infra.Err = appendErr(infra.Err, fmt.Sprintf("create voice channel: %v", err))
			break
		}
		if err := e.Groups.SetChannels(ctx, des.Group.ID, "", id); err != nil {
			infra.VoiceChannel = StateFailed
			infra.Err = appendErr(infra.Err, fmt.Sprintf("persist voice channel ref: %v", err))
			break
		}
		des.Group.VoiceChannelID = id
		infra.VoiceChannel = StateCreated
	}
}

func (e *Engine) ensureGroupMeetings(ctx context.Context, des *desiredState, infra *InfraResult) {
	existing, err := e.Meetings.ListByGroup(ctx, des.Group.ID)
	if err != nil {
		infra.Err = appendErr(infra.Err, fmt.Sprintf("list meetings: %v", err))
		return
	}
	want := des.Cohort.MeetingCount
	if want <= len(existing) {
		infra.Meetings = len(existing)
		return
	}

	// New meetings continue a week after the last existing one, or start at
	// the next occurrence of the group's weekly slot.
	next := nextMeetingTime(des.Group, time.Now())
	if n := len(existing); n > 0 {
		next = existing[n-1].ScheduledAt.Add(7 * 24 * time.Hour)
	}

	count := len(existing)
	for seq := len(existing) + 1; seq <= want; seq++ {
		_, err := e.Meetings.Insert(ctx, models.Meeting{
			GroupID:     des.Group.ID,
			Seq:         seq,
			ScheduledAt: next,
		})
		if err != nil {
			infra.Err = appendErr(infra.Err, fmt.Sprintf("insert meeting %d: %v", seq, err))
			break
		}
		count++
		next = next.Add(7 * 24 * time.Hour)
	}
	infra.Meetings = count
}

// ensureMeetingEvents creates the Discord scheduled event for each future
// meeting. Without a voice channel there is nothing to attach the event
// to, so the step is skipped rather than failed and picked up by a later sync
// once the channel exists.
func (e *Engine) ensureMeetingEvents(ctx context.Context, des *desiredState, infra *InfraResult) {
	if des.Group.VoiceChannelID == "" {
		return
	}
	meetings, err := e.Meetings.ListByGroup(ctx, des.Group.ID)
	if err != nil {
		infra.Err = appendErr(infra.Err, fmt.Sprintf("list meetings for events: %v", err))
		return
	}
	now := time.Now()
	for _, m := range meetings {
		if m.DiscordEventID != "" {
			infra.DiscordEvents++
			continue
		}
		if !m.ScheduledAt.After(now) {
			continue
		}
		evID, err := e.Chat.CreateScheduledEvent(ctx, des.Cohort.GuildID, des.Group.VoiceChannelID,
			meetingTitle(des.Group, m), m.ScheduledAt, m.ScheduledAt.Add(e.MeetingLength))
		if err != nil {
			infra.Err = appendErr(infra.Err, fmt.Sprintf("create event for meeting %d: %v", m.Seq, err))
			e.Log.Error("scheduled event creation failed",
				zap.String("meeting_id", m.ID.Hex()), zap.Error(err))
			continue
		}
		if err := e.Meetings.SetDiscordEvent(ctx, m.ID, evID); err != nil {
			infra.Err = appendErr(infra.Err, fmt.Sprintf("persist event ref for meeting %d: %v", m.Seq, err))
			continue
		}
		infra.DiscordEvents++
		e.pause()
	}
}

// checkInfrastructure is the allowCreate=false counterpart of provision:
// it verifies references without creating anything. Missing resources set
// NeedsInfrastructure; on an already-active group they are anomalies,
// flagged for review and never auto-repaired.
func (e *Engine) checkInfrastructure(ctx context.Context, des *desiredState, res *Result) {
	infra := &res.Infrastructure
	active := des.Group.Status == models.GroupStatusActive

	check := func(ref string) string {
		if ref != "" && e.Chat.ChannelExists(ref) {
			return StateOK
		}
		if active {
			return StateAnomaly
		}
		return StateMissing
	}
	infra.Category = check(des.Cohort.CategoryID)
	infra.TextChannel = check(des.Group.TextChannelID)
	infra.VoiceChannel = check(des.Group.VoiceChannelID)

	meetings, err := e.Meetings.ListByGroup(ctx, des.Group.ID)
	if err != nil {
		infra.Err = appendErr(infra.Err, fmt.Sprintf("list meetings: %v", err))
	} else {
		infra.Meetings = len(meetings)
		for _, m := range meetings {
			if m.DiscordEventID != "" {
				infra.DiscordEvents++
			}
		}
	}

	if infra.Category != StateOK || infra.TextChannel != StateOK ||
		infra.VoiceChannel != StateOK || infra.Meetings == 0 {
		infra.NeedsInfrastructure = true
		if active {
			e.Log.Warn("active group has missing infrastructure",
				zap.String("group_id", des.Group.ID.Hex()),
				zap.String("category", infra.Category),
				zap.String("text_channel", infra.TextChannel),
				zap.String("voice_channel", infra.VoiceChannel),
				zap.Int("meetings", infra.Meetings))
		}
	}
}

// nextMeetingTime computes the next occurrence of the group's weekly slot
// at or after from.
func nextMeetingTime(g models.Group, from time.Time) time.Time {
	loc := g.MeetingLocation()
	local := from.In(loc)
	t := time.Date(local.Year(), local.Month(), local.Day(),
		g.MeetingHour, g.MeetingMinute, 0, 0, loc)
	days := (int(time.Weekday(g.MeetingDay)) - int(t.Weekday()) + 7) % 7
	t = t.AddDate(0, 0, days)
	if t.Before(from) {
		t = t.AddDate(0, 0, 7)
	}
	return t
}

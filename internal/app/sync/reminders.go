// internal/app/sync/reminders.go
package groupsync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// reconcileReminders ensures exactly one reminder job exists for every
// future meeting. The scheduler deduplicates by meeting id, so re-syncs
// are free. Jobs for past or deleted meetings are not cancelled here;
// expiry is owned by the scheduler.
func (e *Engine) reconcileReminders(ctx context.Context, des *desiredState, res *Result) {
	r := &res.Reminders
	meetings, err := e.Meetings.ListByGroup(ctx, des.Group.ID)
	if err != nil {
		r.Err = appendErr(r.Err, fmt.Sprintf("list meetings: %v", err))
		return
	}
	now := time.Now()
	for _, m := range meetings {
		if !m.ScheduledAt.After(now) {
			continue
		}
		r.Meetings++
		at := m.ScheduledAt.Add(-e.ReminderLead)
		if at.Before(now) {
			at = now
		}
		scheduled, err := e.Reminders.ScheduleReminder(ctx, m.ID, des.Group.ID, at)
		if err != nil {
			r.Failed++
			e.Log.Error("reminder scheduling failed",
				zap.String("meeting_id", m.ID.Hex()), zap.Error(err))
			continue
		}
		if scheduled {
			r.Scheduled++
		}
	}
}

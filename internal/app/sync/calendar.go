// internal/app/sync/calendar.go
package groupsync

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/cohortsync/internal/domain/models"
	"go.uber.org/zap"
)

// reconcileCalendar brings each meeting's calendar event attendee list in
// line with the membership rows. An event whose list already matches is
// not touched; one that differs gets a full-replace patch (which also
// sends update notifications to attendees). Events are only created when
// the call is permitted to provision.
func (e *Engine) reconcileCalendar(ctx context.Context, des *desiredState, res *Result, allowCreate bool) {
	c := &res.Calendar
	meetings, err := e.Meetings.ListByGroup(ctx, des.Group.ID)
	if err != nil {
		c.Err = appendErr(c.Err, fmt.Sprintf("list meetings: %v", err))
		return
	}
	want := des.emails()
	now := time.Now()

	for _, m := range meetings {
		c.Meetings++
		if m.CalendarEventID == "" {
			if !allowCreate || len(want) == 0 || !m.ScheduledAt.After(now) {
				c.Skipped++
				continue
			}
			id, err := e.Calendar.CreateEvent(ctx, e.CalendarID,
				meetingTitle(des.Group, m), m.ScheduledAt, m.ScheduledAt.Add(e.MeetingLength), want)
			if err != nil {
				c.Failed++
				e.Log.Error("calendar event creation failed",
					zap.String("meeting_id", m.ID.Hex()), zap.Error(err))
				continue
			}
			if err := e.Meetings.SetCalendarEvent(ctx, m.ID, id); err != nil {
				c.Failed++
				e.Log.Error("calendar event ref persist failed",
					zap.String("meeting_id", m.ID.Hex()), zap.Error(err))
				continue
			}
			c.Created++
			continue
		}

		got, err := e.Calendar.EventAttendees(ctx, e.CalendarID, m.CalendarEventID)
		if err != nil {
			c.Failed++
			e.Log.Error("attendee read failed",
				zap.String("event_id", m.CalendarEventID), zap.Error(err))
			continue
		}
		if attendeesMatch(got, want) {
			c.Unchanged++
			continue
		}
		if err := e.Calendar.ReplaceEventAttendees(ctx, e.CalendarID, m.CalendarEventID, want); err != nil {
			c.Failed++
			e.Log.Error("attendee patch failed",
				zap.String("event_id", m.CalendarEventID), zap.Error(err))
			continue
		}
		c.Patched++
	}
}

// attendeesMatch compares the actual attendee list against the desired
// email set, ignoring case and order.
func attendeesMatch(got []Attendee, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	emails := make([]string, 0, len(got))
	for _, a := range got {
		emails = append(emails, strings.ToLower(a.Email))
	}
	sort.Strings(emails)
	for i := range emails {
		if emails[i] != want[i] {
			return false
		}
	}
	return true
}

func meetingTitle(g models.Group, m models.Meeting) string {
	return fmt.Sprintf("%s: meeting %d", g.Name, m.Seq)
}

// internal/app/sync/rsvps.go
package groupsync

import (
	"context"
	"fmt"
	"strings"

	"github.com/dalemusser/cohortsync/internal/domain/models"
	"go.uber.org/zap"
)

// reconcileRsvps pulls attendee response status from each meeting's
// calendar event into the local RSVP records. Pure pull: nothing is
// written back to the calendar. Attendees that no longer map to an active
// membership are ignored.
func (e *Engine) reconcileRsvps(ctx context.Context, des *desiredState, res *Result) {
	v := &res.Rsvps
	meetings, err := e.Meetings.ListByGroup(ctx, des.Group.ID)
	if err != nil {
		v.Err = appendErr(v.Err, fmt.Sprintf("list meetings: %v", err))
		return
	}
	for _, m := range meetings {
		if m.CalendarEventID == "" {
			continue
		}
		attendees, err := e.Calendar.EventAttendees(ctx, e.CalendarID, m.CalendarEventID)
		if err != nil {
			v.Failed++
			e.Log.Error("rsvp pull failed",
				zap.String("event_id", m.CalendarEventID), zap.Error(err))
			continue
		}
		v.Meetings++
		for _, a := range attendees {
			mem, ok := des.byEmail(a.Email)
			if !ok {
				continue
			}
			rsvp := models.RSVP{
				MeetingID: m.ID,
				UserID:    mem.UserID,
				Email:     strings.ToLower(a.Email),
				Response:  normalizeResponse(a.Response),
			}
			if err := e.RSVPs.Upsert(ctx, rsvp); err != nil {
				v.Failed++
				e.Log.Error("rsvp upsert failed",
					zap.String("meeting_id", m.ID.Hex()),
					zap.String("user_id", mem.UserID.Hex()),
					zap.Error(err))
				continue
			}
			v.Records++
		}
	}
}

func normalizeResponse(s string) string {
	switch s {
	case models.RsvpAccepted, models.RsvpDeclined, models.RsvpTentative:
		return s
	default:
		return models.RsvpNone
	}
}

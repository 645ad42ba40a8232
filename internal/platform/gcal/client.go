// internal/platform/gcal/client.go

// Package gcal adapts the Google Calendar API to the sync engine's
// CalendarClient. Attendee patches are a full replace of the event's
// list, with update emails sent to attendees.
package gcal

import (
	"context"
	"time"

	groupsync "github.com/dalemusser/cohortsync/internal/app/sync"
	"github.com/dalemusser/cohortsync/internal/domain/models"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type Client struct {
	svc *calendar.Service
	log *zap.Logger
}

// New builds a calendar service from a service-account credentials file.
func New(ctx context.Context, credentialsFile string, logger *zap.Logger) (*Client, error) {
	svc, err := calendar.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(calendar.CalendarEventsScope))
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc, log: logger}, nil
}

func (c *Client) CreateEvent(ctx context.Context, calendarID, title string, start, end time.Time, attendees []string) (string, error) {
	ev := &calendar.Event{
		Summary:   title,
		Start:     &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:       &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
		Attendees: toEventAttendees(attendees),
	}
	created, err := c.svc.Events.Insert(calendarID, ev).
		SendUpdates("all").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

func (c *Client) EventAttendees(ctx context.Context, calendarID, eventID string) ([]groupsync.Attendee, error) {
	ev, err := c.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := make([]groupsync.Attendee, 0, len(ev.Attendees))
	for _, a := range ev.Attendees {
		out = append(out, groupsync.Attendee{
			Email:    a.Email,
			Response: fromResponseStatus(a.ResponseStatus),
		})
	}
	return out, nil
}

func (c *Client) ReplaceEventAttendees(ctx context.Context, calendarID, eventID string, attendees []string) error {
	patch := &calendar.Event{Attendees: toEventAttendees(attendees)}
	_, err := c.svc.Events.Patch(calendarID, eventID, patch).
		SendUpdates("all").Context(ctx).Do()
	return err
}

func toEventAttendees(emails []string) []*calendar.EventAttendee {
	out := make([]*calendar.EventAttendee, 0, len(emails))
	for _, e := range emails {
		out = append(out, &calendar.EventAttendee{Email: e})
	}
	return out
}

// fromResponseStatus maps the calendar API's responseStatus values onto
// the local RSVP vocabulary ("needsAction" and anything unknown become
// "none").
func fromResponseStatus(s string) string {
	switch s {
	case "accepted":
		return models.RsvpAccepted
	case "declined":
		return models.RsvpDeclined
	case "tentative":
		return models.RsvpTentative
	default:
		return models.RsvpNone
	}
}

// internal/app/sync/engine.go

// Package groupsync keeps a group's external systems (Discord roles and
// channels, calendar event attendees, reminder jobs, and local RSVP
// records) in agreement with the membership rows in the database.
//
// The database is the single source of truth; everything else is a
// projection that can drift and is brought back by diffing desired state
// against actual state and applying only the difference. Each sub-step's
// failures are isolated: a calendar outage never prevents role grants
// from being applied. Failed sub-steps are handed to the retry queue.
package groupsync

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Engine is the group synchronization engine. It holds no mutable state
// of its own and is safe to invoke concurrently for different group ids.
type Engine struct {
	Groups      GroupStore
	Cohorts     CohortStore
	Memberships MembershipStore
	Meetings    MeetingStore
	NotifyLog   NotificationLog
	RSVPs       RsvpStore

	Chat      ChatClient
	Calendar  CalendarClient
	Reminders ReminderScheduler
	Retries   RetryQueue

	Log *zap.Logger

	// CalendarID is the calendar the meeting events live on.
	CalendarID string

	// CallDelay is slept between per-identity Discord calls to stay under
	// platform rate limits. A throughput throttle, not a correctness
	// mechanism; zero disables it.
	CallDelay time.Duration

	// ReminderLead is how long before a meeting its reminder fires.
	ReminderLead time.Duration

	// MeetingLength is used for the end time of created calendar events
	// and scheduled events.
	MeetingLength time.Duration
}

// New fills in defaults and returns the engine ready for use.
func New(e Engine) *Engine {
	if e.Log == nil {
		e.Log = zap.NewNop()
	}
	if e.ReminderLead == 0 {
		e.ReminderLead = 30 * time.Minute
	}
	if e.MeetingLength == 0 {
		e.MeetingLength = time.Hour
	}
	return &e
}

// SyncGroup reconciles one group against every external system. With
// allowCreate it first provisions missing infrastructure (the explicit
// realization command path); without it, missing resources are reported
// and membership reconciliation proceeds against whatever exists.
//
// The only error returned is a desired-state precondition failure (group,
// cohort, or membership rows unreadable); every other failure is captured
// inside the Result and scheduled for retry.
func (e *Engine) SyncGroup(ctx context.Context, groupID primitive.ObjectID, allowCreate bool) (*Result, error) {
	return e.syncGroup(ctx, groupID, allowCreate, 0)
}

// Resync re-runs reconciliation for a group on behalf of the retry queue.
// Retries of kind RetryKindInfrastructure carry the realization permission
// with them (the original failure happened while provisioning); every other
// kind verifies existing infrastructure without creating anything.
func (e *Engine) Resync(ctx context.Context, groupID primitive.ObjectID, attempt int, allowCreate bool) (*Result, error) {
	return e.syncGroup(ctx, groupID, allowCreate, attempt)
}

func (e *Engine) syncGroup(ctx context.Context, groupID primitive.ObjectID, allowCreate bool, attempt int) (*Result, error) {
	log := e.Log.With(
		zap.String("group_id", groupID.Hex()),
		zap.Bool("allow_create", allowCreate))

	des, err := e.loadDesired(ctx, groupID)
	if err != nil {
		log.Error("desired state read failed", zap.Error(err))
		return nil, err
	}

	res := &Result{
		GroupID: groupID.Hex(),
		Status:  des.Group.Status,
	}
	res.Discord.GrantedIDs = []string{}
	res.Discord.RevokedIDs = []string{}

	if allowCreate {
		e.step(log, "infrastructure", res, func() { e.provision(ctx, des, res) })
	} else {
		e.step(log, "infrastructure", res, func() { e.checkInfrastructure(ctx, des, res) })
	}
	e.step(log, "discord", res, func() { e.reconcilePermissions(ctx, des, res) })
	e.step(log, "calendar", res, func() { e.reconcileCalendar(ctx, des, res, allowCreate) })
	e.step(log, "reminders", res, func() { e.reconcileReminders(ctx, des, res) })
	e.step(log, "rsvps", res, func() { e.reconcileRsvps(ctx, des, res) })
	e.step(log, "status", res, func() { e.evaluateStatus(ctx, des, res) })
	e.step(log, "notifications", res, func() { e.dispatchNotifications(ctx, des, res) })

	e.scheduleRetries(ctx, groupID, res, attempt)

	res.Status = des.Group.Status
	log.Info("group sync finished",
		zap.String("status", res.Status),
		zap.Bool("activated", res.Activated),
		zap.Int("granted", res.Discord.Granted),
		zap.Int("revoked", res.Discord.Revoked),
		zap.Int("unchanged", res.Discord.Unchanged),
		zap.Int("calendar_patched", res.Calendar.Patched),
		zap.Int("notifications_sent", res.Notifications.Sent))
	return res, nil
}

// SyncAfterGroupChange runs after an enrollment move: the vacated group is
// synchronized first so stale access is revoked before the joined group's
// access is granted. Neither call provisions infrastructure; that is only
// permitted via the explicit realization command.
func (e *Engine) SyncAfterGroupChange(ctx context.Context, groupID primitive.ObjectID, previousGroupID *primitive.ObjectID) (*SwitchResult, error) {
	out := &SwitchResult{}
	if previousGroupID != nil {
		old, err := e.SyncGroup(ctx, *previousGroupID, false)
		if err != nil {
			// The vacated group may have been deleted in the meantime.
			// Revocation is moot then; carry on to the joined group.
			e.Log.Warn("previous group sync failed",
				zap.String("previous_group_id", previousGroupID.Hex()),
				zap.Error(err))
		} else {
			out.OldGroup = old
		}
	}
	nw, err := e.SyncGroup(ctx, groupID, false)
	if err != nil {
		return nil, err
	}
	out.NewGroup = nw
	return out, nil
}

// step runs one top-level sub-step with panic isolation so a bug in one
// subsystem cannot prevent the remaining subsystems from reconciling.
func (e *Engine) step(log *zap.Logger, name string, res *Result, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("sync step panicked",
				zap.String("step", name),
				zap.Any("panic", r))
			res.noteStepError(name, fmt.Sprintf("panic: %v", r))
		}
	}()
	fn()
}

// noteStepError records an error marker in the section belonging to a step.
func (r *Result) noteStepError(step, msg string) {
	switch step {
	case "infrastructure":
		r.Infrastructure.Err = appendErr(r.Infrastructure.Err, msg)
	case "discord":
		r.Discord.Err = appendErr(r.Discord.Err, msg)
	case "calendar":
		r.Calendar.Err = appendErr(r.Calendar.Err, msg)
	case "reminders":
		r.Reminders.Err = appendErr(r.Reminders.Err, msg)
	case "rsvps":
		r.Rsvps.Err = appendErr(r.Rsvps.Err, msg)
	case "status":
		r.StatusErr = appendErr(r.StatusErr, msg)
	case "notifications":
		r.Notifications.Failed++
	}
}

// scheduleRetries enqueues a follow-up reconciliation for every section
// that reported a failure. Backoff is owned by the queue.
func (e *Engine) scheduleRetries(ctx context.Context, groupID primitive.ObjectID, res *Result, attempt int) {
	if e.Retries == nil {
		return
	}
	checks := []struct {
		kind   string
		failed bool
	}{
		{RetryKindInfrastructure, res.Infrastructure.failed()},
		{"discord", res.Discord.Err != "" || res.Discord.Failed > 0 || res.Discord.FacilitatorFailed > 0},
		{"calendar", res.Calendar.Err != "" || res.Calendar.Failed > 0},
		{"reminders", res.Reminders.Err != "" || res.Reminders.Failed > 0},
		{"rsvps", res.Rsvps.Err != "" || res.Rsvps.Failed > 0},
		{"status", res.StatusErr != ""},
	}
	for _, c := range checks {
		if !c.failed {
			continue
		}
		if err := e.Retries.Enqueue(ctx, c.kind, groupID, attempt+1); err != nil {
			e.Log.Error("retry enqueue failed",
				zap.String("kind", c.kind),
				zap.String("group_id", groupID.Hex()),
				zap.Error(err))
			continue
		}
		e.Log.Info("retry scheduled",
			zap.String("kind", c.kind),
			zap.String("group_id", groupID.Hex()),
			zap.Int("attempt", attempt+1))
	}
}

func (e *Engine) pause() {
	if e.CallDelay > 0 {
		time.Sleep(e.CallDelay)
	}
}

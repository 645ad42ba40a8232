// internal/platform/queue/worker.go
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	groupstore "github.com/dalemusser/cohortsync/internal/app/store/groups"
	meetingstore "github.com/dalemusser/cohortsync/internal/app/store/meetings"
	membershipstore "github.com/dalemusser/cohortsync/internal/app/store/memberships"
	notifylogstore "github.com/dalemusser/cohortsync/internal/app/store/notifylog"
	groupsync "github.com/dalemusser/cohortsync/internal/app/sync"
	"github.com/dalemusser/cohortsync/internal/domain/models"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Worker consumes reminder and resync tasks.
type Worker struct {
	srv *asynq.Server
	mux *asynq.ServeMux

	engine      *groupsync.Engine
	groups      *groupstore.Store
	meetings    *meetingstore.Store
	memberships *membershipstore.Store
	notifyLog   *notifylogstore.Store
	chat        groupsync.ChatClient
	log         *zap.Logger
}

func NewWorker(
	redisOpt asynq.RedisClientOpt,
	engine *groupsync.Engine,
	groups *groupstore.Store,
	meetings *meetingstore.Store,
	memberships *membershipstore.Store,
	notifyLog *notifylogstore.Store,
	chat groupsync.ChatClient,
	logger *zap.Logger,
) *Worker {
	w := &Worker{
		srv: asynq.NewServer(redisOpt, asynq.Config{
			Concurrency: 4,
		}),
		mux:         asynq.NewServeMux(),
		engine:      engine,
		groups:      groups,
		meetings:    meetings,
		memberships: memberships,
		notifyLog:   notifyLog,
		chat:        chat,
		log:         logger,
	}
	w.mux.HandleFunc(TypeMeetingReminder, w.handleReminder)
	w.mux.HandleFunc(TypeGroupResync, w.handleResync)
	return w
}

// Start launches the consumer loop in the background.
func (w *Worker) Start() error {
	return w.srv.Start(w.mux)
}

func (w *Worker) Stop() {
	w.srv.Shutdown()
}

// handleReminder posts the meeting reminder into the group's text channel
// and DMs the facilitators. The notification log deduplicates each send in
// case a re-sync re-enqueued the job inside the lead window.
func (w *Worker) handleReminder(ctx context.Context, t *asynq.Task) error {
	var p reminderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("reminder payload: %w", err)
	}
	meetingID, err := primitive.ObjectIDFromHex(p.MeetingID)
	if err != nil {
		return fmt.Errorf("reminder meeting id: %w", err)
	}
	groupID, err := primitive.ObjectIDFromHex(p.GroupID)
	if err != nil {
		return fmt.Errorf("reminder group id: %w", err)
	}

	meeting, err := w.meetings.GetByID(ctx, meetingID)
	if errors.Is(err, meetingstore.ErrNotFound) {
		w.log.Warn("reminder for deleted meeting dropped",
			zap.String("meeting_id", p.MeetingID))
		return nil
	}
	if err != nil {
		return err
	}
	group, err := w.groups.GetByID(ctx, groupID)
	if errors.Is(err, groupstore.ErrNotFound) {
		w.log.Warn("reminder for deleted group dropped",
			zap.String("group_id", p.GroupID))
		return nil
	}
	if err != nil {
		return err
	}
	if group.TextChannelID == "" {
		w.log.Warn("reminder skipped: group has no text channel",
			zap.String("group_id", p.GroupID))
		return nil
	}

	sent, err := w.notifyLog.AlreadySent(ctx, group.TextChannelID,
		models.MsgMeetingReminder, models.RefMeeting, meetingID.Hex())
	if err != nil {
		return err
	}
	if sent {
		return nil
	}

	msg := fmt.Sprintf("Reminder: %s meets at %s.",
		group.Name, meeting.ScheduledAt.In(group.MeetingLocation()).Format("Mon Jan 2 15:04"))
	if err := w.chat.SendChannelMessage(ctx, group.TextChannelID, msg); err != nil {
		return err
	}
	err = w.notifyLog.RecordSent(ctx, models.NotificationLogEntry{
		UserID:        group.TextChannelID,
		MessageType:   models.MsgMeetingReminder,
		ReferenceType: models.RefMeeting,
		ReferenceID:   meetingID.Hex(),
		SentAt:        time.Now().UTC(),
	})
	if err != nil && !errors.Is(err, notifylogstore.ErrAlreadySent) {
		w.log.Error("reminder log write failed", zap.Error(err))
	}

	w.remindFacilitators(ctx, group, meetingID, msg)
	return nil
}

// remindFacilitators DMs each facilitator of the group, deduplicated per
// (facilitator, meeting). Failures here never fail the task: the channel
// reminder already went out and asynq would re-run the whole handler.
func (w *Worker) remindFacilitators(ctx context.Context, group models.Group, meetingID primitive.ObjectID, msg string) {
	members, err := w.memberships.ListActive(ctx, group.ID)
	if err != nil {
		w.log.Error("reminder facilitator lookup failed",
			zap.String("group_id", group.ID.Hex()), zap.Error(err))
		return
	}
	for _, m := range members {
		if m.Role != models.RoleFacilitator || m.DiscordID == "" {
			continue
		}
		sent, err := w.notifyLog.AlreadySent(ctx, m.DiscordID,
			models.MsgMeetingReminder, models.RefMeeting, meetingID.Hex())
		if err != nil || sent {
			continue
		}
		if err := w.chat.SendDirectMessage(ctx, m.DiscordID, msg); err != nil {
			w.log.Error("facilitator reminder DM failed",
				zap.String("user_id", m.DiscordID), zap.Error(err))
			continue
		}
		err = w.notifyLog.RecordSent(ctx, models.NotificationLogEntry{
			UserID:        m.DiscordID,
			MessageType:   models.MsgMeetingReminder,
			ReferenceType: models.RefMeeting,
			ReferenceID:   meetingID.Hex(),
			SentAt:        time.Now().UTC(),
		})
		if err != nil && !errors.Is(err, notifylogstore.ErrAlreadySent) {
			w.log.Error("facilitator reminder log write failed", zap.Error(err))
		}
	}
}

// handleResync re-runs reconciliation for a group whose earlier sync
// reported a failure. A group deleted since the failure is terminal: the
// task is dropped, not retried.
func (w *Worker) handleResync(ctx context.Context, t *asynq.Task) error {
	var p resyncPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("resync payload: %w", err)
	}
	groupID, err := primitive.ObjectIDFromHex(p.GroupID)
	if err != nil {
		return fmt.Errorf("resync group id: %w", err)
	}

	// Infrastructure retries replay the provisioning the original realize
	// call attempted, so they carry its creation permission.
	allowCreate := p.Kind == groupsync.RetryKindInfrastructure

	w.log.Info("resync started",
		zap.String("group_id", p.GroupID),
		zap.String("kind", p.Kind),
		zap.Int("attempt", p.Attempt),
		zap.Bool("allow_create", allowCreate))

	_, err = w.engine.Resync(ctx, groupID, p.Attempt, allowCreate)
	if errors.Is(err, groupstore.ErrNotFound) {
		w.log.Warn("resync dropped: group deleted",
			zap.String("group_id", p.GroupID))
		return nil
	}
	return err
}

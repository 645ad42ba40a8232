// internal/platform/queue/client.go
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxResyncAttempts caps how many follow-ups one failure can generate;
// the periodic sweep will pick the group up again regardless.
const maxResyncAttempts = 5

// Client enqueues reminder and resync tasks. It implements the engine's
// ReminderScheduler and RetryQueue.
type Client struct {
	a   *asynq.Client
	log *zap.Logger
}

func NewClient(redisOpt asynq.RedisClientOpt, logger *zap.Logger) *Client {
	return &Client{a: asynq.NewClient(redisOpt), log: logger}
}

func (c *Client) Close() error {
	return c.a.Close()
}

// ScheduleReminder enqueues the reminder job for a meeting. The task id is
// derived from the meeting id, so a job already in the queue makes this a
// no-op: at most one pending reminder per meeting.
func (c *Client) ScheduleReminder(ctx context.Context, meetingID, groupID primitive.ObjectID, at time.Time) (bool, error) {
	task, err := newReminderTask(reminderPayload{
		MeetingID: meetingID.Hex(),
		GroupID:   groupID.Hex(),
	})
	if err != nil {
		return false, err
	}
	_, err = c.a.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.TaskID("reminder:"+meetingID.Hex()),
		asynq.MaxRetry(3))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Enqueue schedules a follow-up reconciliation for a group whose sync
// reported a failed step. Delay grows with the attempt number; concurrent
// requests for the same (kind, group, attempt) collapse into one task.
func (c *Client) Enqueue(ctx context.Context, kind string, groupID primitive.ObjectID, attempt int) error {
	if attempt > maxResyncAttempts {
		c.log.Warn("resync retry budget exhausted",
			zap.String("kind", kind),
			zap.String("group_id", groupID.Hex()),
			zap.Int("attempt", attempt))
		return nil
	}
	task, err := newResyncTask(resyncPayload{
		GroupID: groupID.Hex(),
		Kind:    kind,
		Attempt: attempt,
	})
	if err != nil {
		return err
	}
	_, err = c.a.EnqueueContext(ctx, task,
		asynq.ProcessIn(retryDelay(attempt)),
		asynq.TaskID(fmt.Sprintf("resync:%s:%s:%d", kind, groupID.Hex(), attempt)),
		asynq.MaxRetry(0))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := 30 * time.Second << uint(attempt-1)
	if d > 30*time.Minute {
		d = 30 * time.Minute
	}
	return d
}

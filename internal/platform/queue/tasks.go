// internal/platform/queue/tasks.go

// Package queue holds the Redis-backed job plumbing: reminder jobs for
// upcoming meetings and the retry queue that re-runs failed sync steps.
package queue

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names.
const (
	TypeMeetingReminder = "meeting:reminder"
	TypeGroupResync     = "group:resync"
)

type reminderPayload struct {
	MeetingID string `json:"meeting_id"`
	GroupID   string `json:"group_id"`
}

type resyncPayload struct {
	GroupID string `json:"group_id"`
	Kind    string `json:"kind"`
	Attempt int    `json:"attempt"`
}

func newReminderTask(p reminderPayload) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeMeetingReminder, b), nil
}

func newResyncTask(p resyncPayload) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeGroupResync, b), nil
}

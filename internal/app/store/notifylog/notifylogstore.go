// internal/app/store/notifylog/notifylogstore.go
package notifylogstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/cohortsync/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

// ErrAlreadySent reports that an entry with the same dedup key already
// exists. The unique index on (user_id, message_type, reference_type,
// reference_id) raises it even when two senders race.
var ErrAlreadySent = errors.New("notification already recorded for this key")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notification_log")}
}

// AlreadySent reports whether a notification with this dedup key has been
// recorded.
func (s *Store) AlreadySent(ctx context.Context, userID, messageType, referenceType, referenceID string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{
		"user_id":        userID,
		"message_type":   messageType,
		"reference_type": referenceType,
		"reference_id":   referenceID,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecordSent appends a log entry for a delivered notification. A duplicate
// key is reported as ErrAlreadySent so callers can treat a lost race as a
// skip rather than a failure.
func (s *Store) RecordSent(ctx context.Context, e models.NotificationLogEntry) error {
	if e.SentAt.IsZero() {
		e.SentAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, e)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrAlreadySent
		}
		return err
	}
	return nil
}

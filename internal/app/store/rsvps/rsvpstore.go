// internal/app/store/rsvps/rsvpstore.go
package rsvpstore

import (
	"context"
	"time"

	"github.com/dalemusser/cohortsync/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("rsvps")}
}

// Upsert writes the response for (meeting_id, user_id), overwriting any
// previous pull.
func (s *Store) Upsert(ctx context.Context, r models.RSVP) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"meeting_id": r.MeetingID, "user_id": r.UserID},
		bson.M{"$set": bson.M{
			"email":      r.Email,
			"response":   r.Response,
			"updated_at": time.Now().UTC(),
		}},
		options.Update().SetUpsert(true))
	return err
}

// ListByMeeting returns the recorded responses for one meeting.
func (s *Store) ListByMeeting(ctx context.Context, meetingID primitive.ObjectID) ([]models.RSVP, error) {
	cur, err := s.c.Find(ctx, bson.M{"meeting_id": meetingID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.RSVP
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

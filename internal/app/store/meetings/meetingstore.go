// internal/app/store/meetings/meetingstore.go
package meetingstore

import (
	"context"
	"errors"
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

var ErrNotFound = errors.New("meeting not found")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("meetings")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Meeting, error) {
	var m models.Meeting
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Meeting{}, ErrNotFound
		}
		return models.Meeting{}, err
	}
	return m, nil
}

// ListByGroup returns a group's meetings ordered by sequence number.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Meeting, error) {
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Meeting
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, m models.Meeting) (models.Meeting, error) {
	m.ID = primitive.NewObjectID()
	m.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Meeting{}, err
	}
	return m, nil
}

func (s *Store) SetDiscordEvent(ctx context.Context, id primitive.ObjectID, eventID string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"discord_event_id": eventID}})
	return err
}

func (s *Store) SetCalendarEvent(ctx context.Context, id primitive.ObjectID, eventID string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"calendar_event_id": eventID}})
	return err
}

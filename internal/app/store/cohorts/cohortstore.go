// internal/app/store/cohorts/cohortstore.go
package cohortstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/cohortsync/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound            = errors.New("cohort not found")
	ErrDuplicateCohortName = errors.New("a cohort with this name already exists")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("cohorts")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Cohort, error) {
	var c models.Cohort
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Cohort{}, ErrNotFound
		}
		return models.Cohort{}, err
	}
	return c, nil
}

func (s *Store) Create(ctx context.Context, c models.Cohort) (models.Cohort, error) {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.NameCI = text.Fold(c.Name)
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, c)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Cohort{}, ErrDuplicateCohortName
		}
		return models.Cohort{}, err
	}
	return c, nil
}

// SetCategory persists the Discord category reference after the realization
// flow creates it.
func (s *Store) SetCategory(ctx context.Context, id primitive.ObjectID, categoryID string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"category_id": categoryID,
		"updated_at":  time.Now().UTC(),
	}})
	return err
}

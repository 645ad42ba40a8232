// internal/app/store/memberships/membershipstore.go
package membershipstore

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
	return &Store{c: db.Collection("group_memberships")}
}

// ListActive returns the active memberships of a group in a stable order:
// facilitators first, then participants, then by discord id. The sync
// engine treats this as the desired state for every external system.
func (s *Store) ListActive(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMembership, error) {
	pipe := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"group_id": groupID,
			"status":   models.MembershipActive,
		}}},
		bson.D{{Key: "$addFields", Value: bson.M{
			"role_rank": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$role", models.RoleFacilitator}}, 0, 1,
			}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "role_rank", Value: 1},
			{Key: "discord_id", Value: 1},
			{Key: "_id", Value: 1},
		}}},
	}

	cur, err := s.c.Aggregate(ctx, pipe)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.GroupMembership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert writes the membership row for (group_id, user_id), inserting on
// first enrollment and updating role/status/identity fields afterwards.
func (s *Store) Upsert(ctx context.Context, m models.GroupMembership) error {
	set := bson.M{
		"discord_id":   m.DiscordID,
		"email":        m.Email,
		"display_name": m.DisplayName,
		"role":         m.Role,
		"status":       m.Status,
	}
	if m.LeftAt != nil {
		set["left_at"] = *m.LeftAt
	}
	_, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": m.GroupID, "user_id": m.UserID},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"joined_at": time.Now().UTC()},
		},
		options.Update().SetUpsert(true))
	return err
}

// Remove marks a membership removed. The row is kept: it carries the audit
// trail and the revoke side of the next reconciliation.
func (s *Store) Remove(ctx context.Context, groupID, userID primitive.ObjectID) error {
	now := time.Now().UTC()
	_, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID},
		bson.M{"$set": bson.M{
			"status":  models.MembershipRemoved,
			"left_at": now,
		}})
	return err
}

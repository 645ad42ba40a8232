// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.

The unique index on notification_log is load-bearing: it is the
schema-level backstop for the at-most-once notification guarantee.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureGroups(ctx, db); err != nil {
		problems = append(problems, "groups: "+err.Error())
	}
	if err := ensureCohorts(ctx, db); err != nil {
		problems = append(problems, "cohorts: "+err.Error())
	}
	if err := ensureGroupMemberships(ctx, db); err != nil {
		problems = append(problems, "group_memberships: "+err.Error())
	}
	if err := ensureMeetings(ctx, db); err != nil {
		problems = append(problems, "meetings: "+err.Error())
	}
	if err := ensureNotificationLog(ctx, db); err != nil {
		problems = append(problems, "notification_log: "+err.Error())
	}
	if err := ensureRsvps(ctx, db); err != nil {
		problems = append(problems, "rsvps: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string
	for _, m := range models {
		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			name := ""
			if m.Options != nil && m.Options.Name != nil {
				name = *m.Options.Name
			}
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func ensureGroups(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("groups"), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "cohort_id", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().
				SetName("uniq_groups_cohort_nameci").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_groups_status"),
		},
	})
}

func ensureCohorts(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("cohorts"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("uniq_cohorts_nameci").SetUnique(true),
		},
	})
}

func ensureGroupMemberships(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("group_memberships"), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_memberships_group_user").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_memberships_group_status"),
		},
	})
}

func ensureMeetings(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("meetings"), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "seq", Value: 1}},
			Options: options.Index().
				SetName("uniq_meetings_group_seq").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "scheduled_at", Value: 1}},
			Options: options.Index().SetName("idx_meetings_scheduled_at"),
		},
	})
}

func ensureNotificationLog(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("notification_log"), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "message_type", Value: 1},
				{Key: "reference_type", Value: 1},
				{Key: "reference_id", Value: 1},
			},
			Options: options.Index().
				SetName("uniq_notification_log_key").SetUnique(true),
		},
	})
}

func ensureRsvps(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("rsvps"), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "meeting_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_rsvps_meeting_user").SetUnique(true),
		},
	})
}

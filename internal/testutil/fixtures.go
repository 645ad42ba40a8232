package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/cohortsync/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateCohort creates a test cohort with guild-level Discord resources
// already assigned.
func (f *Fixtures) CreateCohort(ctx context.Context, name string) models.Cohort {
	f.t.Helper()

	now := time.Now().UTC()
	cohort := models.Cohort{
		ID:                primitive.NewObjectID(),
		Name:              name,
		NameCI:            text.Fold(name),
		GuildID:           "guild-test",
		CategoryID:        "category-test",
		AnnounceChannelID: "announce-test",
		MeetingCount:      6,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if _, err := f.db.Collection("cohorts").InsertOne(ctx, cohort); err != nil {
		f.t.Fatalf("failed to create test cohort: %v", err)
	}
	return cohort
}

// CreateGroup creates a preview-status group in the given cohort with a
// Discord role assigned but no channels yet.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, cohortID primitive.ObjectID) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	group := models.Group{
		ID:            primitive.NewObjectID(),
		CohortID:      cohortID,
		Name:          name,
		NameCI:        text.Fold(name),
		RoleID:        "role-" + primitive.NewObjectID().Hex(),
		Status:        models.GroupStatusPreview,
		MeetingDay:    int(time.Tuesday),
		MeetingHour:   18,
		MeetingMinute: 0,
		TimeZone:      "America/New_York",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := f.db.Collection("groups").InsertOne(ctx, group); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return group
}

// CreateActiveGroup creates a group that has already been realized:
// status active with role and channel ids filled in.
func (f *Fixtures) CreateActiveGroup(ctx context.Context, name string, cohortID primitive.ObjectID) models.Group {
	f.t.Helper()

	group := f.CreateGroup(ctx, name, cohortID)
	group.Status = models.GroupStatusActive
	group.TextChannelID = "text-" + group.ID.Hex()
	group.VoiceChannelID = "voice-" + group.ID.Hex()

	_, err := f.db.Collection("groups").ReplaceOne(ctx, bson.M{"_id": group.ID}, group)
	if err != nil {
		f.t.Fatalf("failed to activate test group: %v", err)
	}
	return group
}

// CreateMembership creates an active membership row for the group.
func (f *Fixtures) CreateMembership(ctx context.Context, groupID primitive.ObjectID, discordID, email, role string) models.GroupMembership {
	f.t.Helper()

	m := models.GroupMembership{
		ID:          primitive.NewObjectID(),
		GroupID:     groupID,
		UserID:      primitive.NewObjectID(),
		DiscordID:   discordID,
		Email:       email,
		DisplayName: discordID,
		Role:        role,
		Status:      models.MembershipActive,
		JoinedAt:    time.Now().UTC(),
	}

	if _, err := f.db.Collection("group_memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}

// CreateParticipant creates an active participant membership.
func (f *Fixtures) CreateParticipant(ctx context.Context, groupID primitive.ObjectID, discordID, email string) models.GroupMembership {
	f.t.Helper()
	return f.CreateMembership(ctx, groupID, discordID, email, models.RoleParticipant)
}

// CreateFacilitator creates an active facilitator membership.
func (f *Fixtures) CreateFacilitator(ctx context.Context, groupID primitive.ObjectID, discordID, email string) models.GroupMembership {
	f.t.Helper()
	return f.CreateMembership(ctx, groupID, discordID, email, models.RoleFacilitator)
}

// CreateMeeting creates a meeting row for the group at the given time.
func (f *Fixtures) CreateMeeting(ctx context.Context, groupID primitive.ObjectID, seq int, at time.Time) models.Meeting {
	f.t.Helper()

	meeting := models.Meeting{
		ID:          primitive.NewObjectID(),
		GroupID:     groupID,
		Seq:         seq,
		ScheduledAt: at.UTC(),
		CreatedAt:   time.Now().UTC(),
	}

	if _, err := f.db.Collection("meetings").InsertOne(ctx, meeting); err != nil {
		f.t.Fatalf("failed to create test meeting: %v", err)
	}
	return meeting
}

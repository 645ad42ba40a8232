// internal/app/sync/desired.go
package groupsync

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dalemusser/cohortsync/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// desiredState is the authoritative configuration for one group, read
// fresh from the database at the start of every sync call.
type desiredState struct {
	Group   models.Group
	Cohort  models.Cohort
	Members []models.GroupMembership
}

// loadDesired reads the canonical group, cohort, and active membership
// rows. This is the only step whose failure aborts the orchestration:
// nothing downstream is meaningful without it.
func (e *Engine) loadDesired(ctx context.Context, groupID primitive.ObjectID) (*desiredState, error) {
	g, err := e.Groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load group %s: %w", groupID.Hex(), err)
	}
	c, err := e.Cohorts.GetByID(ctx, g.CohortID)
	if err != nil {
		return nil, fmt.Errorf("load cohort %s for group %s: %w", g.CohortID.Hex(), groupID.Hex(), err)
	}
	members, err := e.Memberships.ListActive(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load memberships for group %s: %w", groupID.Hex(), err)
	}
	return &desiredState{Group: g, Cohort: c, Members: members}, nil
}

// memberIDs returns the Discord ids of every active member.
func (d *desiredState) memberIDs() map[string]struct{} {
	out := make(map[string]struct{}, len(d.Members))
	for _, m := range d.Members {
		if m.DiscordID != "" {
			out[m.DiscordID] = struct{}{}
		}
	}
	return out
}

// facilitatorIDs returns the Discord ids of active facilitators.
func (d *desiredState) facilitatorIDs() map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range d.Members {
		if m.Role == models.RoleFacilitator && m.DiscordID != "" {
			out[m.DiscordID] = struct{}{}
		}
	}
	return out
}

// emails returns the lowercased, deduplicated, sorted member emails: the
// desired attendee list for every calendar event of the group.
func (d *desiredState) emails() []string {
	seen := make(map[string]struct{}, len(d.Members))
	for _, m := range d.Members {
		if m.Email == "" {
			continue
		}
		seen[strings.ToLower(m.Email)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// byEmail finds the membership row for a calendar attendee.
func (d *desiredState) byEmail(email string) (models.GroupMembership, bool) {
	for _, m := range d.Members {
		if strings.EqualFold(m.Email, email) {
			return m, true
		}
	}
	return models.GroupMembership{}, false
}

// byDiscordID finds the membership row for a chat identity.
func (d *desiredState) byDiscordID(id string) (models.GroupMembership, bool) {
	for _, m := range d.Members {
		if m.DiscordID == id {
			return m, true
		}
	}
	return models.GroupMembership{}, false
}

func sortedIDs(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

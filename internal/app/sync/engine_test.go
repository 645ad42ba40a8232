package groupsync

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	groupstore "github.com/dalemusser/cohortsync/internal/app/store/groups"
	"github.com/dalemusser/cohortsync/internal/domain/models"
	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// realize runs the provisioning sync on a populated world and fails the
// test if the group did not come out active.
func realize(t *testing.T, w *world) *Result {
	t.Helper()
	res, err := w.engine.SyncGroup(context.Background(), w.groupID, true)
	if err != nil {
		t.Fatalf("SyncGroup(allowCreate) failed: %v", err)
	}
	if !res.Activated {
		t.Fatalf("group was not activated: %+v", res)
	}
	return res
}

func TestSyncGroupRealizesPreviewGroup(t *testing.T) {
	w := newWorld()
	w.addMember("alice", "alice@example.com", models.RoleFacilitator)
	w.addMember("bob", "bob@example.com", models.RoleParticipant)
	w.addMember("carol", "carol@example.com", models.RoleParticipant)

	res, err := w.engine.SyncGroup(context.Background(), w.groupID, true)
	if err != nil {
		t.Fatalf("SyncGroup failed: %v", err)
	}

	infra := res.Infrastructure
	if infra.Category != StateCreated || infra.TextChannel != StateCreated || infra.VoiceChannel != StateCreated {
		t.Errorf("infrastructure not created: %+v", infra)
	}
	if infra.Meetings != 2 {
		t.Errorf("Meetings = %d, want 2", infra.Meetings)
	}
	if infra.DiscordEvents != 2 {
		t.Errorf("DiscordEvents = %d, want 2", infra.DiscordEvents)
	}

	wantGranted := []string{"alice", "bob", "carol"}
	if diff := cmp.Diff(wantGranted, res.Discord.GrantedIDs); diff != "" {
		t.Errorf("GrantedIDs mismatch (-want +got):\n%s", diff)
	}
	if res.Discord.FacilitatorGranted != 1 {
		t.Errorf("FacilitatorGranted = %d, want 1", res.Discord.FacilitatorGranted)
	}

	if res.Calendar.Created != 2 {
		t.Errorf("Calendar.Created = %d, want 2", res.Calendar.Created)
	}
	if res.Reminders.Scheduled != 2 {
		t.Errorf("Reminders.Scheduled = %d, want 2", res.Reminders.Scheduled)
	}
	if res.Rsvps.Records != 6 {
		t.Errorf("Rsvps.Records = %d, want 6 (3 members x 2 meetings)", res.Rsvps.Records)
	}

	if !res.Activated || res.Status != models.GroupStatusActive {
		t.Errorf("Activated=%v Status=%q, want activated active group", res.Activated, res.Status)
	}
	if w.group().Status != models.GroupStatusActive {
		t.Errorf("stored group status = %q, want active", w.group().Status)
	}

	// Everyone newly granted gets the full welcome on the activating sync.
	if res.Notifications.Sent != 3 {
		t.Errorf("Notifications.Sent = %d, want 3", res.Notifications.Sent)
	}
	for _, id := range wantGranted {
		if len(w.chat.dms[id]) != 1 {
			t.Errorf("dms[%s] = %d messages, want 1", id, len(w.chat.dms[id]))
		}
	}

	if len(w.retries.calls) != 0 {
		t.Errorf("unexpected retries scheduled: %+v", w.retries.calls)
	}
}

func TestSyncGroupSecondRunIsNoOp(t *testing.T) {
	w := newWorld()
	w.addMember("alice", "alice@example.com", models.RoleFacilitator)
	w.addMember("bob", "bob@example.com", models.RoleParticipant)
	w.addMember("carol", "carol@example.com", models.RoleParticipant)
	realize(t, w)

	opsBefore := len(w.chat.ops)
	res, err := w.engine.SyncGroup(context.Background(), w.groupID, true)
	if err != nil {
		t.Fatalf("second SyncGroup failed: %v", err)
	}

	want := DiscordResult{
		Unchanged:            3,
		FacilitatorUnchanged: 1,
		GrantedIDs:           []string{},
		RevokedIDs:           []string{},
	}
	if diff := cmp.Diff(want, res.Discord); diff != "" {
		t.Errorf("second sync Discord section (-want +got):\n%s", diff)
	}

	infra := res.Infrastructure
	if infra.Category != StateOK || infra.TextChannel != StateOK || infra.VoiceChannel != StateOK {
		t.Errorf("infrastructure should verify as ok: %+v", infra)
	}
	if res.Calendar.Created != 0 || res.Calendar.Patched != 0 || res.Calendar.Unchanged != 2 {
		t.Errorf("calendar should be untouched: %+v", res.Calendar)
	}
	if res.Reminders.Scheduled != 0 {
		t.Errorf("Reminders.Scheduled = %d, want 0 (already queued)", res.Reminders.Scheduled)
	}
	if res.Activated {
		t.Error("second sync must not report activation")
	}
	if res.Notifications.Sent != 0 {
		t.Errorf("Notifications.Sent = %d, want 0", res.Notifications.Sent)
	}

	// No mutating chat calls at all on a converged group.
	if got := len(w.chat.ops) - opsBefore; got != 0 {
		t.Errorf("second sync made %d chat mutations: %v", got, w.chat.ops[opsBefore:])
	}
}

func TestSyncGroupRevokesRemovedMember(t *testing.T) {
	w := newWorld()
	w.addMember("alice", "alice@example.com", models.RoleFacilitator)
	w.addMember("bob", "bob@example.com", models.RoleParticipant)
	realize(t, w)

	w.removeMember("bob")
	res, err := w.engine.SyncGroup(context.Background(), w.groupID, false)
	if err != nil {
		t.Fatalf("SyncGroup failed: %v", err)
	}

	if diff := cmp.Diff([]string{"bob"}, res.Discord.RevokedIDs); diff != "" {
		t.Errorf("RevokedIDs mismatch (-want +got):\n%s", diff)
	}
	if res.Discord.Granted != 0 || res.Discord.Unchanged != 1 {
		t.Errorf("Discord = %+v, want alice unchanged only", res.Discord)
	}

	// Both calendar events lose bob's email via a full-replace patch.
	if res.Calendar.Patched != 2 {
		t.Errorf("Calendar.Patched = %d, want 2", res.Calendar.Patched)
	}
	for id, ev := range w.calendar.events {
		for _, a := range ev.attendees {
			if a.Email == "bob@example.com" {
				t.Errorf("event %s still lists bob as attendee", id)
			}
		}
	}
}

func TestFacilitatorOverrideSelfHeals(t *testing.T) {
	w := newWorld()
	w.addMember("alice", "alice@example.com", models.RoleFacilitator)
	w.addMember("bob", "bob@example.com", models.RoleParticipant)
	realize(t, w)

	voiceID := w.group().VoiceChannelID

	// Someone clears the override out-of-band; the next sync restores it.
	w.chat.voiceOverrides[voiceID] = nil
	res, err := w.engine.SyncGroup(context.Background(), w.groupID, false)
	if err != nil {
		t.Fatalf("SyncGroup failed: %v", err)
	}
	if res.Discord.FacilitatorGranted != 1 {
		t.Errorf("FacilitatorGranted = %d, want 1 after external removal", res.Discord.FacilitatorGranted)
	}

	// A demotion revokes the override without touching role membership.
	members := w.memberships.members[w.groupID]
	for i := range members {
		if members[i].DiscordID == "alice" {
			members[i].Role = models.RoleParticipant
		}
	}
	res, err = w.engine.SyncGroup(context.Background(), w.groupID, false)
	if err != nil {
		t.Fatalf("SyncGroup failed: %v", err)
	}
	if res.Discord.FacilitatorRevoked != 1 {
		t.Errorf("FacilitatorRevoked = %d, want 1 after demotion", res.Discord.FacilitatorRevoked)
	}
	if res.Discord.Unchanged != 2 || res.Discord.Revoked != 0 {
		t.Errorf("role membership should be untouched by demotion: %+v", res.Discord)
	}
}

func TestActiveGroupMissingChannelIsAnomaly(t *testing.T) {
	w := newWorld()
	w.addMember("alice", "alice@example.com", models.RoleFacilitator)
	realize(t, w)

	voiceCreates := 0
	for _, op := range w.chat.ops {
		if strings.HasPrefix(op, "create_voice:") {
			voiceCreates++
		}
	}

	// The voice channel disappears after activation.
	delete(w.chat.channels, w.group().VoiceChannelID)

	res, err := w.engine.SyncGroup(context.Background(), w.groupID, false)
	if err != nil {
		t.Fatalf("SyncGroup failed: %v", err)
	}
	if res.Infrastructure.VoiceChannel != StateAnomaly {
		t.Errorf("VoiceChannel = %q, want %q", res.Infrastructure.VoiceChannel, StateAnomaly)
	}
	if !res.Infrastructure.NeedsInfrastructure {
		t.Error("NeedsInfrastructure should be set")
	}

	// Status never regresses and the channel is never silently recreated.
	if res.Status != models.GroupStatusActive || w.group().Status != models.GroupStatusActive {
		t.Errorf("group regressed from active: result=%q stored=%q", res.Status, w.group().Status)
	}
	for _, op := range w.chat.ops {
		if strings.HasPrefix(op, "create_voice:") {
			voiceCreates--
		}
	}
	if voiceCreates != 0 {
		t.Error("missing channel on an active group was recreated")
	}
}

func TestWelcomeNotSentTwice(t *testing.T) {
	w := newWorld()
	w.addMember("alice", "alice@example.com", models.RoleFacilitator)
	w.addMember("bob", "bob@example.com", models.RoleParticipant)

	// alice was already welcomed to this group in an earlier life.
	w.notifyLog.sent[notifyKey("alice", models.MsgGroupAssigned, models.RefGroup, w.groupID.Hex())] = true

	res := realize(t, w)
	if res.Notifications.Sent != 1 {
		t.Errorf("Notifications.Sent = %d, want 1 (bob only)", res.Notifications.Sent)
	}
	if res.Notifications.Skipped != 1 {
		t.Errorf("Notifications.Skipped = %d, want 1", res.Notifications.Skipped)
	}
	if len(w.chat.dms["alice"]) != 0 {
		t.Errorf("alice received %d DMs, want 0", len(w.chat.dms["alice"]))
	}
}

func TestLateJoinGetsShortWelcomeAndAnnouncement(t *testing.T) {
	w := newWorld()
	w.addMember("alice", "alice@example.com", models.RoleFacilitator)
	realize(t, w)

	w.addMember("dave", "dave@example.com", models.RoleParticipant)
	res, err := w.engine.SyncGroup(context.Background(), w.groupID, false)
	if err != nil {
		t.Fatalf("SyncGroup failed: %v", err)
	}

	if diff := cmp.Diff([]string{"dave"}, res.Discord.GrantedIDs); diff != "" {
		t.Errorf("GrantedIDs mismatch (-want +got):\n%s", diff)
	}
	if res.Activated {
		t.Error("late join must not re-activate")
	}
	if res.Notifications.Sent != 2 {
		t.Errorf("Notifications.Sent = %d, want 2 (DM + channel announcement)", res.Notifications.Sent)
	}
	if len(w.chat.dms["dave"]) != 1 {
		t.Fatalf("dave received %d DMs, want 1", len(w.chat.dms["dave"]))
	}
	if strings.Contains(w.chat.dms["dave"][0], "Welcome to") {
		t.Error("late join got the full welcome instead of the short one")
	}

	textID := w.group().TextChannelID
	var announced bool
	for _, msg := range w.chat.channelMsgs[textID] {
		if strings.Contains(msg, "dave") && strings.Contains(msg, "joined") {
			announced = true
		}
	}
	if !announced {
		t.Errorf("no join announcement in channel %s: %v", textID, w.chat.channelMsgs[textID])
	}

	// A repeat sync sends nothing further.
	res, err = w.engine.SyncGroup(context.Background(), w.groupID, false)
	if err != nil {
		t.Fatalf("SyncGroup failed: %v", err)
	}
	if res.Notifications.Sent != 0 {
		t.Errorf("repeat sync sent %d notifications, want 0", res.Notifications.Sent)
	}
}

func TestCalendarOutageDoesNotBlockOtherSystems(t *testing.T) {
	w := newWorld()
	w.addMember("alice", "alice@example.com", models.RoleFacilitator)
	w.addMember("bob", "bob@example.com", models.RoleParticipant)
	realize(t, w)

	w.calendar.attendeesErr = errors.New("calendar unavailable")
	w.removeMember("bob")

	res, err := w.engine.SyncGroup(context.Background(), w.groupID, false)
	if err != nil {
		t.Fatalf("SyncGroup must not fail on a calendar outage: %v", err)
	}

	if res.Discord.Revoked != 1 {
		t.Errorf("Discord.Revoked = %d, want 1 despite calendar outage", res.Discord.Revoked)
	}
	if res.Calendar.Failed != 2 {
		t.Errorf("Calendar.Failed = %d, want 2", res.Calendar.Failed)
	}
	if res.Reminders.Failed != 0 {
		t.Errorf("Reminders.Failed = %d, want 0", res.Reminders.Failed)
	}

	// Only the failed sections are re-queued.
	wantKinds := []string{"calendar", "rsvps"}
	if diff := cmp.Diff(wantKinds, w.retries.kinds()); diff != "" {
		t.Errorf("retry kinds mismatch (-want +got):\n%s", diff)
	}
	for _, c := range w.retries.calls {
		if c.attempt != 1 {
			t.Errorf("retry attempt = %d, want 1", c.attempt)
		}
	}
}

func TestRoleGrantFailureSchedulesRetry(t *testing.T) {
	w := newWorld()
	w.addMember("alice", "alice@example.com", models.RoleFacilitator)
	w.addMember("bob", "bob@example.com", models.RoleParticipant)
	w.chat.addRoleErr["bob"] = errors.New("api error")

	res, err := w.engine.SyncGroup(context.Background(), w.groupID, true)
	if err != nil {
		t.Fatalf("SyncGroup failed: %v", err)
	}
	if res.Discord.Failed != 1 || res.Discord.Granted != 1 {
		t.Errorf("Discord = %+v, want one grant and one failure", res.Discord)
	}

	var found bool
	for _, c := range w.retries.calls {
		if c.kind == "discord" && c.groupID == w.groupID && c.attempt == 1 {
			found = true
		}
	}
	if !found {
		t.Errorf("no discord retry scheduled: %+v", w.retries.calls)
	}
}

func TestRsvpPullRecordsResponses(t *testing.T) {
	w := newWorld()
	alice := w.addMember("alice", "alice@example.com", models.RoleFacilitator)
	realize(t, w)

	meetings, _ := w.meetings.ListByGroup(context.Background(), w.groupID)
	w.calendar.setResponse(meetings[0].CalendarEventID, "alice@example.com", models.RsvpAccepted)

	if _, err := w.engine.SyncGroup(context.Background(), w.groupID, false); err != nil {
		t.Fatalf("SyncGroup failed: %v", err)
	}

	rec, ok := w.rsvps.records[meetings[0].ID.Hex()+"|"+alice.UserID.Hex()]
	if !ok {
		t.Fatal("no RSVP record for alice on meeting 1")
	}
	if rec.Response != models.RsvpAccepted {
		t.Errorf("Response = %q, want %q", rec.Response, models.RsvpAccepted)
	}
}

func TestSyncAfterGroupChangeRevokesBeforeGranting(t *testing.T) {
	w := newWorld()
	alice := w.addMember("alice", "alice@example.com", models.RoleParticipant)
	realize(t, w)

	// A second, already-active group alice is moving into.
	newGroupID := primitive.NewObjectID()
	w.groups.groups[newGroupID] = models.Group{
		ID:            newGroupID,
		CohortID:      w.cohortID,
		Name:          "Team Beta",
		RoleID:        "role-2",
		Status:        models.GroupStatusActive,
		MeetingDay:    int(time.Wednesday),
		MeetingHour:   19,
		TextChannelID: "beta-text",
	}
	w.chat.channels["beta-text"] = true

	w.removeMember("alice")
	moved := alice
	moved.GroupID = newGroupID
	w.memberships.members[newGroupID] = append(w.memberships.members[newGroupID], moved)

	opsBefore := len(w.chat.ops)
	out, err := w.engine.SyncAfterGroupChange(context.Background(), newGroupID, &w.groupID)
	if err != nil {
		t.Fatalf("SyncAfterGroupChange failed: %v", err)
	}

	if out.OldGroup == nil || out.OldGroup.Discord.Revoked != 1 {
		t.Fatalf("old group sync did not revoke: %+v", out.OldGroup)
	}
	if out.NewGroup.Discord.Granted != 1 {
		t.Fatalf("new group sync did not grant: %+v", out.NewGroup)
	}

	// Stale access goes before new access.
	ops := w.chat.ops[opsBefore:]
	revokeIdx, grantIdx := -1, -1
	for i, op := range ops {
		if op == "remove_role:alice" && revokeIdx == -1 {
			revokeIdx = i
		}
		if op == "add_role:alice" && grantIdx == -1 {
			grantIdx = i
		}
	}
	if revokeIdx == -1 || grantIdx == -1 || revokeIdx > grantIdx {
		t.Errorf("expected revoke before grant, got ops %v", ops)
	}
}

func TestSyncAfterGroupChangeToleratesDeletedOldGroup(t *testing.T) {
	w := newWorld()
	w.addMember("alice", "alice@example.com", models.RoleParticipant)

	gone := primitive.NewObjectID()
	out, err := w.engine.SyncAfterGroupChange(context.Background(), w.groupID, &gone)
	if err != nil {
		t.Fatalf("SyncAfterGroupChange failed: %v", err)
	}
	if out.OldGroup != nil {
		t.Errorf("OldGroup = %+v, want nil for a deleted group", out.OldGroup)
	}
	if out.NewGroup == nil {
		t.Fatal("NewGroup missing")
	}
}

func TestProvisionSkippedForEmptyGroup(t *testing.T) {
	w := newWorld()

	res, err := w.engine.SyncGroup(context.Background(), w.groupID, true)
	if err != nil {
		t.Fatalf("SyncGroup failed: %v", err)
	}
	if !res.Infrastructure.Skipped {
		t.Error("provisioning should be skipped for a group with no members")
	}
	if res.Activated || res.Status != models.GroupStatusPreview {
		t.Errorf("empty group must stay preview: %+v", res)
	}
	if len(w.chat.ops) != 0 {
		t.Errorf("no chat calls expected, got %v", w.chat.ops)
	}
}

func TestSyncGroupUnknownGroup(t *testing.T) {
	w := newWorld()

	_, err := w.engine.SyncGroup(context.Background(), primitive.NewObjectID(), false)
	if err == nil {
		t.Fatal("expected error for unknown group")
	}
	if !errors.Is(err, groupstore.ErrNotFound) {
		t.Errorf("error = %v, want groupstore.ErrNotFound in chain", err)
	}
}

func TestSkippedPermissionsWithoutRole(t *testing.T) {
	w := newWorld()
	w.addMember("alice", "alice@example.com", models.RoleParticipant)
	g := w.group()
	g.RoleID = ""
	w.groups.groups[w.groupID] = g

	res, err := w.engine.SyncGroup(context.Background(), w.groupID, false)
	if err != nil {
		t.Fatalf("SyncGroup failed: %v", err)
	}
	if !res.Discord.Skipped {
		t.Error("Discord section should be marked skipped without a role")
	}
	if res.Activated {
		t.Error("group without role access must not activate")
	}
}

func TestInfrastructureRetryRepairsFailedChannel(t *testing.T) {
	w := newWorld()
	w.addMember("alice", "alice@example.com", models.RoleFacilitator)
	w.addMember("bob", "bob@example.com", models.RoleParticipant)
	w.chat.createTextErr = errors.New("rate limited")

	res, err := w.engine.SyncGroup(context.Background(), w.groupID, true)
	if err != nil {
		t.Fatalf("SyncGroup failed: %v", err)
	}
	if res.Infrastructure.TextChannel != StateFailed {
		t.Fatalf("TextChannel = %q, want %q", res.Infrastructure.TextChannel, StateFailed)
	}

	var found bool
	for _, c := range w.retries.calls {
		if c.kind == RetryKindInfrastructure && c.groupID == w.groupID && c.attempt == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("no infrastructure retry scheduled: %+v", w.retries.calls)
	}

	// The fault clears and the queue replays the task with the realization
	// permission it carries.
	w.chat.createTextErr = nil
	w.retries.calls = nil

	res, err = w.engine.Resync(context.Background(), w.groupID, 1, true)
	if err != nil {
		t.Fatalf("Resync failed: %v", err)
	}
	if res.Infrastructure.TextChannel != StateCreated {
		t.Errorf("TextChannel = %q after retry, want %q", res.Infrastructure.TextChannel, StateCreated)
	}
	if w.group().TextChannelID == "" {
		t.Error("repaired text channel reference was not persisted")
	}
	for _, c := range w.retries.calls {
		if c.kind == RetryKindInfrastructure {
			t.Errorf("repaired group scheduled another infrastructure retry: %+v", c)
		}
	}
}

func TestResyncWithoutPermissionDoesNotProvision(t *testing.T) {
	w := newWorld()
	w.addMember("alice", "alice@example.com", models.RoleParticipant)

	res, err := w.engine.Resync(context.Background(), w.groupID, 1, false)
	if err != nil {
		t.Fatalf("Resync failed: %v", err)
	}
	if res.Infrastructure.TextChannel != StateMissing {
		t.Errorf("TextChannel = %q, want %q", res.Infrastructure.TextChannel, StateMissing)
	}
	if !res.Infrastructure.NeedsInfrastructure {
		t.Error("missing infrastructure was not reported")
	}
	if len(w.chat.channels) != 0 {
		t.Errorf("channels were created without permission: %+v", w.chat.channels)
	}
}

func TestStatusStepPanicIsRecordedAndRetried(t *testing.T) {
	w := newWorld()
	res := &Result{}

	w.engine.step(w.engine.Log, "status", res, func() { panic("boom") })
	if !strings.Contains(res.StatusErr, "boom") {
		t.Fatalf("StatusErr = %q, want the panic message recorded", res.StatusErr)
	}

	w.engine.scheduleRetries(context.Background(), w.groupID, res, 0)
	if got := w.retries.kinds(); !cmp.Equal(got, []string{"status"}) {
		t.Errorf("retry kinds = %v, want [status]", got)
	}
}

package groupsync

import (
	"context"
	"fmt"
	"sort"
	"time"

	groupstore "github.com/dalemusser/cohortsync/internal/app/store/groups"
	"github.com/dalemusser/cohortsync/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory fakes for the engine's store and client interfaces. Mutating
// calls update the fake's state, so a second sync observes the effects of
// the first the way it would against the real backends.

type fakeGroupStore struct {
	groups map[primitive.ObjectID]models.Group
}

func (f *fakeGroupStore) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return models.Group{}, groupstore.ErrNotFound
	}
	return g, nil
}

func (f *fakeGroupStore) SetChannels(ctx context.Context, id primitive.ObjectID, textID, voiceID string) error {
	g := f.groups[id]
	if textID != "" {
		g.TextChannelID = textID
	}
	if voiceID != "" {
		g.VoiceChannelID = voiceID
	}
	f.groups[id] = g
	return nil
}

func (f *fakeGroupStore) Activate(ctx context.Context, id primitive.ObjectID) (bool, error) {
	g := f.groups[id]
	if g.Status != models.GroupStatusPreview {
		return false, nil
	}
	g.Status = models.GroupStatusActive
	f.groups[id] = g
	return true, nil
}

type fakeCohortStore struct {
	cohorts map[primitive.ObjectID]models.Cohort
}

func (f *fakeCohortStore) GetByID(ctx context.Context, id primitive.ObjectID) (models.Cohort, error) {
	c, ok := f.cohorts[id]
	if !ok {
		return models.Cohort{}, fmt.Errorf("cohort %s not found", id.Hex())
	}
	return c, nil
}

func (f *fakeCohortStore) SetCategory(ctx context.Context, id primitive.ObjectID, categoryID string) error {
	c := f.cohorts[id]
	c.CategoryID = categoryID
	f.cohorts[id] = c
	return nil
}

type fakeMembershipStore struct {
	members map[primitive.ObjectID][]models.GroupMembership
}

func (f *fakeMembershipStore) ListActive(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMembership, error) {
	out := make([]models.GroupMembership, 0)
	for _, m := range f.members[groupID] {
		if m.Status == models.MembershipActive {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeMeetingStore struct {
	meetings  []models.Meeting
	listErr   error
	insertErr error
}

func (f *fakeMeetingStore) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Meeting, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Meeting
	for _, m := range f.meetings {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (f *fakeMeetingStore) Insert(ctx context.Context, m models.Meeting) (models.Meeting, error) {
	if f.insertErr != nil {
		return models.Meeting{}, f.insertErr
	}
	m.ID = primitive.NewObjectID()
	f.meetings = append(f.meetings, m)
	return m, nil
}

func (f *fakeMeetingStore) SetDiscordEvent(ctx context.Context, id primitive.ObjectID, eventID string) error {
	for i := range f.meetings {
		if f.meetings[i].ID == id {
			f.meetings[i].DiscordEventID = eventID
		}
	}
	return nil
}

func (f *fakeMeetingStore) SetCalendarEvent(ctx context.Context, id primitive.ObjectID, eventID string) error {
	for i := range f.meetings {
		if f.meetings[i].ID == id {
			f.meetings[i].CalendarEventID = eventID
		}
	}
	return nil
}

type fakeNotifyLog struct {
	sent map[string]bool
}

func notifyKey(userID, msgType, refType, refID string) string {
	return userID + "|" + msgType + "|" + refType + "|" + refID
}

func (f *fakeNotifyLog) AlreadySent(ctx context.Context, userID, messageType, referenceType, referenceID string) (bool, error) {
	return f.sent[notifyKey(userID, messageType, referenceType, referenceID)], nil
}

func (f *fakeNotifyLog) RecordSent(ctx context.Context, e models.NotificationLogEntry) error {
	f.sent[notifyKey(e.UserID, e.MessageType, e.ReferenceType, e.ReferenceID)] = true
	return nil
}

type fakeRsvpStore struct {
	records map[string]models.RSVP
}

func (f *fakeRsvpStore) Upsert(ctx context.Context, r models.RSVP) error {
	f.records[r.MeetingID.Hex()+"|"+r.UserID.Hex()] = r
	return nil
}

// fakeChat records every mutating call in ops (as "verb:arg") so tests
// can assert ordering across operations.
type fakeChat struct {
	channels       map[string]bool
	roleMembers    map[string][]string
	voiceOverrides map[string][]string

	dms         map[string][]string
	channelMsgs map[string][]string

	ops    []string
	nextID int

	addRoleErr     map[string]error
	createTextErr  error
	createEventErr error
	sendDMErr      map[string]error
	roleMembersErr error
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		channels:       make(map[string]bool),
		roleMembers:    make(map[string][]string),
		voiceOverrides: make(map[string][]string),
		dms:            make(map[string][]string),
		channelMsgs:    make(map[string][]string),
		addRoleErr:     make(map[string]error),
		sendDMErr:      make(map[string]error),
	}
}

func (f *fakeChat) genID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeChat) ChannelExists(channelID string) bool {
	return f.channels[channelID]
}

func (f *fakeChat) CreateCategory(ctx context.Context, guildID, name string) (string, error) {
	id := f.genID("category")
	f.channels[id] = true
	f.ops = append(f.ops, "create_category:"+name)
	return id, nil
}

func (f *fakeChat) CreateTextChannel(ctx context.Context, guildID, parentID, name string) (string, error) {
	if f.createTextErr != nil {
		return "", f.createTextErr
	}
	id := f.genID("text")
	f.channels[id] = true
	f.ops = append(f.ops, "create_text:"+name)
	return id, nil
}

func (f *fakeChat) CreateVoiceChannel(ctx context.Context, guildID, parentID, name string) (string, error) {
	id := f.genID("voice")
	f.channels[id] = true
	f.ops = append(f.ops, "create_voice:"+name)
	return id, nil
}

func (f *fakeChat) CreateScheduledEvent(ctx context.Context, guildID, channelID, name string, start, end time.Time) (string, error) {
	if f.createEventErr != nil {
		return "", f.createEventErr
	}
	id := f.genID("event")
	f.ops = append(f.ops, "create_event:"+name)
	return id, nil
}

func (f *fakeChat) RoleMemberIDs(guildID, roleID string) ([]string, error) {
	if f.roleMembersErr != nil {
		return nil, f.roleMembersErr
	}
	return append([]string(nil), f.roleMembers[roleID]...), nil
}

func (f *fakeChat) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := f.addRoleErr[userID]; err != nil {
		return err
	}
	f.roleMembers[roleID] = append(f.roleMembers[roleID], userID)
	f.ops = append(f.ops, "add_role:"+userID)
	return nil
}

func (f *fakeChat) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	members := f.roleMembers[roleID]
	out := members[:0]
	for _, id := range members {
		if id != userID {
			out = append(out, id)
		}
	}
	f.roleMembers[roleID] = out
	f.ops = append(f.ops, "remove_role:"+userID)
	return nil
}

func (f *fakeChat) VoiceConnectOverrideIDs(channelID string) ([]string, error) {
	return append([]string(nil), f.voiceOverrides[channelID]...), nil
}

func (f *fakeChat) GrantVoiceConnect(ctx context.Context, channelID, userID string) error {
	f.voiceOverrides[channelID] = append(f.voiceOverrides[channelID], userID)
	f.ops = append(f.ops, "grant_voice:"+userID)
	return nil
}

func (f *fakeChat) RevokeVoiceConnect(ctx context.Context, channelID, userID string) error {
	overrides := f.voiceOverrides[channelID]
	out := overrides[:0]
	for _, id := range overrides {
		if id != userID {
			out = append(out, id)
		}
	}
	f.voiceOverrides[channelID] = out
	f.ops = append(f.ops, "revoke_voice:"+userID)
	return nil
}

func (f *fakeChat) SendChannelMessage(ctx context.Context, channelID, content string) error {
	f.channelMsgs[channelID] = append(f.channelMsgs[channelID], content)
	f.ops = append(f.ops, "channel_msg:"+channelID)
	return nil
}

func (f *fakeChat) SendDirectMessage(ctx context.Context, userID, content string) error {
	if err := f.sendDMErr[userID]; err != nil {
		return err
	}
	f.dms[userID] = append(f.dms[userID], content)
	f.ops = append(f.ops, "dm:"+userID)
	return nil
}

// opIndex returns the position of the first op with the given value, or -1.
func (f *fakeChat) opIndex(op string) int {
	for i, o := range f.ops {
		if o == op {
			return i
		}
	}
	return -1
}

type fakeEvent struct {
	title     string
	attendees []Attendee
}

type fakeCalendar struct {
	events map[string]*fakeEvent
	nextID int

	attendeesErr error
	createErr    error
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{events: make(map[string]*fakeEvent)}
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, calendarID, title string, start, end time.Time, attendees []string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	id := fmt.Sprintf("calevent-%d", f.nextID)
	ev := &fakeEvent{title: title}
	for _, a := range attendees {
		ev.attendees = append(ev.attendees, Attendee{Email: a, Response: models.RsvpNone})
	}
	f.events[id] = ev
	return id, nil
}

func (f *fakeCalendar) EventAttendees(ctx context.Context, calendarID, eventID string) ([]Attendee, error) {
	if f.attendeesErr != nil {
		return nil, f.attendeesErr
	}
	ev, ok := f.events[eventID]
	if !ok {
		return nil, fmt.Errorf("event %s not found", eventID)
	}
	return append([]Attendee(nil), ev.attendees...), nil
}

func (f *fakeCalendar) ReplaceEventAttendees(ctx context.Context, calendarID, eventID string, attendees []string) error {
	ev, ok := f.events[eventID]
	if !ok {
		return fmt.Errorf("event %s not found", eventID)
	}
	// Responses survive a patch for attendees kept on the list.
	prev := make(map[string]string, len(ev.attendees))
	for _, a := range ev.attendees {
		prev[a.Email] = a.Response
	}
	ev.attendees = nil
	for _, email := range attendees {
		resp := models.RsvpNone
		if r, ok := prev[email]; ok {
			resp = r
		}
		ev.attendees = append(ev.attendees, Attendee{Email: email, Response: resp})
	}
	return nil
}

// setResponse simulates an attendee responding to an invitation.
func (f *fakeCalendar) setResponse(eventID, email, response string) {
	for i, a := range f.events[eventID].attendees {
		if a.Email == email {
			f.events[eventID].attendees[i].Response = response
		}
	}
}

type fakeScheduler struct {
	jobs map[primitive.ObjectID]time.Time
	err  error
}

func (f *fakeScheduler) ScheduleReminder(ctx context.Context, meetingID, groupID primitive.ObjectID, at time.Time) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.jobs[meetingID]; ok {
		return false, nil
	}
	f.jobs[meetingID] = at
	return true, nil
}

type retryCall struct {
	kind    string
	groupID primitive.ObjectID
	attempt int
}

type fakeRetryQueue struct {
	calls []retryCall
}

func (f *fakeRetryQueue) Enqueue(ctx context.Context, kind string, groupID primitive.ObjectID, attempt int) error {
	f.calls = append(f.calls, retryCall{kind: kind, groupID: groupID, attempt: attempt})
	return nil
}

func (f *fakeRetryQueue) kinds() []string {
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.kind)
	}
	sort.Strings(out)
	return out
}

// world bundles the fakes and the engine under test.
type world struct {
	groups      *fakeGroupStore
	cohorts     *fakeCohortStore
	memberships *fakeMembershipStore
	meetings    *fakeMeetingStore
	notifyLog   *fakeNotifyLog
	rsvps       *fakeRsvpStore
	chat        *fakeChat
	calendar    *fakeCalendar
	scheduler   *fakeScheduler
	retries     *fakeRetryQueue

	engine *Engine

	cohortID primitive.ObjectID
	groupID  primitive.ObjectID
	roleID   string
}

// newWorld builds a preview group in a two-meeting cohort with its Discord
// role already assigned and no channels or meetings yet.
func newWorld() *world {
	w := &world{
		groups:      &fakeGroupStore{groups: make(map[primitive.ObjectID]models.Group)},
		cohorts:     &fakeCohortStore{cohorts: make(map[primitive.ObjectID]models.Cohort)},
		memberships: &fakeMembershipStore{members: make(map[primitive.ObjectID][]models.GroupMembership)},
		meetings:    &fakeMeetingStore{},
		notifyLog:   &fakeNotifyLog{sent: make(map[string]bool)},
		rsvps:       &fakeRsvpStore{records: make(map[string]models.RSVP)},
		chat:        newFakeChat(),
		calendar:    newFakeCalendar(),
		scheduler:   &fakeScheduler{jobs: make(map[primitive.ObjectID]time.Time)},
		retries:     &fakeRetryQueue{},
	}

	w.cohortID = primitive.NewObjectID()
	w.groupID = primitive.NewObjectID()
	w.roleID = "role-1"

	w.cohorts.cohorts[w.cohortID] = models.Cohort{
		ID:           w.cohortID,
		Name:         "Spring Cohort",
		GuildID:      "guild-1",
		MeetingCount: 2,
	}
	w.groups.groups[w.groupID] = models.Group{
		ID:            w.groupID,
		CohortID:      w.cohortID,
		Name:          "Team Alpha",
		RoleID:        w.roleID,
		Status:        models.GroupStatusPreview,
		MeetingDay:    int(time.Tuesday),
		MeetingHour:   18,
		MeetingMinute: 0,
	}

	w.engine = New(Engine{
		Groups:      w.groups,
		Cohorts:     w.cohorts,
		Memberships: w.memberships,
		Meetings:    w.meetings,
		NotifyLog:   w.notifyLog,
		RSVPs:       w.rsvps,
		Chat:        w.chat,
		Calendar:    w.calendar,
		Reminders:   w.scheduler,
		Retries:     w.retries,
		CalendarID:  "primary",
	})
	return w
}

func (w *world) addMember(discordID, email, role string) models.GroupMembership {
	m := models.GroupMembership{
		ID:          primitive.NewObjectID(),
		GroupID:     w.groupID,
		UserID:      primitive.NewObjectID(),
		DiscordID:   discordID,
		Email:       email,
		DisplayName: discordID,
		Role:        role,
		Status:      models.MembershipActive,
	}
	w.memberships.members[w.groupID] = append(w.memberships.members[w.groupID], m)
	return m
}

func (w *world) removeMember(discordID string) {
	members := w.memberships.members[w.groupID]
	for i := range members {
		if members[i].DiscordID == discordID {
			members[i].Status = models.MembershipRemoved
		}
	}
}

func (w *world) group() models.Group {
	return w.groups.groups[w.groupID]
}

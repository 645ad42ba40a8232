// internal/app/sync/result.go
package groupsync

// Resource state markers used in the infrastructure section of a Result.
const (
	StateOK      = "ok"      // reference present and resolvable
	StateCreated = "created" // created by this call
	StateMissing = "missing" // absent and creation not permitted
	StateSkipped = "skipped" // precondition not met, deliberately not attempted
	StateFailed  = "failed"  // creation attempted and failed
	StateAnomaly = "anomaly" // absent on an already-active group; flagged, not repaired
)

// InfraResult reports the infrastructure section of a sync.
type InfraResult struct {
	Category      string `json:"category"`
	TextChannel   string `json:"text_channel"`
	VoiceChannel  string `json:"voice_channel"`
	Meetings      int    `json:"meetings"`
	DiscordEvents int    `json:"discord_events"`

	// NeedsInfrastructure is set when a resource is missing and the call
	// was not permitted to create it.
	NeedsInfrastructure bool `json:"needs_infrastructure,omitempty"`

	// Skipped is set when the group has no active members and provisioning
	// was skipped entirely.
	Skipped bool   `json:"skipped,omitempty"`
	Err     string `json:"error,omitempty"`
}

func (r InfraResult) failed() bool {
	return r.Err != "" ||
		r.Category == StateFailed ||
		r.TextChannel == StateFailed ||
		r.VoiceChannel == StateFailed
}

// DiscordResult reports the role-membership and facilitator-override diffs.
type DiscordResult struct {
	Granted   int `json:"granted"`
	Revoked   int `json:"revoked"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`

	GrantedIDs []string `json:"granted_ids"`
	RevokedIDs []string `json:"revoked_ids"`

	FacilitatorGranted   int `json:"facilitator_granted"`
	FacilitatorRevoked   int `json:"facilitator_revoked"`
	FacilitatorUnchanged int `json:"facilitator_unchanged"`
	FacilitatorFailed    int `json:"facilitator_failed"`

	Skipped bool   `json:"skipped,omitempty"`
	Err     string `json:"error,omitempty"`
}

// CalendarResult reports per-meeting attendee reconciliation.
type CalendarResult struct {
	Meetings  int    `json:"meetings"`
	Created   int    `json:"created"`
	Patched   int    `json:"patched"`
	Unchanged int    `json:"unchanged"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Err       string `json:"error,omitempty"`
}

// ReminderResult reports reminder-job coverage of future meetings.
type ReminderResult struct {
	Meetings  int    `json:"meetings"`
	Scheduled int    `json:"scheduled"`
	Failed    int    `json:"failed"`
	Err       string `json:"error,omitempty"`
}

// RsvpResult reports the RSVP pull.
type RsvpResult struct {
	Meetings int    `json:"meetings"`
	Records  int    `json:"records"`
	Failed   int    `json:"failed"`
	Err      string `json:"error,omitempty"`
}

// NotifyResult reports notification dispatch.
type NotifyResult struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Result is the aggregated outcome of one SyncGroup call. It is assembled
// fresh on every call and never persisted.
type Result struct {
	GroupID string `json:"group_id"`
	Status  string `json:"status"`

	// Activated is true only when this call performed the preview -> active
	// transition.
	Activated bool `json:"activated"`

	// StatusErr records a failure in the activation evaluation itself,
	// so it never disappears from the aggregated report.
	StatusErr string `json:"status_error,omitempty"`

	Infrastructure InfraResult    `json:"infrastructure"`
	Discord        DiscordResult  `json:"discord"`
	Calendar       CalendarResult `json:"calendar"`
	Reminders      ReminderResult `json:"reminders"`
	Rsvps          RsvpResult     `json:"rsvps"`
	Notifications  NotifyResult   `json:"notifications"`
}

// SwitchResult is the outcome of SyncAfterGroupChange: the vacated group's
// sync (when one was given and still exists) and the joined group's sync.
type SwitchResult struct {
	OldGroup *Result `json:"old_group,omitempty"`
	NewGroup *Result `json:"new_group"`
}

func appendErr(existing, msg string) string {
	if existing == "" {
		return msg
	}
	return existing + "; " + msg
}

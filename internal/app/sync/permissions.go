// internal/app/sync/permissions.go
package groupsync

import (
	"context"

	"go.uber.org/zap"
)

// reconcilePermissions diffs desired vs. actual access on the chat
// platform and applies only the delta, in two independent passes:
//
//  1. Role membership: every active member holds the group role; nobody
//     else does.
//  2. Facilitator voice override: facilitators hold a member-level connect
//     override on the voice channel. Member-level overrides outrank
//     role-level denies, so this pass is deliberately separate from role
//     permissions: a temporary role-level lockout must not interfere with
//     facilitator access, and a demotion heals itself on the next sync.
//
// Per-identity API failures are counted and skipped; the loop continues
// for the remaining identities.
func (e *Engine) reconcilePermissions(ctx context.Context, des *desiredState, res *Result) {
	d := &res.Discord
	if des.Group.RoleID == "" {
		d.Skipped = true
		e.Log.Info("permission reconciliation skipped: group has no role",
			zap.String("group_id", des.Group.ID.Hex()))
		return
	}

	guildID := des.Cohort.GuildID
	actual, err := e.Chat.RoleMemberIDs(guildID, des.Group.RoleID)
	if err != nil {
		d.Err = appendErr(d.Err, "read role members: "+err.Error())
		e.Log.Error("role member read failed",
			zap.String("role_id", des.Group.RoleID), zap.Error(err))
		return
	}

	desired := des.memberIDs()
	actualSet := make(map[string]struct{}, len(actual))
	for _, id := range actual {
		actualSet[id] = struct{}{}
	}

	for _, id := range sortedIDs(desired) {
		if _, ok := actualSet[id]; ok {
			d.Unchanged++
			continue
		}
		if err := e.Chat.AddRole(ctx, guildID, id, des.Group.RoleID); err != nil {
			d.Failed++
			e.Log.Error("role grant failed",
				zap.String("user_id", id), zap.Error(err))
			continue
		}
		d.Granted++
		d.GrantedIDs = append(d.GrantedIDs, id)
		e.pause()
	}

	for _, id := range actual {
		if _, ok := desired[id]; ok {
			continue
		}
		if err := e.Chat.RemoveRole(ctx, guildID, id, des.Group.RoleID); err != nil {
			d.Failed++
			e.Log.Error("role revoke failed",
				zap.String("user_id", id), zap.Error(err))
			continue
		}
		d.Revoked++
		d.RevokedIDs = append(d.RevokedIDs, id)
		e.pause()
	}

	e.reconcileFacilitatorOverrides(ctx, des, res)
}

func (e *Engine) reconcileFacilitatorOverrides(ctx context.Context, des *desiredState, res *Result) {
	d := &res.Discord
	voiceID := des.Group.VoiceChannelID
	if voiceID == "" || !e.Chat.ChannelExists(voiceID) {
		// No voice channel yet; the override diff waits for it.
		return
	}

	actual, err := e.Chat.VoiceConnectOverrideIDs(voiceID)
	if err != nil {
		d.Err = appendErr(d.Err, "read voice overrides: "+err.Error())
		return
	}

	desired := des.facilitatorIDs()
	actualSet := make(map[string]struct{}, len(actual))
	for _, id := range actual {
		actualSet[id] = struct{}{}
	}

	for _, id := range sortedIDs(desired) {
		if _, ok := actualSet[id]; ok {
			d.FacilitatorUnchanged++
			continue
		}
		if err := e.Chat.GrantVoiceConnect(ctx, voiceID, id); err != nil {
			d.FacilitatorFailed++
			e.Log.Error("facilitator override grant failed",
				zap.String("user_id", id), zap.Error(err))
			continue
		}
		d.FacilitatorGranted++
		e.pause()
	}

	for _, id := range actual {
		if _, ok := desired[id]; ok {
			continue
		}
		if err := e.Chat.RevokeVoiceConnect(ctx, voiceID, id); err != nil {
			d.FacilitatorFailed++
			e.Log.Error("facilitator override revoke failed",
				zap.String("user_id", id), zap.Error(err))
			continue
		}
		d.FacilitatorRevoked++
		e.pause()
	}
}

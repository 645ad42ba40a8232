// internal/app/sync/status.go
package groupsync

import (
	"context"

	"github.com/dalemusser/cohortsync/internal/domain/models"
	"go.uber.org/zap"
)

// groupReady reports whether a group has become fully usable: category,
// text channel, voice channel, and at least one meeting row all present
// without a failure marker, and at least one member currently holding
// role access.
func groupReady(res *Result) bool {
	infra := res.Infrastructure
	if !stateHealthy(infra.Category) ||
		!stateHealthy(infra.TextChannel) ||
		!stateHealthy(infra.VoiceChannel) {
		return false
	}
	if infra.Meetings == 0 || infra.Err != "" {
		return false
	}
	return res.Discord.Granted+res.Discord.Unchanged > 0
}

func stateHealthy(s string) bool {
	return s == StateOK || s == StateCreated
}

// evaluateStatus flips a preview group to active once it is ready. The
// transition is monotonic: an already-active group stays active no matter
// what this call observed (missing resources were already flagged as
// anomalies by the infrastructure check, never repaired here).
func (e *Engine) evaluateStatus(ctx context.Context, des *desiredState, res *Result) {
	if des.Group.Status == models.GroupStatusActive {
		return
	}
	if !groupReady(res) {
		return
	}
	activated, err := e.Groups.Activate(ctx, des.Group.ID)
	if err != nil {
		e.Log.Error("group activation failed",
			zap.String("group_id", des.Group.ID.Hex()), zap.Error(err))
		return
	}
	// A concurrent sync may have won the transition; either way the group
	// is active now.
	des.Group.Status = models.GroupStatusActive
	res.Activated = activated
	if activated {
		e.Log.Info("group activated", zap.String("group_id", des.Group.ID.Hex()))
	}
}

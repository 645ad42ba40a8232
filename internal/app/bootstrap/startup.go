// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	cohortstore "github.com/dalemusser/cohortsync/internal/app/store/cohorts"
	groupstore "github.com/dalemusser/cohortsync/internal/app/store/groups"
	meetingstore "github.com/dalemusser/cohortsync/internal/app/store/meetings"
	membershipstore "github.com/dalemusser/cohortsync/internal/app/store/memberships"
	notifylogstore "github.com/dalemusser/cohortsync/internal/app/store/notifylog"
	rsvpstore "github.com/dalemusser/cohortsync/internal/app/store/rsvps"
	groupsync "github.com/dalemusser/cohortsync/internal/app/sync"
	"github.com/dalemusser/cohortsync/internal/app/system/timeouts"
	"github.com/dalemusser/cohortsync/internal/app/system/workers"
	"github.com/dalemusser/cohortsync/internal/platform/discordbot"
	"github.com/dalemusser/cohortsync/internal/platform/gcal"
	"github.com/dalemusser/cohortsync/internal/platform/queue"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Long-lived components built at startup and torn down in Shutdown.
// BuildHandler also reaches for syncEngine when wiring routes.
var (
	discordClient *discordbot.Client
	queueClient   *queue.Client
	queueWorker   *queue.Worker
	resyncSweep   *workers.ResyncSweep
	syncEngine    *groupsync.Engine
)

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
//
// It builds the external-system clients (Discord session, Google Calendar
// service, task queue), assembles the sync engine over them, and starts
// the background consumers: the queue worker that executes reminder and
// retry tasks, and the periodic resync sweep over active groups.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.ConfigureFromEnv()

	var err error
	discordClient, err = discordbot.New(appCfg.DiscordToken, logger)
	if err != nil {
		return fmt.Errorf("discord client: %w", err)
	}
	if err := discordClient.Open(); err != nil {
		return fmt.Errorf("discord gateway open: %w", err)
	}

	calClient, err := gcal.New(ctx, appCfg.GoogleCredsFile, logger)
	if err != nil {
		return fmt.Errorf("calendar client: %w", err)
	}

	queueClient = queue.NewClient(deps.RedisOpt, logger)

	db := deps.MongoDatabase
	groups := groupstore.New(db)
	meetings := meetingstore.New(db)
	memberships := membershipstore.New(db)
	notifyLog := notifylogstore.New(db)

	syncEngine = groupsync.New(groupsync.Engine{
		Groups:      groups,
		Cohorts:     cohortstore.New(db),
		Memberships: memberships,
		Meetings:    meetings,
		NotifyLog:   notifyLog,
		RSVPs:       rsvpstore.New(db),

		Chat:      discordClient,
		Calendar:  calClient,
		Reminders: queueClient,
		Retries:   queueClient,

		Log:           logger,
		CalendarID:    appCfg.CalendarID,
		CallDelay:     appCfg.SyncCallDelay,
		ReminderLead:  appCfg.ReminderLead,
		MeetingLength: appCfg.MeetingLength,
	})

	queueWorker = queue.NewWorker(deps.RedisOpt, syncEngine, groups, meetings, memberships, notifyLog, discordClient, logger)
	if err := queueWorker.Start(); err != nil {
		return fmt.Errorf("queue worker start: %w", err)
	}

	resyncSweep = workers.NewResyncSweep(groups, queueClient, logger, appCfg.ResyncSweepInterval)
	resyncSweep.Start()

	return nil
}

// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig handles
// framework-level settings (ports, TLS, log level, timeouts); AppConfig
// is everything specific to cohortsync: backing stores, external service
// credentials, and the sync engine's tuning knobs.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Redis backs the reminder/retry queue.
	RedisAddr string
	RedisDB   int

	// Discord bot credentials.
	DiscordToken string

	// Google Calendar: the calendar meeting events live on, and the
	// service-account credentials file used to reach it.
	CalendarID      string
	GoogleCredsFile string

	// Sync engine tuning.
	SyncCallDelay       time.Duration // pause between per-identity Discord calls
	ReminderLead        time.Duration // how long before a meeting its reminder fires
	MeetingLength       time.Duration // event length for created calendar/Discord events
	ResyncSweepInterval time.Duration // period of the self-healing full resync sweep
}

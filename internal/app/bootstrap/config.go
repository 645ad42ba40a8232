// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for cohortsync.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, discord_token, etc.
//   - Environment variables: COHORTSYNC_MONGO_URI, COHORTSYNC_DISCORD_TOKEN, etc.
//   - Command-line flags: --mongo_uri, --discord_token, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "cohortsync", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "redis_addr", Default: "localhost:6379", Desc: "Redis address for the reminder/retry queue"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},

	{Name: "discord_token", Default: "", Desc: "Discord bot token"},

	{Name: "calendar_id", Default: "", Desc: "Google Calendar id meeting events live on"},
	{Name: "google_creds_file", Default: "", Desc: "Path to Google service-account credentials JSON"},

	{Name: "sync_call_delay", Default: "250ms", Desc: "Pause between per-identity Discord calls (rate-limit throttle)"},
	{Name: "reminder_lead", Default: "30m", Desc: "How long before a meeting its reminder fires"},
	{Name: "meeting_length", Default: "1h", Desc: "Length of created calendar/Discord events"},
	{Name: "resync_sweep_interval", Default: "6h", Desc: "Period of the full resync sweep over active groups"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env/config files, environment
// variables (WAFFLE_* for core, COHORTSYNC_* for app), and command-line
// flags, merged with precedence: flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "COHORTSYNC", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		RedisAddr: appValues.String("redis_addr"),
		RedisDB:   appValues.Int("redis_db"),

		DiscordToken: appValues.String("discord_token"),

		CalendarID:      appValues.String("calendar_id"),
		GoogleCredsFile: appValues.String("google_creds_file"),

		SyncCallDelay:       appValues.Duration("sync_call_delay", 250*time.Millisecond),
		ReminderLead:        appValues.Duration("reminder_lead", 30*time.Minute),
		MeetingLength:       appValues.Duration("meeting_length", time.Hour),
		ResyncSweepInterval: appValues.Duration("resync_sweep_interval", 6*time.Hour),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Credentials for the external systems are required: an engine that can
// only reach some of its projections would report every sync as failed.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.DiscordToken == "" {
		return fmt.Errorf("discord_token is required")
	}
	if appCfg.CalendarID == "" {
		return fmt.Errorf("calendar_id is required")
	}
	if appCfg.GoogleCredsFile == "" {
		return fmt.Errorf("google_creds_file is required")
	}
	return nil
}

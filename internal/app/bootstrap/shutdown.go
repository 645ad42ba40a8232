// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown cleanly tears down workers, clients, and DB connections.
// Consumers stop first so no task fires against a closed client.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if resyncSweep != nil {
		resyncSweep.Stop()
	}
	if queueWorker != nil {
		queueWorker.Stop()
	}
	if queueClient != nil {
		if err := queueClient.Close(); err != nil {
			logger.Error("queue client close failed", zap.Error(err))
		}
	}
	if discordClient != nil {
		if err := discordClient.Close(); err != nil {
			logger.Error("discord session close failed", zap.Error(err))
		}
	}
	if deps.Redis != nil {
		if err := deps.Redis.Close(); err != nil {
			logger.Error("redis close failed", zap.Error(err))
		}
	}
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}

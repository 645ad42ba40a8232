// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/cohortsync/internal/app/system/indexes"
	"github.com/dalemusser/cohortsync/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB establishes the MongoDB and Redis connections the app needs.
//
// Both backends are pinged before startup proceeds so a bad URI or a
// down Redis fails fast instead of surfacing as the first sync error.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase))

	redisOpt := asynq.RedisClientOpt{Addr: appCfg.RedisAddr, DB: appCfg.RedisDB}
	rdb := redis.NewClient(&redis.Options{Addr: appCfg.RedisAddr, DB: appCfg.RedisDB})
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		_ = client.Disconnect(ctx)
		return DBDeps{}, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("connected to Redis", zap.String("addr", appCfg.RedisAddr))

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
		Redis:         rdb,
		RedisOpt:      redisOpt,
	}, nil
}

// EnsureSchema creates the indexes the stores rely on. Uniqueness for
// group names, membership rows, meeting sequence numbers, and the
// notification log is enforced here rather than in application code.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		return err
	}
	logger.Info("MongoDB indexes ensured")
	return nil
}

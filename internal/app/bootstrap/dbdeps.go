// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis carries the reminder/retry queue; the plain client is kept
	// for health pings, RedisOpt is what asynq consumes.
	Redis    *redis.Client
	RedisOpt asynq.RedisClientOpt
}

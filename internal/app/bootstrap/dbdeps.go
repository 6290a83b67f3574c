// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds the back-end clients shared by the app.
type DBDeps struct {
	ClubHubMongoClient   *mongo.Client
	ClubHubMongoDatabase *mongo.Database

	// Redis is nil unless lock_backend is "redis".
	Redis *redis.Client
}

// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds ClubHub's app-level configuration. WAFFLE's CoreConfig
// covers the framework side (ports, TLS, logging, CORS); everything the
// allocation service needs lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // e.g. mongodb://localhost:27017
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Unit locks: "local" serializes within this process, "redis" across
	// every instance pointed at the same Redis server.
	LockBackend string
	RedisURL    string
	LockTTL     time.Duration // how long a crashed holder can block a unit
	LockWait    time.Duration // how long a request waits for a unit lock

	// Allocation policy
	AllocationMinAge    int
	AuditLogAllocations string // "all" (db+log) or "db"

	// How often every active club gets a birthday check; zero disables it.
	BirthdaySweepInterval time.Duration

	// Club-wide runs (allocate-pending, club birthday check) allowed per
	// club per minute; zero disables the limit.
	BatchRateLimit int

	MetricsEnabled bool
}

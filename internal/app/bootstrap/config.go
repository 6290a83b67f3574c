// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/clubhub/internal/app/allocation"
	"github.com/dalemusser/clubhub/internal/app/system/unitlock"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	lockBackendLocal = "local"
	lockBackendRedis = "redis"
)

// appConfigKeys defines the configuration keys for ClubHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, lock_backend, etc.
//   - Environment variables: CLUBHUB_MONGO_URI, CLUBHUB_LOCK_BACKEND, etc.
//   - Command-line flags: --mongo_uri, --lock_backend, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "clubhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Unit locks
	{Name: "lock_backend", Default: lockBackendLocal, Desc: "Unit lock backend: 'local' or 'redis'"},
	{Name: "redis_url", Default: "", Desc: "Redis URL for the redis lock backend (e.g., redis://localhost:6379/0)"},
	{Name: "lock_ttl", Default: "10s", Desc: "Redis unit lock expiry (e.g., 10s)"},
	{Name: "lock_wait", Default: "5s", Desc: "How long an allocation waits for a unit lock"},

	// Allocation policy
	{Name: "allocation_min_age", Default: allocation.DefaultMinAge, Desc: "Minimum program-year age for club membership"},
	{Name: "audit_log_allocations", Default: allocation.TrailAll, Desc: "Allocation record logging: 'all' (db+log) or 'db'"},

	{Name: "birthday_sweep_interval", Default: "0s", Desc: "Interval between club birthday sweeps, e.g. 24h (0 disables, the default)"},

	{Name: "batch_rate_limit", Default: 6, Desc: "Club-wide allocation runs allowed per club per minute (0 disables)"},

	{Name: "metrics_enabled", Default: true, Desc: "Expose Prometheus metrics at /metrics"},
}

// LoadConfig loads WAFFLE core config and ClubHub's app config.
//
// Precedence follows WAFFLE: flags > env (CLUBHUB_*) > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CLUBHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		LockBackend: appValues.String("lock_backend"),
		RedisURL:    appValues.String("redis_url"),
		LockTTL:     appValues.Duration("lock_ttl", unitlock.DefaultTTL),
		LockWait:    appValues.Duration("lock_wait", allocation.DefaultLockWait),

		AllocationMinAge:    appValues.Int("allocation_min_age"),
		AuditLogAllocations: appValues.String("audit_log_allocations"),

		BirthdaySweepInterval: appValues.Duration("birthday_sweep_interval", 0),

		BatchRateLimit: appValues.Int("batch_rate_limit"),

		MetricsEnabled: appValues.Bool("metrics_enabled"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig rejects configurations that would fail later at connect
// time or silently behave differently than asked.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateAppConfig(appCfg)
}

func validateAppConfig(appCfg AppConfig) error {
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must not be empty")
	}

	switch appCfg.LockBackend {
	case lockBackendLocal:
	case lockBackendRedis:
		if appCfg.RedisURL == "" {
			return fmt.Errorf("lock_backend %q requires redis_url", lockBackendRedis)
		}
		if _, err := redis.ParseURL(appCfg.RedisURL); err != nil {
			return fmt.Errorf("invalid redis_url: %w", err)
		}
	default:
		return fmt.Errorf("lock_backend must be %q or %q, got %q", lockBackendLocal, lockBackendRedis, appCfg.LockBackend)
	}

	switch appCfg.AuditLogAllocations {
	case allocation.TrailAll, allocation.TrailDB:
	default:
		return fmt.Errorf("audit_log_allocations must be %q or %q, got %q",
			allocation.TrailAll, allocation.TrailDB, appCfg.AuditLogAllocations)
	}

	if appCfg.AllocationMinAge < 0 {
		return fmt.Errorf("allocation_min_age must not be negative")
	}
	if appCfg.BatchRateLimit < 0 {
		return fmt.Errorf("batch_rate_limit must not be negative")
	}
	if appCfg.BirthdaySweepInterval < 0 {
		return fmt.Errorf("birthday_sweep_interval must not be negative")
	}
	if appCfg.LockWait <= 0 || appCfg.LockWait > time.Minute {
		return fmt.Errorf("lock_wait must be between 0 and 1m, got %s", appCfg.LockWait)
	}
	return nil
}

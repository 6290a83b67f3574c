// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/clubhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs after connections and indexes are in place and before the
// handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	// A single decision may wait LockWait for its unit and then commit.
	if need := appCfg.LockWait + timeouts.Short(); timeouts.Long() < need {
		timeouts.Configure(timeouts.Config{Long: need})
	}

	t := timeouts.Current()
	logger.Info("clubhub starting",
		zap.String("env", coreCfg.Env),
		zap.String("lock_backend", appCfg.LockBackend),
		zap.Duration("lock_wait", appCfg.LockWait),
		zap.Int("allocation_min_age", appCfg.AllocationMinAge),
		zap.String("audit_log_allocations", appCfg.AuditLogAllocations),
		zap.Duration("timeout_long", t.Long),
		zap.Duration("timeout_batch", t.Batch))
	return nil
}

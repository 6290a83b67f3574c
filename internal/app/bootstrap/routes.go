// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	"github.com/dalemusser/clubhub/internal/app/allocation"
	"github.com/dalemusser/clubhub/internal/app/allocation/metrics"
	allocationfeature "github.com/dalemusser/clubhub/internal/app/features/allocation"
	healthfeature "github.com/dalemusser/clubhub/internal/app/features/health"
	allocationstore "github.com/dalemusser/clubhub/internal/app/store/allocations"
	clubstore "github.com/dalemusser/clubhub/internal/app/store/clubs"
	memberstore "github.com/dalemusser/clubhub/internal/app/store/members"
	membershipstore "github.com/dalemusser/clubhub/internal/app/store/memberships"
	unitstore "github.com/dalemusser/clubhub/internal/app/store/units"
	"github.com/dalemusser/clubhub/internal/app/system/ratelimit"
	"github.com/dalemusser/clubhub/internal/app/system/txn"
	"github.com/dalemusser/clubhub/internal/app/system/unitlock"
	"github.com/dalemusser/clubhub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Background resources owned by the handler, released in Shutdown.
var (
	sweep      *workers.BirthdaySweep
	batchLimit *ratelimit.Limiter
)

// BuildHandler constructs the root router: /health for load balancers,
// /metrics for Prometheus (when enabled) and the allocation API under /api.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	r := chi.NewRouter()

	healthHandler := healthfeature.NewHandler(deps.ClubHubMongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	var m *metrics.Metrics
	if appCfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg)
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	svc, err := newAllocationService(appCfg, deps, m, logger)
	if err != nil {
		logger.Error("allocation service init failed", zap.Error(err))
		return nil, err
	}

	if appCfg.BirthdaySweepInterval > 0 {
		sweep = workers.NewBirthdaySweep(clubstore.New(deps.ClubHubMongoDatabase), svc, logger, appCfg.BirthdaySweepInterval, 4)
		sweep.Start()
	}

	allocHandler := allocationfeature.NewHandler(svc, logger)
	if appCfg.BatchRateLimit > 0 {
		batchLimit = ratelimit.New(appCfg.BatchRateLimit, time.Minute)
		allocHandler.BatchLimit = batchLimit
	}
	r.Mount("/api", allocationfeature.Routes(allocHandler))

	return r, nil
}

// newAllocationService assembles the engine from the Mongo stores and the
// configured lock backend.
func newAllocationService(appCfg AppConfig, deps DBDeps, m *metrics.Metrics, logger *zap.Logger) (*allocation.Service, error) {
	db := deps.ClubHubMongoDatabase

	var locks allocation.Locker
	if deps.Redis != nil {
		locks = unitlock.NewRedis(deps.Redis, "clubhub:"+appCfg.MongoDatabase+":lock:", appCfg.LockTTL, 0)
	} else {
		locks = unitlock.NewLocal()
	}

	return allocation.New(allocation.Config{
		Members:     memberstore.New(db),
		Clubs:       clubstore.New(db),
		Units:       unitstore.New(db),
		Memberships: membershipstore.New(db),
		Records:     allocationstore.New(db),
		Tx:          txn.New(deps.ClubHubMongoClient, logger),
		Locks:       locks,
		LockWait:    appCfg.LockWait,
		MinAge:      appCfg.AllocationMinAge,
		TrailMode:   appCfg.AuditLogAllocations,
		Metrics:     m,
		Logger:      logger,
	})
}

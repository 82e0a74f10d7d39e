package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/campusportal/internal/accesswindow"
	"github.com/charlesng35/campusportal/internal/admin"
	"github.com/charlesng35/campusportal/internal/api"
	"github.com/charlesng35/campusportal/internal/app"
	"github.com/charlesng35/campusportal/internal/app/maintenance"
	"github.com/charlesng35/campusportal/internal/application"
	"github.com/charlesng35/campusportal/internal/audit"
	"github.com/charlesng35/campusportal/internal/cache"
	"github.com/charlesng35/campusportal/internal/database"
	"github.com/charlesng35/campusportal/internal/lockerflow"
	"github.com/charlesng35/campusportal/internal/middleware"
	"github.com/charlesng35/campusportal/internal/monitoring"
	"github.com/charlesng35/campusportal/internal/monitoring/checks"
	"github.com/charlesng35/campusportal/internal/session"
	"github.com/charlesng35/campusportal/internal/upstream"
	"github.com/charlesng35/campusportal/internal/verification"
	"github.com/charlesng35/campusportal/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Redis   *cache.RedisStore
	Store   cache.Store
	Jobs    *monitoring.JobTracker
	Health  *monitoring.HealthManager
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime initialises storage, the backend client, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{Jobs: monitoring.NewJobTracker()}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)
	stack.Store = dbStore
	if cfg.Cache.Redis.Enabled {
		stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig())
		if err != nil {
			log.Warn("redis unavailable; falling back to database-backed cache", zap.Error(err))
		} else {
			stack.Store = stack.Redis
			log.Info("redis connected")
		}
	}

	client, err := upstream.NewClient(cfg.Upstream.ClientConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise upstream client: %w", err)
	}

	services, err := buildServices(stack.Store, stack.DB, client, cfg)
	if err != nil {
		return nil, err
	}

	// Expired rows only pile up in the database store; Redis expires keys itself.
	var purger maintenance.ExpiredPurger
	if stack.Redis == nil {
		purger = dbStore
	}
	stack.Cleaner = maintenance.NewCleaner(purger, services.Audit,
		maintenance.WithTracker(stack.Jobs),
		maintenance.WithAuditRetention(cfg.Maintenance.AuditRetention),
		maintenance.WithCacheSchedule(cfg.Maintenance.CacheSchedule),
		maintenance.WithAuditSchedule(cfg.Maintenance.AuditSchedule),
	)
	if cfg.Maintenance.Enabled {
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	if cfg.Monitoring.Health.Enabled {
		stack.Health = buildHealth(cfg, stack, client)
		services.Health = stack.Health
	}

	services.RateStore = middleware.NewStoreRateStore(stack.Store)

	stack.Router, err = api.NewRouter(cfg, services)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func buildServices(store cache.Store, db *gorm.DB, client *upstream.Client, cfg *app.Config) (api.Services, error) {
	flows, err := lockerflow.NewService(store, client, cfg.Flow.Options()...)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise locker flows: %w", err)
	}

	applications, err := application.NewService(client)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise application service: %w", err)
	}

	sessions, err := session.NewManager(store, client, cfg.Session.ManagerConfig())
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise session manager: %w", err)
	}

	auditSvc, err := audit.NewService(db)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise audit service: %w", err)
	}

	adminSvc, err := admin.NewService(client, auditSvc, sessions)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise admin service: %w", err)
	}

	return api.Services{
		Verification: verification.NewResolver(client),
		Flows:        flows,
		Applications: applications,
		Sessions:     sessions,
		Admin:        adminSvc,
		Audit:        auditSvc,
		WindowGuard:  accesswindow.NewGuard(client),
	}, nil
}

func buildHealth(cfg *app.Config, stack *runtimeStack, client *upstream.Client) *monitoring.HealthManager {
	manager := monitoring.NewHealthManager(cfg.Monitoring.Health.Timeout)
	manager.RegisterLiveness(monitoring.NewCheck("process", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))

	var pinger checks.RedisPinger
	if stack.Redis != nil {
		pinger = stack.Redis
	}
	manager.RegisterReadiness(checks.Database(stack.DB))
	manager.RegisterReadiness(checks.Redis(pinger))
	manager.RegisterReadiness(checks.Upstream(client))
	if cfg.Maintenance.Enabled {
		manager.RegisterReadiness(checks.Maintenance(stack.Jobs, 0))
	}
	return manager
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		// let running jobs finish before the final pass
		select {
		case <-s.Cleaner.Stop().Done():
		case <-ctx.Done():
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseSettings()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", strings.TrimSpace(dbCfg.Driver)))
	return db, nil
}

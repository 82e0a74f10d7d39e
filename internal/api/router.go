package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/campusportal/internal/accesswindow"
	"github.com/charlesng35/campusportal/internal/admin"
	"github.com/charlesng35/campusportal/internal/app"
	"github.com/charlesng35/campusportal/internal/application"
	"github.com/charlesng35/campusportal/internal/audit"
	"github.com/charlesng35/campusportal/internal/lockerflow"
	"github.com/charlesng35/campusportal/internal/middleware"
	"github.com/charlesng35/campusportal/internal/monitoring"
	"github.com/charlesng35/campusportal/internal/session"
	"github.com/charlesng35/campusportal/internal/verification"
)

// Services bundles the dependencies the HTTP surface is built from.
type Services struct {
	Verification *verification.Resolver
	Flows        *lockerflow.Service
	Applications *application.Service
	Sessions     *session.Manager
	Admin        *admin.Service
	Audit        *audit.Service
	WindowGuard  *accesswindow.Guard
	// Health may be nil; the probes then answer 404.
	Health *monitoring.HealthManager
	// RateStore defaults to an in-process store.
	RateStore middleware.RateStore
}

func (s Services) validate() error {
	switch {
	case s.Verification == nil:
		return fmt.Errorf("verification resolver must be provided")
	case s.Flows == nil:
		return fmt.Errorf("locker flow service must be provided")
	case s.Applications == nil:
		return fmt.Errorf("application service must be provided")
	case s.Sessions == nil:
		return fmt.Errorf("session manager must be provided")
	case s.Admin == nil:
		return fmt.Errorf("admin service must be provided")
	case s.Audit == nil:
		return fmt.Errorf("audit service must be provided")
	case s.WindowGuard == nil:
		return fmt.Errorf("access window guard must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(cfg *app.Config, svc Services) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if err := svc.validate(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	if cfg.Server.CSRF.Enabled {
		r.Use(middleware.CSRF())
	}
	if limit := cfg.Server.RateLimit; limit.Enabled && limit.Requests > 0 && limit.Window > 0 {
		store := svc.RateStore
		if store == nil {
			store = middleware.NewMemoryRateStore()
		}
		r.Use(middleware.RateLimit(store, limit.Requests, limit.Window))
	}

	registerHealthRoutes(r, cfg, svc.Health)
	registerVerificationRoutes(r, svc)
	registerLockerRoutes(r, svc)
	registerCircleRoutes(r, svc)
	registerAuthRoutes(r, cfg, svc)
	registerPageRoutes(r)
	registerAdminRoutes(r, svc)

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	r.NoRoute(middleware.NotFoundHandler)
	r.NoMethod(middleware.MethodNotAllowedHandler)

	return r, nil
}

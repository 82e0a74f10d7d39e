package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campusportal/internal/app"
	"github.com/charlesng35/campusportal/internal/handlers"
	"github.com/charlesng35/campusportal/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, manager *monitoring.HealthManager) {
	if !cfg.Monitoring.Health.Enabled {
		manager = nil
	}
	h := handlers.NewHealthHandler(manager)

	r.GET("/health", h.Summary)
	r.GET("/health/live", h.Live)
	r.GET("/health/ready", h.Ready)
}

package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campusportal/internal/handlers"
	"github.com/charlesng35/campusportal/internal/middleware"
)

func registerAdminRoutes(r *gin.Engine, svc Services) {
	h := handlers.NewAdminHandler(svc.Admin, svc.Audit)

	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.RequireSession(svc.Sessions))
	{
		adminGroup.GET("", h.Dashboard)
		adminGroup.POST("/locker/reset", h.ResetLockers)
		adminGroup.POST("/download", h.Download)
		adminGroup.GET("/locker/search", h.SearchLockers)
		adminGroup.GET("/circle/list", h.Circles)
		adminGroup.GET("/circle/access", h.Window)
		adminGroup.POST("/circle/access", h.SetWindow)
		adminGroup.GET("/audit", h.AuditLog)
	}
}

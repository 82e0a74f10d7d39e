package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campusportal/internal/handlers"
)

// Circle pages are reachable only while the registration window is open.
func registerCircleRoutes(r *gin.Engine, svc Services) {
	h := handlers.NewCircleHandler(svc.Applications)

	circle := r.Group("/circle")
	circle.Use(svc.WindowGuard.Middleware())
	{
		circle.GET("", h.Overview)
		circle.GET("/register/status", h.Status)
		circle.POST("/register/process", h.Register)
		circle.POST("/update/confirm", h.Update)
	}
}

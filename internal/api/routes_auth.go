package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campusportal/internal/app"
	"github.com/charlesng35/campusportal/internal/handlers"
)

func registerAuthRoutes(r *gin.Engine, cfg *app.Config, svc Services) {
	h := handlers.NewAuthHandler(svc.Sessions, cfg.Server.SecureCookies)

	r.GET("/login", h.LoginPage)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.GET("/api/session", h.Session)
}

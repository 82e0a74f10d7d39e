package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campusportal/internal/handlers"
)

func registerLockerRoutes(r *gin.Engine, svc Services) {
	h := handlers.NewLockerHandler(svc.Flows, svc.Applications)

	locker := r.Group("/locker")
	{
		locker.GET("/register", h.Selection)
		locker.POST("/register", h.Select)
		locker.GET("/register/confirm", h.Confirmation)
		locker.POST("/register/confirm", h.Confirm)
		locker.GET("/register/complete", h.Complete)
		locker.POST("/form/confirm", h.SubmitApplication)
	}
}

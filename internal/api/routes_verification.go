package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campusportal/internal/handlers"
)

// Links emailed by the backend. They carry their own token so no guard applies.
func registerVerificationRoutes(r *gin.Engine, svc Services) {
	h := handlers.NewVerificationHandler(svc.Verification, svc.Flows)

	r.GET("/locker/user-register", h.Locker)
	r.GET("/circle/register/auth", h.CircleRegister)
	r.GET("/circle/update/auth", h.CircleUpdate)
}

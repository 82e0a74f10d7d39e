package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campusportal/internal/handlers"
)

// Fixed landing pages. They stay outside the circle window guard.
func registerPageRoutes(r *gin.Engine) {
	for _, page := range handlers.StaticPages() {
		r.GET(page.Path, handlers.Page(page))
	}
}

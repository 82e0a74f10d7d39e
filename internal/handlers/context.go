package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campusportal/internal/admin"
	"github.com/charlesng35/campusportal/internal/middleware"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentActor describes the administrator behind a session-guarded request.
func currentActor(c *gin.Context) admin.Actor {
	sess, _ := middleware.SessionFrom(c)
	return admin.Actor{
		Session:   sess,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campusportal/internal/pages"
	"github.com/charlesng35/campusportal/internal/session"
	"github.com/charlesng35/campusportal/pkg/response"
)

// CtxSessionKey holds the *session.Session of an authenticated admin request.
const CtxSessionKey = "portalSession"

// SessionResolver resolves a session marker cookie into a live session.
type SessionResolver interface {
	Resolve(ctx context.Context, marker string) (*session.Session, error)
}

// RequireSession lets the request through only with a live admin session and
// otherwise redirects to the login page.
func RequireSession(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		marker, err := c.Cookie(session.CookieName)
		if err != nil || marker == "" {
			response.Redirect(c, pages.Login)
			c.Abort()
			return
		}

		sess, err := resolver.Resolve(c.Request.Context(), marker)
		if err != nil || sess == nil {
			response.Redirect(c, pages.Login)
			c.Abort()
			return
		}

		c.Set(CtxSessionKey, sess)
		c.Next()
	}
}

// SessionFrom returns the session published by RequireSession.
func SessionFrom(c *gin.Context) (*session.Session, bool) {
	value, ok := c.Get(CtxSessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := value.(*session.Session)
	return sess, ok && sess != nil
}

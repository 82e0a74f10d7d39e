package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campusportal/internal/pages"
	"github.com/charlesng35/campusportal/internal/session"
	"github.com/charlesng35/campusportal/internal/upstream"
	"github.com/charlesng35/campusportal/pkg/response"
)

// AuthHandler manages the admin session cookie.
type AuthHandler struct {
	sessions      *session.Manager
	secureCookies bool
	now           func() time.Time
}

// NewAuthHandler constructs an AuthHandler. secureCookies marks the session
// cookie Secure and should only be off for plain HTTP development setups.
func NewAuthHandler(sessions *session.Manager, secureCookies bool) *AuthHandler {
	return &AuthHandler{sessions: sessions, secureCookies: secureCookies, now: time.Now}
}

type sessionView struct {
	LoggedIn  bool       `json:"loggedIn"`
	Username  string     `json:"username,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// GET /login
func (h *AuthHandler) LoginPage(c *gin.Context) {
	if _, ok := h.liveSession(c); ok {
		response.Redirect(c, pages.Admin)
		return
	}
	response.Success(c, http.StatusOK, StaticPage{Name: "login", Title: "Administrator login"})
}

// POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var req upstream.Credentials
	if !bindAndValidate(c, &req) {
		return
	}

	marker, sess, err := h.sessions.Login(requestContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	maxAge := int(sess.ExpiresAt.Sub(h.now()).Seconds())
	h.setCookie(c, marker, maxAge)
	response.Success(c, http.StatusOK, sessionView{LoggedIn: true, Username: sess.Username, ExpiresAt: &sess.ExpiresAt})
}

// POST /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if marker, err := c.Cookie(session.CookieName); err == nil && marker != "" {
		h.sessions.Logout(requestContext(c), marker)
	}
	h.setCookie(c, "", -1)
	response.Success(c, http.StatusOK, sessionView{LoggedIn: false})
}

// GET /api/session
func (h *AuthHandler) Session(c *gin.Context) {
	sess, ok := h.liveSession(c)
	if !ok {
		response.Success(c, http.StatusOK, sessionView{})
		return
	}
	response.Success(c, http.StatusOK, sessionView{LoggedIn: true, Username: sess.Username, ExpiresAt: &sess.ExpiresAt})
}

// liveSession resolves the session cookie and clears it when it no longer
// maps to a live session.
func (h *AuthHandler) liveSession(c *gin.Context) (*session.Session, bool) {
	marker, err := c.Cookie(session.CookieName)
	if err != nil || marker == "" {
		return nil, false
	}

	sess, err := h.sessions.Resolve(requestContext(c), marker)
	if err != nil || sess == nil {
		h.setCookie(c, "", -1)
		return nil, false
	}
	return sess, true
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     session.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   h.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

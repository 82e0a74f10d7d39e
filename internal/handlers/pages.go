package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campusportal/internal/pages"
	"github.com/charlesng35/campusportal/pkg/response"
)

// StaticPage describes a fixed page the portal redirects to.
type StaticPage struct {
	Path    string `json:"-"`
	Name    string `json:"page"`
	Title   string `json:"title"`
	Message string `json:"message,omitempty"`
}

// StaticPages lists every fixed page without its own handler. The window guard
// redirects to CircleTimeout, so none of these may sit behind it.
func StaticPages() []StaticPage {
	return []StaticPage{
		{pages.LockerNoPage, "locker.nopage", "Page not found", "This link is invalid or has expired."},
		{pages.LockerAuthComplete, "locker.auth_complete", "Verification complete", "Your email address has been confirmed."},
		{pages.LockerFormComplete, "locker.form_complete", "Application received", "Check both inboxes for the verification emails."},
		{pages.CircleNoPage, "circle.nopage", "Page not found", "This link is invalid or has expired."},
		{pages.CircleTimeout, "circle.timeout", "Registration closed", "Circle registration is outside its access period."},
		{pages.CircleRegisterComplete, "circle.register_complete", "Registration confirmed", "The circle registration has been verified."},
		{pages.CircleUpdateComplete, "circle.update_complete", "Update confirmed", "The circle update has been verified."},
	}
}

// Page renders a fixed page view.
func Page(page StaticPage) gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, http.StatusOK, page)
	}
}

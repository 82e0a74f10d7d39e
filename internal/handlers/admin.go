package handlers

import (
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/campusportal/internal/admin"
	"github.com/charlesng35/campusportal/internal/audit"
	"github.com/charlesng35/campusportal/internal/lockerflow"
	"github.com/charlesng35/campusportal/internal/models"
	"github.com/charlesng35/campusportal/internal/session"
	"github.com/charlesng35/campusportal/internal/upstream"
	appErrors "github.com/charlesng35/campusportal/pkg/errors"
	"github.com/charlesng35/campusportal/pkg/logger"
	"github.com/charlesng35/campusportal/pkg/response"
)

const dashboardAuditEntries = 10

// AdminHandler serves the back office. Every route sits behind RequireSession.
type AdminHandler struct {
	svc   *admin.Service
	audit *audit.Service
}

// NewAdminHandler constructs an AdminHandler. auditSvc may be nil.
func NewAdminHandler(svc *admin.Service, auditSvc *audit.Service) *AdminHandler {
	return &AdminHandler{svc: svc, audit: auditSvc}
}

type passwordRequest struct {
	Password string `json:"password" validate:"required,max=256"`
}

type dashboardView struct {
	Username     string                 `json:"username"`
	ExpiresAt    time.Time              `json:"expiresAt"`
	Window       *upstream.AccessWindow `json:"window,omitempty"`
	RecentAudits []models.AuditLog      `json:"recentAudits"`
}

// GET /admin
func (h *AdminHandler) Dashboard(c *gin.Context) {
	ctx := requestContext(c)
	actor := currentActor(c)

	view := dashboardView{RecentAudits: []models.AuditLog{}}
	if actor.Session != nil {
		view.Username = actor.Session.Username
		view.ExpiresAt = actor.Session.ExpiresAt
	}
	if window, err := h.svc.Window(ctx); err == nil {
		view.Window = &window
	}
	if h.audit != nil {
		logs, _, err := h.audit.List(ctx, audit.ListOptions{Page: 1, PageSize: dashboardAuditEntries})
		if err != nil {
			logger.WithModule("admin").Warn("recent audit entries unavailable", zap.Error(err))
		} else {
			view.RecentAudits = logs
		}
	}

	response.Success(c, http.StatusOK, view)
}

// POST /admin/locker/reset
func (h *AdminHandler) ResetLockers(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return
	}

	if err := h.svc.Reset(requestContext(c), currentActor(c), req.Password); err != nil {
		h.actionFailed(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reset": true})
}

// POST /admin/download
func (h *AdminHandler) Download(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return
	}

	backup, err := h.svc.Download(requestContext(c), currentActor(c), req.Password)
	if err != nil {
		h.actionFailed(c, err)
		return
	}

	c.Header("Content-Disposition", attachmentDisposition(backup.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/zip", backup.Data)
}

// GET /admin/circle/access
func (h *AdminHandler) Window(c *gin.Context) {
	window, err := h.svc.Window(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, window)
}

// POST /admin/circle/access
func (h *AdminHandler) SetWindow(c *gin.Context) {
	var req admin.WindowInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return
	}

	window, err := h.svc.SetWindow(requestContext(c), currentActor(c), req)
	if err != nil {
		h.actionFailed(c, err)
		return
	}
	response.Success(c, http.StatusOK, window)
}

// GET /admin/locker/search
func (h *AdminHandler) SearchLockers(c *gin.Context) {
	query := upstream.LockerUserQuery{
		Year:       parseIntQuery(c, "year", 0),
		FamilyName: strings.TrimSpace(c.Query("familyname")),
		GivenName:  strings.TrimSpace(c.Query("givenname")),
	}
	floor, err := lockerflow.ParseFloor(c.Query("floor"))
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("floor must be a non-negative number"))
		return
	}
	query.Floor = floor

	users, err := h.svc.SearchLockers(requestContext(c), currentActor(c), query)
	if err != nil {
		h.actionFailed(c, err)
		return
	}
	response.Success(c, http.StatusOK, users)
}

// GET /admin/circle/list
func (h *AdminHandler) Circles(c *gin.Context) {
	circles, err := h.svc.Circles(requestContext(c), currentActor(c))
	if err != nil {
		h.actionFailed(c, err)
		return
	}
	response.Success(c, http.StatusOK, circles)
}

// GET /admin/audit
func (h *AdminHandler) AuditLog(c *gin.Context) {
	if h.audit == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)
	filters := audit.Filters{
		Username: c.Query("username"),
		Action:   c.Query("action"),
		Result:   c.Query("result"),
	}
	if raw := c.Query("since"); raw != "" {
		if since, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.Since = &since
		}
	}

	logs, total, err := h.audit.List(requestContext(c), audit.ListOptions{Page: page, PageSize: perPage, Filters: filters})
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, logs, &response.Meta{
		Page:    page,
		PerPage: perPage,
		Total:   int(total),
	})
}

// actionFailed renders err and drops the session cookie when the backend no
// longer accepts the session.
func (h *AdminHandler) actionFailed(c *gin.Context, err error) {
	if errors.Is(err, appErrors.ErrNotAuthenticated) {
		http.SetCookie(c.Writer, &http.Cookie{Name: session.CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	}
	writeServiceError(c, err)
}

const fallbackBackupName = "backup.zip"

// attachmentDisposition quotes or RFC 2231-encodes the backend's file name.
func attachmentDisposition(filename string) string {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		filename = fallbackBackupName
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}

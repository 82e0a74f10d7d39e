package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campusportal/internal/accesswindow"
	"github.com/charlesng35/campusportal/internal/application"
	"github.com/charlesng35/campusportal/internal/pages"
	"github.com/charlesng35/campusportal/internal/upstream"
	appErrors "github.com/charlesng35/campusportal/pkg/errors"
	"github.com/charlesng35/campusportal/pkg/response"
)

// CircleHandler serves the window-gated circle pages and forms.
type CircleHandler struct {
	applications *application.Service
}

// NewCircleHandler constructs a CircleHandler.
func NewCircleHandler(applications *application.Service) *CircleHandler {
	return &CircleHandler{applications: applications}
}

type circleStatusView struct {
	Window upstream.AccessWindow  `json:"window"`
	Status application.StatusPage `json:"status"`
}

// GET /circle
func (h *CircleHandler) Overview(c *gin.Context) {
	window, _ := accesswindow.FromContext(requestContext(c))
	response.Success(c, http.StatusOK, gin.H{"window": window})
}

// GET /circle/register/status
func (h *CircleHandler) Status(c *gin.Context) {
	ctx := requestContext(c)
	window, _ := accesswindow.FromContext(ctx)

	page, err := h.applications.Statuses(ctx, application.StatusQuery{
		Name: c.Query("name"),
		Page: parseIntQuery(c, "page", 1),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, circleStatusView{Window: window, Status: page}, &response.Meta{
		Page:       page.Page,
		PerPage:    page.PageSize,
		Total:      page.Total,
		TotalPages: (page.Total + page.PageSize - 1) / page.PageSize,
	})
}

// POST /circle/register/process
func (h *CircleHandler) Register(c *gin.Context) {
	var reg upstream.CircleRegistration
	if err := c.ShouldBindJSON(&reg); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return
	}

	if err := h.applications.SubmitCircleRegistration(requestContext(c), reg); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"submitted": true})
}

// POST /circle/update/confirm
func (h *CircleHandler) Update(c *gin.Context) {
	var form application.CircleUpdateForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return
	}

	if err := h.applications.SubmitCircleUpdate(requestContext(c), form); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Redirect(c, pages.CircleUpdateComplete)
}

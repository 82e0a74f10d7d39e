package handlers

import (
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campusportal/internal/application"
	"github.com/charlesng35/campusportal/internal/lockerflow"
	"github.com/charlesng35/campusportal/internal/pages"
	"github.com/charlesng35/campusportal/internal/upstream"
	appErrors "github.com/charlesng35/campusportal/pkg/errors"
	"github.com/charlesng35/campusportal/pkg/response"
)

// LockerHandler serves locker selection, confirmation and the application form.
type LockerHandler struct {
	flows        *lockerflow.Service
	applications *application.Service
}

// NewLockerHandler constructs a LockerHandler.
func NewLockerHandler(flows *lockerflow.Service, applications *application.Service) *LockerHandler {
	return &LockerHandler{flows: flows, applications: applications}
}

type lockerSelectionView struct {
	FlowID   string                    `json:"flowId"`
	Pair     upstream.PartyPair        `json:"pair"`
	Floor    *int                      `json:"floor,omitempty"`
	LockerID string                    `json:"lockerId,omitempty"`
	Lockers  []lockerflow.LockerOption `json:"lockers"`
}

type lockerConfirmView struct {
	FlowID       string             `json:"flowId"`
	Pair         upstream.PartyPair `json:"pair"`
	LockerID     string             `json:"lockerId"`
	Acknowledged bool               `json:"acknowledged"`
}

type selectLockerRequest struct {
	LockerID string `json:"lockerId" validate:"required,max=32"`
	Floor    *int   `json:"floor" validate:"omitempty,min=0"`
}

type confirmLockerRequest struct {
	Acknowledged bool `json:"acknowledged"`
}

// GET /locker/register
func (h *LockerHandler) Selection(c *gin.Context) {
	ctx := requestContext(c)
	flow, err := h.flows.Load(ctx, c.Query("flow"), lockerflow.StepSelect)
	if err != nil {
		h.flowUnavailable(c, err)
		return
	}

	floor, err := lockerflow.ParseFloor(c.Query("floor"))
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("floor must be a non-negative number"))
		return
	}
	if floor == nil {
		floor = flow.Floor
	}

	response.Success(c, http.StatusOK, lockerSelectionView{
		FlowID:   flow.ID,
		Pair:     flow.Pair,
		Floor:    floor,
		LockerID: flow.LockerID,
		Lockers:  h.flows.Lockers(ctx, floor),
	})
}

// POST /locker/register
func (h *LockerHandler) Select(c *gin.Context) {
	var req selectLockerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	flow, err := h.flows.Select(requestContext(c), c.Query("flow"), req.LockerID, req.Floor)
	if err != nil {
		h.flowUnavailable(c, err)
		return
	}
	response.Redirect(c, pages.With(pages.LockerRegisterConfirm, url.Values{"flow": {flow.ID}}))
}

// GET /locker/register/confirm
func (h *LockerHandler) Confirmation(c *gin.Context) {
	flow, err := h.flows.Load(requestContext(c), c.Query("flow"), lockerflow.StepConfirm)
	if err != nil {
		h.flowUnavailable(c, err)
		return
	}

	response.Success(c, http.StatusOK, lockerConfirmView{
		FlowID:       flow.ID,
		Pair:         flow.Pair,
		LockerID:     flow.LockerID,
		Acknowledged: flow.Acknowledged,
	})
}

// POST /locker/register/confirm
func (h *LockerHandler) Confirm(c *gin.Context) {
	var req confirmLockerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.flows.Confirm(requestContext(c), c.Query("flow"), req.Acknowledged)
	if err != nil {
		var cooldown *lockerflow.CooldownError
		if errors.As(err, &cooldown) {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(cooldown.RetryAfter.Seconds()))))
			response.Error(c, appErrors.ErrCooldown)
			return
		}
		h.flowUnavailable(c, err)
		return
	}

	response.Redirect(c, pages.With(pages.LockerRegisterDone, url.Values{"lockerId": {result.LockerID}}))
}

// GET /locker/register/complete
func (h *LockerHandler) Complete(c *gin.Context) {
	lockerID := strings.TrimSpace(c.Query("lockerId"))
	if lockerID == "" {
		response.Redirect(c, pages.LockerNoPage)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"lockerId": lockerID})
}

// POST /locker/form/confirm
func (h *LockerHandler) SubmitApplication(c *gin.Context) {
	var pair upstream.PartyPair
	if err := c.ShouldBindJSON(&pair); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return
	}

	if err := h.applications.SubmitLocker(requestContext(c), pair); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Redirect(c, pages.LockerFormComplete)
}

// flowUnavailable sends missing or expired flows back to the no-page screen and
// renders every other error inline.
func (h *LockerHandler) flowUnavailable(c *gin.Context, err error) {
	if errors.Is(err, lockerflow.ErrFlowNotFound) || errors.Is(err, lockerflow.ErrPreconditionMissing) {
		response.Redirect(c, pages.LockerNoPage)
		return
	}
	writeServiceError(c, err)
}

package handlers

import (
	"context"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/campusportal/internal/lockerflow"
	"github.com/charlesng35/campusportal/internal/pages"
	"github.com/charlesng35/campusportal/internal/upstream"
	"github.com/charlesng35/campusportal/internal/verification"
	"github.com/charlesng35/campusportal/pkg/logger"
	"github.com/charlesng35/campusportal/pkg/response"
)

// FlowStarter opens a locker flow for a verified pair.
type FlowStarter interface {
	Begin(ctx context.Context, pair upstream.PartyPair, authID string) (*lockerflow.Flow, error)
}

// VerificationHandler serves the links emailed to both parties. Every link
// ends in a redirect; failures never reveal why.
type VerificationHandler struct {
	resolver *verification.Resolver
	flows    FlowStarter
	log      *zap.Logger
}

// NewVerificationHandler constructs a VerificationHandler.
func NewVerificationHandler(resolver *verification.Resolver, flows FlowStarter) *VerificationHandler {
	return &VerificationHandler{resolver: resolver, flows: flows, log: logger.WithModule("verification")}
}

// GET /locker/user-register
func (h *VerificationHandler) Locker(c *gin.Context) {
	h.resolve(c, verification.VariantLocker)
}

// GET /circle/register/auth
func (h *VerificationHandler) CircleRegister(c *gin.Context) {
	h.resolve(c, verification.VariantCircleRegister)
}

// GET /circle/update/auth
func (h *VerificationHandler) CircleUpdate(c *gin.Context) {
	h.resolve(c, verification.VariantCircleUpdate)
}

func (h *VerificationHandler) resolve(c *gin.Context, variant verification.Variant) {
	ctx := requestContext(c)
	outcome := h.resolver.ResolveQuery(ctx, variant, c.Request.URL.Query())

	if outcome.Kind != verification.OutcomeSelection {
		response.Redirect(c, outcome.Redirect)
		return
	}

	flow, err := h.flows.Begin(ctx, outcome.Pair, outcome.AuthID)
	if err != nil {
		h.log.Warn("locker flow could not be started", zap.Error(err))
		response.Redirect(c, variant.ErrorPage())
		return
	}
	response.Redirect(c, pages.With(pages.LockerRegister, url.Values{"flow": {flow.ID}}))
}

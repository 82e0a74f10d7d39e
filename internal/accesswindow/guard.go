// Package accesswindow gates circle registration routes on the backend's
// configured access window.
package accesswindow

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/campusportal/internal/pages"
	"github.com/charlesng35/campusportal/internal/upstream"
	"github.com/charlesng35/campusportal/pkg/logger"
	"github.com/charlesng35/campusportal/pkg/metrics"
	"github.com/charlesng35/campusportal/pkg/response"
)

// ErrInvalidWindow is returned for a window with missing or inverted bounds.
var ErrInvalidWindow = errors.New("accesswindow: invalid window")

// Source fetches the current window.
type Source interface {
	AccessWindow(ctx context.Context) (upstream.AccessWindow, error)
}

// State is the guard's verdict for one request.
type State int

const (
	StateLoading State = iota
	StateAccessible
	StateInaccessible
)

func (s State) String() string {
	switch s {
	case StateAccessible:
		return "accessible"
	case StateInaccessible:
		return "inaccessible"
	default:
		return "loading"
	}
}

// Decision is the outcome of one evaluation.
type Decision struct {
	State  State
	Window upstream.AccessWindow
	Err    error
}

type contextKey struct{}

// FromContext returns the window published by the guard. The returned value
// is a copy; changing it has no effect on other readers.
func FromContext(ctx context.Context) (upstream.AccessWindow, bool) {
	if ctx == nil {
		return upstream.AccessWindow{}, false
	}
	w, ok := ctx.Value(contextKey{}).(upstream.AccessWindow)
	return w, ok
}

// Option customises a Guard.
type Option func(*Guard)

// WithClock overrides the clock used to place now against the window.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

// WithRedirect overrides the out-of-window page.
func WithRedirect(page string) Option {
	return func(g *Guard) {
		if page != "" {
			g.redirect = page
		}
	}
}

// Guard evaluates the window once per guarded request. It never caches the
// window, so a window that closes mid-visit is noticed on the next request.
type Guard struct {
	source   Source
	now      func() time.Time
	redirect string
	log      *zap.Logger
}

// NewGuard constructs a Guard reading from source.
func NewGuard(source Source, opts ...Option) *Guard {
	g := &Guard{
		source:   source,
		now:      time.Now,
		redirect: pages.CircleTimeout,
		log:      logger.WithModule("accesswindow"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate fetches the window and decides. Every failure is inaccessible.
func (g *Guard) Evaluate(ctx context.Context) Decision {
	if g.source == nil {
		return Decision{State: StateInaccessible, Err: errors.New("accesswindow: no source")}
	}

	window, err := g.source.AccessWindow(ctx)
	if err != nil {
		return Decision{State: StateInaccessible, Err: err}
	}
	if !window.Valid() {
		return Decision{State: StateInaccessible, Window: window, Err: ErrInvalidWindow}
	}
	if !window.Contains(g.now()) {
		return Decision{State: StateInaccessible, Window: window}
	}
	return Decision{State: StateAccessible, Window: window}
}

// Middleware redirects out-of-window requests and publishes the window to
// the rest of the chain otherwise.
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		decision := g.Evaluate(ctx)
		metrics.WindowDecisions.WithLabelValues(decision.State.String()).Inc()

		if decision.State != StateAccessible {
			if decision.Err != nil {
				g.log.Warn("access window unavailable", zap.Error(decision.Err))
			}
			response.Redirect(c, g.redirect)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(context.WithValue(ctx, contextKey{}, decision.Window))
		c.Next()
	}
}

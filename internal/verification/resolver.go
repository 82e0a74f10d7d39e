package verification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/charlesng35/campusportal/internal/upstream"
	"github.com/charlesng35/campusportal/pkg/logger"
	"github.com/charlesng35/campusportal/pkg/metrics"
)

// ErrIncompletePair reports a pair-check reply missing a party or the auth id.
var ErrIncompletePair = errors.New("verification: pair-check reply is incomplete")

// Backend is the subset of the upstream client the resolver calls.
type Backend interface {
	LockerCoAuth(ctx context.Context, token string) error
	LockerMainAuth(ctx context.Context, token string) error
	LockerAuthCheck(ctx context.Context, token string) (upstream.PairCheck, error)
	CircleCoAuth(ctx context.Context, token, id string) error
	CircleMainAuth(ctx context.Context, token, id string) error
}

// OutcomeKind is the branch a resolved link takes.
type OutcomeKind int

const (
	OutcomeError OutcomeKind = iota
	OutcomeCompleted
	OutcomeSelection
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCompleted:
		return "completed"
	case OutcomeSelection:
		return "selection"
	default:
		return "error"
	}
}

// Outcome is the redirect decision for one link.
type Outcome struct {
	Kind     OutcomeKind
	Redirect string
	// Pair and AuthID are set for OutcomeSelection and are passed on unmodified.
	Pair   upstream.PartyPair
	AuthID string
	Reason Reason
}

// Resolver turns verification links into outcomes.
type Resolver struct {
	backend Backend
	group   singleflight.Group
	log     *zap.Logger
}

// NewResolver builds a Resolver on top of backend.
func NewResolver(backend Backend) *Resolver {
	return &Resolver{
		backend: backend,
		log:     logger.WithModule("verification"),
	}
}

// ResolveQuery parses query and resolves it. Malformed queries never reach the backend.
func (r *Resolver) ResolveQuery(ctx context.Context, variant Variant, query url.Values) Outcome {
	link, err := ParseLink(variant, query)
	if err != nil {
		return r.failed(variant, err)
	}
	return r.Resolve(ctx, link)
}

// Resolve issues the single backend call the link maps to. Concurrent
// resolutions of the same link share one call.
func (r *Resolver) Resolve(ctx context.Context, link Link) Outcome {
	v, err, _ := r.group.Do(link.key(), func() (any, error) {
		return r.call(ctx, link)
	})
	if err != nil {
		return r.failed(link.Variant, err)
	}

	outcome := v.(Outcome)
	metrics.VerificationOutcomes.WithLabelValues(link.Variant.String(), outcome.Kind.String()).Inc()
	return outcome
}

func (r *Resolver) call(ctx context.Context, link Link) (Outcome, error) {
	switch link.Variant {
	case VariantLocker:
		switch link.Method {
		case MethodCoParty:
			return r.completed(link, r.backend.LockerCoAuth(ctx, link.Token))
		case MethodMainParty:
			return r.completed(link, r.backend.LockerMainAuth(ctx, link.Token))
		case MethodPairCheck:
			check, err := r.backend.LockerAuthCheck(ctx, link.Token)
			if err != nil {
				return Outcome{}, err
			}
			if !check.Pair.Complete() || check.AuthID == "" {
				return Outcome{}, ErrIncompletePair
			}
			return Outcome{Kind: OutcomeSelection, Pair: check.Pair, AuthID: check.AuthID}, nil
		}
	case VariantCircleRegister, VariantCircleUpdate:
		switch link.Method {
		case MethodCoParty:
			return r.completed(link, r.backend.CircleCoAuth(ctx, link.Token, link.ID))
		case MethodMainParty:
			return r.completed(link, r.backend.CircleMainAuth(ctx, link.Token, link.ID))
		}
	}
	return Outcome{}, fmt.Errorf("%w: %s/%s", ErrUnmappedMethod, link.Variant, link.Method)
}

func (r *Resolver) completed(link Link, err error) (Outcome, error) {
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeCompleted, Redirect: link.Variant.CompletionPage()}, nil
}

func (r *Resolver) failed(variant Variant, err error) Outcome {
	reason := ClassifyVerificationError(err)
	level := r.log.Debug
	if reason == ReasonUnmapped || reason == ReasonUpstreamFailure {
		level = r.log.Warn
	}
	level("verification link failed",
		zap.String("variant", variant.String()),
		zap.String("reason", reason.String()),
		zap.Error(err),
	)
	metrics.VerificationOutcomes.WithLabelValues(variant.String(), OutcomeError.String()).Inc()
	return Outcome{Kind: OutcomeError, Redirect: variant.ErrorPage(), Reason: reason}
}

// Reason says why a link failed. Every reason leads to the same error page.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonMalformedInput
	ReasonRejected
	ReasonMalformedResponse
	ReasonUpstreamFailure
	ReasonUnmapped
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMalformedInput:
		return "malformed_input"
	case ReasonRejected:
		return "rejected"
	case ReasonMalformedResponse:
		return "malformed_response"
	case ReasonUnmapped:
		return "unmapped"
	default:
		return "upstream_failure"
	}
}

// ClassifyVerificationError maps every verification failure onto a Reason.
// Used, expired and unknown tokens are deliberately indistinguishable.
func ClassifyVerificationError(err error) Reason {
	if err == nil {
		return ReasonNone
	}
	switch {
	case errors.Is(err, ErrMalformedLink):
		return ReasonMalformedInput
	case errors.Is(err, ErrUnmappedMethod):
		return ReasonUnmapped
	case errors.Is(err, ErrIncompletePair):
		return ReasonMalformedResponse
	}
	if code, ok := upstream.StatusCode(err); ok && code >= http.StatusBadRequest && code < http.StatusInternalServerError {
		return ReasonRejected
	}
	return ReasonUpstreamFailure
}

package verification

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charlesng35/campusportal/internal/pages"
	"github.com/charlesng35/campusportal/pkg/validator"
)

var (
	// ErrMalformedLink reports a link whose token, method or id cannot be used.
	ErrMalformedLink = errors.New("verification: malformed link")
	// ErrUnmappedMethod reports a (variant, method) pair without a backend endpoint.
	ErrUnmappedMethod = errors.New("verification: method has no endpoint")
)

// Method is the verification step a link performs.
type Method int

const (
	MethodCoParty Method = iota
	MethodMainParty
	MethodPairCheck
)

// ParseMethod maps the query value onto a Method.
func ParseMethod(raw string) (Method, bool) {
	switch raw {
	case "0":
		return MethodCoParty, true
	case "1":
		return MethodMainParty, true
	case "2":
		return MethodPairCheck, true
	default:
		return 0, false
	}
}

func (m Method) String() string {
	switch m {
	case MethodCoParty:
		return "co_party"
	case MethodMainParty:
		return "main_party"
	case MethodPairCheck:
		return "pair_check"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// Variant is the application a link belongs to.
type Variant int

const (
	VariantLocker Variant = iota
	VariantCircleRegister
	VariantCircleUpdate
)

func (v Variant) String() string {
	switch v {
	case VariantLocker:
		return "locker"
	case VariantCircleRegister:
		return "circle_register"
	case VariantCircleUpdate:
		return "circle_update"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// Allows reports whether m is part of the variant's method set.
func (v Variant) Allows(m Method) bool {
	switch v {
	case VariantLocker:
		return m == MethodCoParty || m == MethodMainParty || m == MethodPairCheck
	case VariantCircleRegister, VariantCircleUpdate:
		return m == MethodCoParty || m == MethodMainParty
	default:
		return false
	}
}

// ErrorPage is where every failed link of the variant ends up.
func (v Variant) ErrorPage() string {
	if v == VariantLocker {
		return pages.LockerNoPage
	}
	return pages.CircleNoPage
}

// CompletionPage is the landing page after a successful party verification.
func (v Variant) CompletionPage() string {
	switch v {
	case VariantCircleRegister:
		return pages.CircleRegisterComplete
	case VariantCircleUpdate:
		return pages.CircleUpdateComplete
	default:
		return pages.LockerAuthComplete
	}
}

// Link is a parsed verification link.
type Link struct {
	Variant Variant
	Method  Method
	Token   string
	// ID is the organization id, set only for circle updates.
	ID string
}

// ParseLink validates the query of a verification link. Any rejection happens
// before a backend call is made.
func ParseLink(variant Variant, query url.Values) (Link, error) {
	token := strings.TrimSpace(query.Get("token"))
	if !validator.IsVerificationToken(token) {
		return Link{}, fmt.Errorf("%w: token", ErrMalformedLink)
	}

	method, ok := ParseMethod(strings.TrimSpace(query.Get("method")))
	if !ok || !variant.Allows(method) {
		return Link{}, fmt.Errorf("%w: method %q", ErrMalformedLink, query.Get("method"))
	}

	link := Link{Variant: variant, Method: method, Token: token}
	if variant == VariantCircleUpdate {
		id := strings.TrimSpace(query.Get("id"))
		if !validator.IsOrganizationID(id) {
			return Link{}, fmt.Errorf("%w: id", ErrMalformedLink)
		}
		link.ID = id
	}
	return link, nil
}

func (l Link) key() string {
	return l.Variant.String() + "|" + l.Method.String() + "|" + l.Token + "|" + l.ID
}

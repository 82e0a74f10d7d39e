// Package application handles the locker and circle application forms. The
// backend mints the verification tokens and emails both parties on success.
package application

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/campusportal/internal/upstream"
	apperrors "github.com/charlesng35/campusportal/pkg/errors"
	"github.com/charlesng35/campusportal/pkg/logger"
	"github.com/charlesng35/campusportal/pkg/validator"
)

// StatusPageSize is the number of circles per status page.
const StatusPageSize = 5

// ErrSameParty rejects applications where both parties are the same student.
var ErrSameParty = apperrors.New("application.same_party", "The main user and co-user must be different students", http.StatusBadRequest)

// Backend is the subset of the upstream client the forms call.
type Backend interface {
	SubmitLockerApplication(ctx context.Context, pair upstream.PartyPair) error
	SubmitCircleRegistration(ctx context.Context, reg upstream.CircleRegistration) error
	SubmitCircleUpdate(ctx context.Context, upd upstream.CircleUpdate) error
	CircleStatuses(ctx context.Context) ([]upstream.OrganizationStatus, error)
}

// CircleUpdateForm is the circle update submission including the notice confirmation.
type CircleUpdateForm struct {
	upstream.CircleUpdate
	Acknowledged bool `json:"acknowledged"`
}

// StatusQuery selects a page of the circle status list.
type StatusQuery struct {
	Name string
	Page int
}

// StatusPage is one page of the circle status list.
type StatusPage struct {
	Items    []upstream.OrganizationStatus `json:"items"`
	Page     int                           `json:"page"`
	PageSize int                           `json:"pageSize"`
	Total    int                           `json:"total"`
}

// Service validates and forwards application forms.
type Service struct {
	backend Backend
	log     *zap.Logger
}

// NewService constructs a Service.
func NewService(backend Backend) (*Service, error) {
	if backend == nil {
		return nil, errors.New("application: backend is required")
	}
	return &Service{backend: backend, log: logger.WithModule("application")}, nil
}

// SubmitLocker starts a locker application for pair.
func (s *Service) SubmitLocker(ctx context.Context, pair upstream.PartyPair) error {
	pair.MainUser = normalisePerson(pair.MainUser)
	pair.CoUser = normalisePerson(pair.CoUser)
	if err := validator.ValidateStruct(pair); err != nil {
		return err
	}
	if pair.MainUser.StudentID == pair.CoUser.StudentID {
		return ErrSameParty
	}
	return s.forward("locker", s.backend.SubmitLockerApplication(ctx, pair))
}

// SubmitCircleRegistration starts a new circle application.
func (s *Service) SubmitCircleRegistration(ctx context.Context, reg upstream.CircleRegistration) error {
	reg.MainUser = normaliseRepresentative(reg.MainUser)
	reg.CoUser = normaliseRepresentative(reg.CoUser)
	if err := validator.ValidateStruct(reg); err != nil {
		return err
	}
	if reg.MainUser.StudentID == reg.CoUser.StudentID {
		return ErrSameParty
	}
	return s.forward("circle_register", s.backend.SubmitCircleRegistration(ctx, reg))
}

// SubmitCircleUpdate starts a representative change. The notice must be acknowledged.
func (s *Service) SubmitCircleUpdate(ctx context.Context, form CircleUpdateForm) error {
	if !form.Acknowledged {
		return apperrors.ErrAcknowledgementRequired
	}
	upd := form.CircleUpdate
	upd.OrganizationID = strings.TrimSpace(upd.OrganizationID)
	upd.MainUser = normaliseRepresentative(upd.MainUser)
	upd.CoUser = normaliseRepresentative(upd.CoUser)
	if err := validator.ValidateStruct(upd); err != nil {
		return err
	}
	if upd.MainUser.StudentID == upd.CoUser.StudentID {
		return ErrSameParty
	}
	return s.forward("circle_update", s.backend.SubmitCircleUpdate(ctx, upd))
}

// Statuses returns one page of circles whose name contains q.Name.
func (s *Service) Statuses(ctx context.Context, q StatusQuery) (StatusPage, error) {
	all, err := s.backend.CircleStatuses(ctx)
	if err != nil {
		s.log.Warn("circle statuses unavailable", zap.Error(err))
		return StatusPage{}, apperrors.ErrUpstreamUnavailable.WithInternal(err)
	}

	needle := strings.ToLower(strings.TrimSpace(q.Name))
	filtered := make([]upstream.OrganizationStatus, 0, len(all))
	for _, status := range all {
		if needle == "" || strings.Contains(strings.ToLower(status.OrganizationName), needle) {
			filtered = append(filtered, status)
		}
	}

	page := q.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * StatusPageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + StatusPageSize
	if end > len(filtered) {
		end = len(filtered)
	}

	return StatusPage{
		Items:    filtered[start:end],
		Page:     page,
		PageSize: StatusPageSize,
		Total:    len(filtered),
	}, nil
}

func (s *Service) forward(kind string, err error) error {
	if err == nil {
		return nil
	}
	s.log.Warn("application submit failed", zap.String("kind", kind), zap.Error(err))
	if code, ok := upstream.StatusCode(err); ok && code >= http.StatusBadRequest && code < http.StatusInternalServerError {
		return apperrors.NewBadRequest("The application was rejected, please check the entered information")
	}
	return apperrors.ErrUpstreamUnavailable.WithInternal(err)
}

func normalisePerson(p upstream.Person) upstream.Person {
	p.StudentID = strings.ToUpper(strings.TrimSpace(p.StudentID))
	p.FamilyName = strings.TrimSpace(p.FamilyName)
	p.GivenName = strings.TrimSpace(p.GivenName)
	return p
}

func normaliseRepresentative(r upstream.Representative) upstream.Representative {
	r.StudentID = strings.ToUpper(strings.TrimSpace(r.StudentID))
	r.FamilyName = strings.TrimSpace(r.FamilyName)
	r.GivenName = strings.TrimSpace(r.GivenName)
	r.Email = strings.TrimSpace(r.Email)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	return r
}

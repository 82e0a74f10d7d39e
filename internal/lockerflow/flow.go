// Package lockerflow carries a verified pair from the pair-check link through
// locker selection to the final commit.
package lockerflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charlesng35/campusportal/internal/cache"
	"github.com/charlesng35/campusportal/internal/upstream"
	apperrors "github.com/charlesng35/campusportal/pkg/errors"
	"github.com/charlesng35/campusportal/pkg/logger"
	"github.com/charlesng35/campusportal/pkg/metrics"
)

const (
	// DefaultCooldown is the minimum gap between two accepted commit attempts of a flow.
	DefaultCooldown = 20 * time.Second
	// DefaultTTL bounds how long a flow survives without being completed.
	DefaultTTL = 30 * time.Minute

	flowKeyPrefix     = "lockerflow:flow:"
	cooldownKeyPrefix = "lockerflow:cooldown:"
)

var (
	// ErrFlowNotFound is returned for unknown, expired or malformed flow ids.
	ErrFlowNotFound = errors.New("lockerflow: flow not found")
	// ErrPreconditionMissing is returned when a step is entered without the data it needs.
	ErrPreconditionMissing = errors.New("lockerflow: step precondition missing")
)

// Step names a screen of the flow.
type Step int

const (
	StepSelect Step = iota
	StepConfirm
)

// Flow is the state threaded between the selection and confirmation steps.
type Flow struct {
	ID           string             `json:"id"`
	Pair         upstream.PartyPair `json:"pair"`
	AuthID       string             `json:"authId"`
	LockerID     string             `json:"lockerId,omitempty"`
	Floor        *int               `json:"floor,omitempty"`
	Acknowledged bool               `json:"acknowledged"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// ready reports whether f carries what step needs.
func (f *Flow) ready(step Step) bool {
	if !f.Pair.Complete() || f.AuthID == "" {
		return false
	}
	if step == StepConfirm {
		return f.LockerID != ""
	}
	return true
}

// LockerOption is one locker as shown on the selection screen.
type LockerOption struct {
	upstream.Locker
	Selectable bool `json:"selectable"`
}

// Result is what the completion page displays.
type Result struct {
	LockerID  string `json:"lockerId"`
	StudentID string `json:"studentId"`
}

// CooldownError rejects a commit attempt made too soon after the previous one.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("lockerflow: retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *CooldownError) Unwrap() error {
	return apperrors.ErrCooldown
}

// Backend is the subset of the upstream client the flow calls.
type Backend interface {
	LockerAvailability(ctx context.Context, floor *int) ([]upstream.Locker, error)
	RegisterLocker(ctx context.Context, a upstream.LockerAssignment) error
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the clock used for flow timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides flow id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCooldown overrides DefaultCooldown.
func WithCooldown(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

// Service runs locker flows. Flow state lives in the cache store so any
// portal instance can serve any step.
type Service struct {
	store    cache.Store
	backend  Backend
	ttl      time.Duration
	cooldown time.Duration
	now      func() time.Time
	newID    func() string
	log      *zap.Logger
}

// NewService constructs a Service.
func NewService(store cache.Store, backend Backend, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("lockerflow: cache store is required")
	}
	if backend == nil {
		return nil, errors.New("lockerflow: backend is required")
	}

	svc := &Service{
		store:    store,
		backend:  backend,
		ttl:      DefaultTTL,
		cooldown: DefaultCooldown,
		now:      time.Now,
		newID:    uuid.NewString,
		log:      logger.WithModule("lockerflow"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Begin stores a freshly verified pair and returns the new flow.
func (s *Service) Begin(ctx context.Context, pair upstream.PartyPair, authID string) (*Flow, error) {
	flow := &Flow{
		ID:        s.newID(),
		Pair:      pair,
		AuthID:    strings.TrimSpace(authID),
		CreatedAt: s.now().UTC(),
	}
	if !flow.ready(StepSelect) {
		return nil, ErrPreconditionMissing
	}
	if err := s.save(ctx, flow); err != nil {
		return nil, err
	}
	return flow, nil
}

// Load fetches a flow and checks that it can enter step.
func (s *Service) Load(ctx context.Context, id string, step Step) (*Flow, error) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrFlowNotFound
	}

	data, found, err := s.store.Get(ctx, flowKeyPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("lockerflow: load flow: %w", err)
	}
	if !found {
		return nil, ErrFlowNotFound
	}

	var flow Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("lockerflow: decode flow: %w", err)
	}
	if flow.ID != id || !flow.ready(step) {
		return nil, ErrPreconditionMissing
	}
	return &flow, nil
}

// Lockers lists lockers for the selection screen. Only vacant lockers are
// selectable. A failed listing yields no lockers.
func (s *Service) Lockers(ctx context.Context, floor *int) []LockerOption {
	lockers, err := s.backend.LockerAvailability(ctx, floor)
	if err != nil {
		s.log.Warn("locker availability unavailable", zap.Error(err))
		return []LockerOption{}
	}

	options := make([]LockerOption, 0, len(lockers))
	for _, l := range lockers {
		options = append(options, LockerOption{Locker: l, Selectable: l.Status == upstream.LockerVacant})
	}
	return options
}

// Select stages lockerID on the flow. The locker must currently be listed as vacant.
func (s *Service) Select(ctx context.Context, id, lockerID string, floor *int) (*Flow, error) {
	flow, err := s.Load(ctx, id, StepSelect)
	if err != nil {
		return nil, err
	}

	lockerID = strings.TrimSpace(lockerID)
	if !s.selectable(ctx, lockerID, floor) {
		return nil, apperrors.ErrLockerNotSelectable
	}

	flow.LockerID = lockerID
	flow.Floor = floor
	flow.Acknowledged = false
	if err := s.save(ctx, flow); err != nil {
		return nil, err
	}
	return flow, nil
}

func (s *Service) selectable(ctx context.Context, lockerID string, floor *int) bool {
	if lockerID == "" {
		return false
	}
	for _, option := range s.Lockers(ctx, floor) {
		if option.LockerID == lockerID {
			return option.Selectable
		}
	}
	return false
}

// Confirm commits the staged locker. Acknowledgement and cooldown are checked
// before the backend is called. A failed commit keeps the flow for a retry.
func (s *Service) Confirm(ctx context.Context, id string, acknowledged bool) (Result, error) {
	flow, err := s.Load(ctx, id, StepConfirm)
	if err != nil {
		return Result{}, err
	}

	if !acknowledged {
		metrics.LockerCommits.WithLabelValues("unacknowledged").Inc()
		return Result{}, apperrors.ErrAcknowledgementRequired
	}

	count, remaining, err := s.store.IncrementWithTTL(ctx, cooldownKeyPrefix+flow.ID, s.cooldown)
	if err != nil {
		return Result{}, fmt.Errorf("lockerflow: cooldown: %w", err)
	}
	if count > 1 {
		metrics.LockerCommits.WithLabelValues("cooldown").Inc()
		return Result{}, &CooldownError{RetryAfter: remaining}
	}

	flow.Acknowledged = true
	if err := s.save(ctx, flow); err != nil {
		return Result{}, err
	}

	assignment := upstream.LockerAssignment{
		StudentID: flow.Pair.MainUser.StudentID,
		LockerID:  flow.LockerID,
		AuthID:    flow.AuthID,
	}
	if err := s.backend.RegisterLocker(ctx, assignment); err != nil {
		metrics.LockerCommits.WithLabelValues("failure").Inc()
		s.log.Warn("locker commit failed",
			zap.String("flow", flow.ID),
			zap.String("locker", flow.LockerID),
			zap.Error(err),
		)
		return Result{}, apperrors.ErrCommitFailed.WithInternal(err)
	}

	metrics.LockerCommits.WithLabelValues("success").Inc()
	if err := s.store.Delete(ctx, flowKeyPrefix+flow.ID); err != nil {
		s.log.Debug("flow cleanup failed", zap.String("flow", flow.ID), zap.Error(err))
	}
	return Result{LockerID: flow.LockerID, StudentID: assignment.StudentID}, nil
}

func (s *Service) save(ctx context.Context, flow *Flow) error {
	payload, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("lockerflow: encode flow: %w", err)
	}
	if err := s.store.Set(ctx, flowKeyPrefix+flow.ID, payload, s.ttl); err != nil {
		return fmt.Errorf("lockerflow: save flow: %w", err)
	}
	return nil
}

// ParseFloor reads an optional floor query value.
func ParseFloor(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	floor, err := strconv.Atoi(raw)
	if err != nil || floor < 0 {
		return nil, fmt.Errorf("lockerflow: invalid floor %q", raw)
	}
	return &floor, nil
}

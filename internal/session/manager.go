// Package session keeps the admin login state. The browser holds a signed
// marker cookie; the backend credential stays server side, sealed, in the
// cache store.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charlesng35/campusportal/internal/cache"
	"github.com/charlesng35/campusportal/internal/upstream"
	"github.com/charlesng35/campusportal/pkg/crypto"
	apperrors "github.com/charlesng35/campusportal/pkg/errors"
	"github.com/charlesng35/campusportal/pkg/logger"
	"github.com/charlesng35/campusportal/pkg/metrics"
	"github.com/charlesng35/campusportal/pkg/validator"
)

const (
	// CookieName is the cookie carrying the session marker.
	CookieName = "portal_session"

	DefaultTTL             = 8 * time.Hour
	DefaultRecheckInterval = 5 * time.Minute

	recordKeyPrefix  = "session:record:"
	logoutTimeout    = 5 * time.Second
	credentialSealer = "campusportal/session-credential"
)

// ErrNoSession is returned when a marker does not resolve to a live session.
var ErrNoSession = errors.New("session: not logged in")

// Backend is the subset of the upstream client sessions need.
type Backend interface {
	Login(ctx context.Context, creds upstream.Credentials) (upstream.Credential, error)
	CheckAuth(ctx context.Context, cred upstream.Credential) error
	Logout(ctx context.Context, cred upstream.Credential) error
}

// Config configures a Manager.
type Config struct {
	Secret          string
	Issuer          string
	TTL             time.Duration
	RecheckInterval time.Duration
	Clock           func() time.Time
}

// Session is the read-only view handed to guarded handlers.
type Session struct {
	ID         string
	Username   string
	Credential upstream.Credential
	ExpiresAt  time.Time
}

type record struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	SealedCredential string    `json:"credential"`
	CreatedAt        time.Time `json:"createdAt"`
	CheckedAt        time.Time `json:"checkedAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
}

// Manager implements login, lookup and logout. Create one at startup and
// pass it to whatever needs it.
type Manager struct {
	backend Backend
	store   cache.Store
	marker  *markerService
	sealer  *crypto.Sealer
	ttl     time.Duration
	recheck time.Duration
	now     func() time.Time
	log     *zap.Logger
}

// NewManager constructs a Manager.
func NewManager(store cache.Store, backend Backend, cfg Config) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session: cache store is required")
	}
	if backend == nil {
		return nil, errors.New("session: backend is required")
	}
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("session: secret must be provided")
	}

	sealer, err := crypto.NewSealer([]byte(cfg.Secret), credentialSealer)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	recheck := cfg.RecheckInterval
	if recheck <= 0 {
		recheck = DefaultRecheckInterval
	}
	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &Manager{
		backend: backend,
		store:   store,
		marker:  &markerService{secret: []byte(cfg.Secret), issuer: cfg.Issuer, ttl: ttl, now: now},
		sealer:  sealer,
		ttl:     ttl,
		recheck: recheck,
		now:     now,
		log:     logger.WithModule("session"),
	}, nil
}

// Login authenticates against the backend and returns the marker to store in
// the session cookie.
func (m *Manager) Login(ctx context.Context, creds upstream.Credentials) (string, *Session, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if err := validator.ValidateStruct(creds); err != nil {
		metrics.AuthAttempts.WithLabelValues("invalid").Inc()
		return "", nil, apperrors.ErrInvalidCredentials.WithInternal(err)
	}

	cred, err := m.backend.Login(ctx, creds)
	if err != nil {
		if code, ok := upstream.StatusCode(err); ok && (code == http.StatusUnauthorized || code == http.StatusBadRequest) {
			metrics.AuthAttempts.WithLabelValues("invalid").Inc()
			return "", nil, apperrors.ErrInvalidCredentials.WithInternal(err)
		}
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		m.log.Warn("login failed", zap.String("username", creds.Username), zap.Error(err))
		return "", nil, apperrors.ErrLoginFailed.WithInternal(err)
	}

	sealed, err := m.sealer.Seal([]byte(cred))
	if err != nil {
		return "", nil, fmt.Errorf("session: seal credential: %w", err)
	}

	now := m.now().UTC()
	rec := &record{
		ID:               uuid.NewString(),
		Username:         creds.Username,
		SealedCredential: sealed,
		CreatedAt:        now,
		CheckedAt:        now,
		ExpiresAt:        now.Add(m.ttl),
	}
	if err := m.save(ctx, rec); err != nil {
		return "", nil, err
	}

	marker, _, err := m.marker.issue(rec.ID, rec.Username)
	if err != nil {
		_ = m.store.Delete(ctx, recordKeyPrefix+rec.ID)
		return "", nil, err
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	metrics.ActiveSessions.Inc()
	m.log.Info("admin logged in", zap.String("username", rec.Username), zap.String("session", rec.ID))
	return marker, &Session{ID: rec.ID, Username: rec.Username, Credential: cred, ExpiresAt: rec.ExpiresAt}, nil
}

// Resolve returns the live session behind marker. An empty or invalid marker
// resolves without any backend call. When the last backend check is older
// than the recheck interval the credential is checked again; a 401 ends the
// session.
func (m *Manager) Resolve(ctx context.Context, marker string) (*Session, error) {
	rec, cred, err := m.load(ctx, marker)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	if now.Sub(rec.CheckedAt) >= m.recheck {
		if err := m.backend.CheckAuth(ctx, cred); err != nil {
			if code, ok := upstream.StatusCode(err); ok && code == http.StatusUnauthorized {
				m.Invalidate(ctx, rec.ID)
				return nil, ErrNoSession
			}
			// backend unreachable: keep the session and try again next time
			m.log.Debug("session recheck failed", zap.String("session", rec.ID), zap.Error(err))
		} else {
			rec.CheckedAt = now
			if err := m.save(ctx, rec); err != nil {
				m.log.Debug("session recheck not persisted", zap.String("session", rec.ID), zap.Error(err))
			}
		}
	}

	return &Session{ID: rec.ID, Username: rec.Username, Credential: cred, ExpiresAt: rec.ExpiresAt}, nil
}

// LoggedIn reports whether marker resolves to a live session.
func (m *Manager) LoggedIn(ctx context.Context, marker string) bool {
	_, err := m.Resolve(ctx, marker)
	return err == nil
}

// Invalidate ends a session locally, for instance after the backend answered 401.
func (m *Manager) Invalidate(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	if err := m.store.Delete(ctx, recordKeyPrefix+sessionID); err != nil {
		m.log.Warn("session invalidation failed", zap.String("session", sessionID), zap.Error(err))
		return
	}
	metrics.ActiveSessions.Dec()
}

// Logout ends the session behind marker. The backend is notified on a best
// effort basis; the local session is gone either way.
func (m *Manager) Logout(ctx context.Context, marker string) {
	rec, cred, err := m.load(ctx, marker)
	if err != nil {
		return
	}
	m.Invalidate(ctx, rec.ID)

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
	defer cancel()
	if err := m.backend.Logout(notifyCtx, cred); err != nil {
		m.log.Warn("backend logout notification failed", zap.String("session", rec.ID), zap.Error(err))
	}
	m.log.Info("admin logged out", zap.String("username", rec.Username), zap.String("session", rec.ID))
}

func (m *Manager) load(ctx context.Context, marker string) (*record, upstream.Credential, error) {
	claims, err := m.marker.parse(strings.TrimSpace(marker))
	if err != nil {
		return nil, "", ErrNoSession
	}

	data, found, err := m.store.Get(ctx, recordKeyPrefix+claims.SessionID)
	if err != nil {
		return nil, "", fmt.Errorf("session: load record: %w", err)
	}
	if !found {
		return nil, "", ErrNoSession
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil || rec.ID != claims.SessionID {
		return nil, "", ErrNoSession
	}

	plain, err := m.sealer.Open(rec.SealedCredential)
	if err != nil {
		return nil, "", ErrNoSession
	}
	return &rec, upstream.Credential(plain), nil
}

func (m *Manager) save(ctx context.Context, rec *record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: encode record: %w", err)
	}
	ttl := rec.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := m.store.Set(ctx, recordKeyPrefix+rec.ID, payload, ttl); err != nil {
		return fmt.Errorf("session: save record: %w", err)
	}
	return nil
}

// Package admin implements the back office actions available to a logged in
// administrator.
package admin

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/campusportal/internal/audit"
	"github.com/charlesng35/campusportal/internal/models"
	"github.com/charlesng35/campusportal/internal/session"
	"github.com/charlesng35/campusportal/internal/upstream"
	apperrors "github.com/charlesng35/campusportal/pkg/errors"
	"github.com/charlesng35/campusportal/pkg/logger"
	"github.com/charlesng35/campusportal/pkg/metrics"
)

// Audit actions.
const (
	ActionLockerReset  = "locker.reset"
	ActionDownload     = "backup.download"
	ActionSetWindow    = "circle.access.update"
	ActionLockerSearch = "locker.search"
	ActionCircleList   = "circle.list"
)

const defaultBackupName = "backup.zip"

// Backend is the subset of the upstream client the admin actions call.
type Backend interface {
	ResetLockers(ctx context.Context, cred upstream.Credential, password string) error
	DownloadBackup(ctx context.Context, cred upstream.Credential, password string) (upstream.Backup, error)
	AccessWindow(ctx context.Context) (upstream.AccessWindow, error)
	SetAccessWindow(ctx context.Context, cred upstream.Credential, w upstream.AccessWindow) error
	SearchLockerUsers(ctx context.Context, cred upstream.Credential, q upstream.LockerUserQuery) ([]upstream.LockerUser, error)
	CircleList(ctx context.Context, cred upstream.Credential) ([]upstream.CircleDetail, error)
}

// Auditor records admin actions.
type Auditor interface {
	Log(ctx context.Context, entry audit.Entry) error
}

// Invalidator ends sessions the backend no longer accepts.
type Invalidator interface {
	Invalidate(ctx context.Context, sessionID string)
}

// Actor is the administrator performing an action.
type Actor struct {
	Session   *session.Session
	IPAddress string
	UserAgent string
}

// WindowInput is the access window form. Both bounds are RFC 3339.
type WindowInput struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Service runs admin actions.
type Service struct {
	backend  Backend
	auditor  Auditor
	sessions Invalidator
	log      *zap.Logger
}

// NewService constructs a Service. auditor and sessions may be nil.
func NewService(backend Backend, auditor Auditor, sessions Invalidator) (*Service, error) {
	if backend == nil {
		return nil, errors.New("admin: backend is required")
	}
	return &Service{
		backend:  backend,
		auditor:  auditor,
		sessions: sessions,
		log:      logger.WithModule("admin"),
	}, nil
}

// Reset clears every locker assignment after the backend re-checks password.
func (s *Service) Reset(ctx context.Context, actor Actor, password string) error {
	if strings.TrimSpace(password) == "" {
		return apperrors.ErrPasswordRequired
	}

	err := s.backend.ResetLockers(ctx, credential(actor), password)
	return s.finish(ctx, actor, ActionLockerReset, nil, ClassifyActionError(err), err)
}

// Download fetches the backup archive after the backend re-checks password.
func (s *Service) Download(ctx context.Context, actor Actor, password string) (upstream.Backup, error) {
	if strings.TrimSpace(password) == "" {
		return upstream.Backup{}, apperrors.ErrPasswordRequired
	}

	backup, err := s.backend.DownloadBackup(ctx, credential(actor), password)
	if appErr := s.finish(ctx, actor, ActionDownload, map[string]any{"bytes": len(backup.Data)}, ClassifyActionError(err), err); appErr != nil {
		return upstream.Backup{}, appErr
	}

	backup.Filename = sanitizeFilename(backup.Filename)
	return backup, nil
}

// Window returns the current circle access window.
func (s *Service) Window(ctx context.Context) (upstream.AccessWindow, error) {
	w, err := s.backend.AccessWindow(ctx)
	if err != nil {
		return upstream.AccessWindow{}, apperrors.ErrAdminActionFailed.WithInternal(err)
	}
	return w, nil
}

// SetWindow validates and stores a new circle access window.
func (s *Service) SetWindow(ctx context.Context, actor Actor, input WindowInput) (upstream.AccessWindow, error) {
	window, err := ParseWindow(input)
	if err != nil {
		return upstream.AccessWindow{}, err
	}

	err = s.backend.SetAccessWindow(ctx, credential(actor), window)
	meta := map[string]any{"start": window.Start, "end": window.End}
	if appErr := s.finish(ctx, actor, ActionSetWindow, meta, classifyDataError(err), err); appErr != nil {
		return upstream.AccessWindow{}, appErr
	}
	return window, nil
}

// SearchLockers looks up locker assignments.
func (s *Service) SearchLockers(ctx context.Context, actor Actor, q upstream.LockerUserQuery) ([]upstream.LockerUser, error) {
	if q.Year <= 0 {
		return nil, apperrors.NewBadRequest("year is required")
	}

	users, err := s.backend.SearchLockerUsers(ctx, credential(actor), q)
	meta := map[string]any{"year": q.Year, "results": len(users)}
	if appErr := s.finish(ctx, actor, ActionLockerSearch, meta, classifyDataError(err), err); appErr != nil {
		return nil, appErr
	}
	if users == nil {
		users = []upstream.LockerUser{}
	}
	return users, nil
}

// Circles lists every registered circle.
func (s *Service) Circles(ctx context.Context, actor Actor) ([]upstream.CircleDetail, error) {
	circles, err := s.backend.CircleList(ctx, credential(actor))
	if appErr := s.finish(ctx, actor, ActionCircleList, map[string]any{"results": len(circles)}, classifyDataError(err), err); appErr != nil {
		return nil, appErr
	}
	if circles == nil {
		circles = []upstream.CircleDetail{}
	}
	return circles, nil
}

// ParseWindow validates a window form.
func ParseWindow(input WindowInput) (upstream.AccessWindow, error) {
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(input.Start))
	if err != nil {
		return upstream.AccessWindow{}, apperrors.NewBadRequest("start must be an RFC 3339 timestamp")
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(input.End))
	if err != nil {
		return upstream.AccessWindow{}, apperrors.NewBadRequest("end must be an RFC 3339 timestamp")
	}
	if !start.Before(end) {
		return upstream.AccessWindow{}, apperrors.ErrInvalidWindow
	}
	return upstream.AccessWindow{Start: start, End: end}, nil
}

// ClassifyActionError maps a password-gated action failure onto the message
// shown to the administrator.
func ClassifyActionError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if code, ok := upstream.StatusCode(err); ok {
		switch code {
		case http.StatusBadRequest:
			return apperrors.ErrWrongPassword.WithInternal(err)
		case http.StatusUnauthorized:
			return apperrors.ErrNotAuthenticated.WithInternal(err)
		}
	}
	return apperrors.ErrAdminActionFailed.WithInternal(err)
}

func classifyDataError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if code, ok := upstream.StatusCode(err); ok {
		switch code {
		case http.StatusBadRequest:
			return apperrors.ErrBadRequest.WithInternal(err)
		case http.StatusUnauthorized:
			return apperrors.ErrNotAuthenticated.WithInternal(err)
		}
	}
	return apperrors.ErrAdminActionFailed.WithInternal(err)
}

// finish records the action, ends the session on a 401 and returns appErr.
func (s *Service) finish(ctx context.Context, actor Actor, action string, meta map[string]any, appErr *apperrors.AppError, cause error) error {
	result := models.AuditResultSuccess
	switch {
	case appErr == nil:
	case errors.Is(appErr, apperrors.ErrWrongPassword), errors.Is(appErr, apperrors.ErrNotAuthenticated):
		result = models.AuditResultDenied
	default:
		result = models.AuditResultFailure
	}
	metrics.AdminActions.WithLabelValues(action, result).Inc()

	if appErr != nil {
		if meta == nil {
			meta = map[string]any{}
		}
		meta["error"] = appErr.Code
		if code, ok := upstream.StatusCode(cause); ok {
			meta["status"] = code
		}
		s.log.Info("admin action rejected",
			zap.String("action", action),
			zap.String("code", appErr.Code),
			zap.Error(cause),
		)
	}

	if appErr != nil && errors.Is(appErr, apperrors.ErrNotAuthenticated) && s.sessions != nil && actor.Session != nil {
		s.sessions.Invalidate(ctx, actor.Session.ID)
	}

	s.record(ctx, actor, action, result, meta)
	if appErr == nil {
		return nil
	}
	return appErr
}

func (s *Service) record(ctx context.Context, actor Actor, action, result string, meta map[string]any) {
	if s.auditor == nil {
		return
	}
	entry := audit.Entry{
		Action:    action,
		Result:    result,
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
		Metadata:  meta,
	}
	if actor.Session != nil {
		entry.Username = actor.Session.Username
		entry.SessionID = actor.Session.ID
	}
	if err := s.auditor.Log(ctx, entry); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func credential(actor Actor) upstream.Credential {
	if actor.Session == nil {
		return ""
	}
	return actor.Session.Credential
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return defaultBackupName
	}
	return name
}

package admin

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/campusportal/internal/audit"
	"github.com/charlesng35/campusportal/internal/models"
	"github.com/charlesng35/campusportal/internal/session"
	"github.com/charlesng35/campusportal/internal/upstream"
	apperrors "github.com/charlesng35/campusportal/pkg/errors"
)

type fakeBackend struct {
	err         error
	backup      upstream.Backup
	window      upstream.AccessWindow
	setWindow   *upstream.AccessWindow
	users       []upstream.LockerUser
	circles     []upstream.CircleDetail
	calls       int
	credentials []upstream.Credential
}

func (f *fakeBackend) ResetLockers(ctx context.Context, cred upstream.Credential, password string) error {
	f.calls++
	f.credentials = append(f.credentials, cred)
	return f.err
}

func (f *fakeBackend) DownloadBackup(ctx context.Context, cred upstream.Credential, password string) (upstream.Backup, error) {
	f.calls++
	if f.err != nil {
		return upstream.Backup{}, f.err
	}
	return f.backup, nil
}

func (f *fakeBackend) AccessWindow(ctx context.Context) (upstream.AccessWindow, error) {
	f.calls++
	return f.window, f.err
}

func (f *fakeBackend) SetAccessWindow(ctx context.Context, cred upstream.Credential, w upstream.AccessWindow) error {
	f.calls++
	f.setWindow = &w
	return f.err
}

func (f *fakeBackend) SearchLockerUsers(ctx context.Context, cred upstream.Credential, q upstream.LockerUserQuery) ([]upstream.LockerUser, error) {
	f.calls++
	return f.users, f.err
}

func (f *fakeBackend) CircleList(ctx context.Context, cred upstream.Credential) ([]upstream.CircleDetail, error) {
	f.calls++
	return f.circles, f.err
}

type recordingAuditor struct {
	entries []audit.Entry
}

func (r *recordingAuditor) Log(ctx context.Context, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

type recordingInvalidator struct {
	ids []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, id string) {
	r.ids = append(r.ids, id)
}

func actor() Actor {
	return Actor{
		Session:   &session.Session{ID: "sess-1", Username: "admin", Credential: "cred-1"},
		IPAddress: "192.0.2.10",
	}
}

func newService(t *testing.T, backend *fakeBackend) (*Service, *recordingAuditor, *recordingInvalidator) {
	t.Helper()
	auditor := &recordingAuditor{}
	invalidator := &recordingInvalidator{}
	svc, err := NewService(backend, auditor, invalidator)
	require.NoError(t, err)
	return svc, auditor, invalidator
}

func TestResetWrongPasswordShowsSpecificMessage(t *testing.T) {
	backend := &fakeBackend{err: &upstream.StatusError{Operation: "locker_reset", StatusCode: http.StatusBadRequest}}
	svc, auditor, invalidator := newService(t, backend)

	err := svc.Reset(context.Background(), actor(), "wrong")

	require.ErrorIs(t, err, apperrors.ErrWrongPassword)
	require.NotErrorIs(t, err, apperrors.ErrAdminActionFailed)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "The password is incorrect", appErr.Message)
	require.Empty(t, invalidator.ids)
	require.Len(t, auditor.entries, 1)
	require.Equal(t, models.AuditResultDenied, auditor.entries[0].Result)
	require.Equal(t, upstream.Credential("cred-1"), backend.credentials[0])
}

func TestResetUnauthenticatedEndsSession(t *testing.T) {
	backend := &fakeBackend{err: &upstream.StatusError{Operation: "locker_reset", StatusCode: http.StatusUnauthorized}}
	svc, _, invalidator := newService(t, backend)

	err := svc.Reset(context.Background(), actor(), "pw")

	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
	require.Equal(t, []string{"sess-1"}, invalidator.ids)
}

func TestResetGenericFailure(t *testing.T) {
	for _, cause := range []error{
		&upstream.StatusError{Operation: "locker_reset", StatusCode: http.StatusInternalServerError},
		errors.New("connection reset"),
	} {
		svc, auditor, _ := newService(t, &fakeBackend{err: cause})
		err := svc.Reset(context.Background(), actor(), "pw")
		require.ErrorIs(t, err, apperrors.ErrAdminActionFailed)
		require.Equal(t, models.AuditResultFailure, auditor.entries[0].Result)
	}
}

func TestPasswordRequiredBeforeAnyCall(t *testing.T) {
	backend := &fakeBackend{}
	svc, auditor, _ := newService(t, backend)

	require.ErrorIs(t, svc.Reset(context.Background(), actor(), "  "), apperrors.ErrPasswordRequired)
	_, err := svc.Download(context.Background(), actor(), "")
	require.ErrorIs(t, err, apperrors.ErrPasswordRequired)
	require.Zero(t, backend.calls)
	require.Empty(t, auditor.entries)
}

func TestDownloadSanitisesFilename(t *testing.T) {
	backend := &fakeBackend{backup: upstream.Backup{Filename: "../../etc/backup-2026.zip", Data: []byte("PK")}}
	svc, auditor, _ := newService(t, backend)

	backup, err := svc.Download(context.Background(), actor(), "pw")
	require.NoError(t, err)
	require.Equal(t, "backup-2026.zip", backup.Filename)
	require.Equal(t, models.AuditResultSuccess, auditor.entries[0].Result)

	backend.backup.Filename = ""
	backup, err = svc.Download(context.Background(), actor(), "pw")
	require.NoError(t, err)
	require.Equal(t, defaultBackupName, backup.Filename)
}

func TestSetWindowValidatesBeforeCalling(t *testing.T) {
	backend := &fakeBackend{}
	svc, _, _ := newService(t, backend)
	ctx := context.Background()

	_, err := svc.SetWindow(ctx, actor(), WindowInput{Start: "tomorrow", End: "2026-05-01T00:00:00Z"})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = svc.SetWindow(ctx, actor(), WindowInput{Start: "2026-05-01T00:00:00Z", End: "2026-04-01T00:00:00Z"})
	require.ErrorIs(t, err, apperrors.ErrInvalidWindow)
	require.Zero(t, backend.calls)

	window, err := svc.SetWindow(ctx, actor(), WindowInput{Start: "2026-04-01T00:00:00+09:00", End: "2026-04-30T23:59:59+09:00"})
	require.NoError(t, err)
	require.NotNil(t, backend.setWindow)
	require.True(t, backend.setWindow.Start.Equal(time.Date(2026, 3, 31, 15, 0, 0, 0, time.UTC)))
	require.Equal(t, window, *backend.setWindow)
}

func TestSearchLockersRequiresYear(t *testing.T) {
	backend := &fakeBackend{}
	svc, _, _ := newService(t, backend)

	_, err := svc.SearchLockers(context.Background(), actor(), upstream.LockerUserQuery{})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
	require.Zero(t, backend.calls)

	users, err := svc.SearchLockers(context.Background(), actor(), upstream.LockerUserQuery{Year: 2026})
	require.NoError(t, err)
	require.NotNil(t, users)
}

func TestCirclesMapsUnauthorized(t *testing.T) {
	backend := &fakeBackend{err: &upstream.StatusError{Operation: "circle_list", StatusCode: http.StatusUnauthorized}}
	svc, _, invalidator := newService(t, backend)

	_, err := svc.Circles(context.Background(), actor())
	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
	require.Equal(t, []string{"sess-1"}, invalidator.ids)
}

func TestClassifyActionError(t *testing.T) {
	require.Nil(t, ClassifyActionError(nil))
	require.ErrorIs(t, ClassifyActionError(&upstream.StatusError{StatusCode: 400}), apperrors.ErrWrongPassword)
	require.ErrorIs(t, ClassifyActionError(&upstream.StatusError{StatusCode: 401}), apperrors.ErrNotAuthenticated)
	require.ErrorIs(t, ClassifyActionError(&upstream.StatusError{StatusCode: 403}), apperrors.ErrAdminActionFailed)
	require.ErrorIs(t, ClassifyActionError(context.DeadlineExceeded), apperrors.ErrAdminActionFailed)
}

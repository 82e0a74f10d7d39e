package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/campusportal/internal/cache"
	"github.com/charlesng35/campusportal/internal/database/testutil"
	"github.com/charlesng35/campusportal/internal/upstream"
	apperrors "github.com/charlesng35/campusportal/pkg/errors"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeBackend struct {
	loginErr   error
	checkErr   error
	logoutErr  error
	logins     int
	checks     int
	logouts    []upstream.Credential
	credential upstream.Credential
}

func (f *fakeBackend) Login(ctx context.Context, creds upstream.Credentials) (upstream.Credential, error) {
	f.logins++
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return f.credential, nil
}

func (f *fakeBackend) CheckAuth(ctx context.Context, cred upstream.Credential) error {
	f.checks++
	return f.checkErr
}

func (f *fakeBackend) Logout(ctx context.Context, cred upstream.Credential) error {
	f.logouts = append(f.logouts, cred)
	return f.logoutErr
}

func newManager(t *testing.T, backend *fakeBackend) (*Manager, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := cache.NewDatabaseStore(db, cache.WithClock(clk.Now))

	mgr, err := NewManager(store, backend, Config{
		Secret:          testSecret,
		Issuer:          "campusportal",
		TTL:             time.Hour,
		RecheckInterval: 5 * time.Minute,
		Clock:           clk.Now,
	})
	require.NoError(t, err)
	return mgr, clk
}

func validCreds() upstream.Credentials {
	return upstream.Credentials{Username: "admin", Password: "secret"}
}

func TestNewManagerValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := cache.NewDatabaseStore(db)

	_, err := NewManager(store, &fakeBackend{}, Config{})
	require.Error(t, err)

	_, err = NewManager(store, &fakeBackend{}, Config{Secret: "short"})
	require.Error(t, err)

	_, err = NewManager(nil, &fakeBackend{}, Config{Secret: testSecret})
	require.Error(t, err)
}

func TestLoginAndResolve(t *testing.T) {
	backend := &fakeBackend{credential: "backend-token"}
	mgr, _ := newManager(t, backend)
	ctx := context.Background()

	marker, sess, err := mgr.Login(ctx, validCreds())
	require.NoError(t, err)
	require.NotEmpty(t, marker)
	require.Equal(t, "admin", sess.Username)

	resolved, err := mgr.Resolve(ctx, marker)
	require.NoError(t, err)
	require.Equal(t, sess.ID, resolved.ID)
	require.Equal(t, upstream.Credential("backend-token"), resolved.Credential)
	require.Zero(t, backend.checks)
	require.True(t, mgr.LoggedIn(ctx, marker))
}

func TestLoginMapsBackendRejections(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusBadRequest} {
		backend := &fakeBackend{loginErr: &upstream.StatusError{Operation: "login", StatusCode: code}}
		mgr, _ := newManager(t, backend)

		_, _, err := mgr.Login(context.Background(), validCreds())
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	}

	backend := &fakeBackend{loginErr: errors.New("dial tcp: refused")}
	mgr, _ := newManager(t, backend)
	_, _, err := mgr.Login(context.Background(), validCreds())
	require.ErrorIs(t, err, apperrors.ErrLoginFailed)
}

func TestLoginRejectsEmptyCredentialsLocally(t *testing.T) {
	backend := &fakeBackend{credential: "x"}
	mgr, _ := newManager(t, backend)

	_, _, err := mgr.Login(context.Background(), upstream.Credentials{Username: " "})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	require.Zero(t, backend.logins)
}

func TestResolveWithoutMarkerMakesNoCall(t *testing.T) {
	backend := &fakeBackend{}
	mgr, _ := newManager(t, backend)

	_, err := mgr.Resolve(context.Background(), "")
	require.ErrorIs(t, err, ErrNoSession)
	_, err = mgr.Resolve(context.Background(), "garbage.marker.value")
	require.ErrorIs(t, err, ErrNoSession)
	require.Zero(t, backend.checks)
}

func TestResolveRechecksAndInvalidatesOn401(t *testing.T) {
	backend := &fakeBackend{credential: "backend-token"}
	mgr, clk := newManager(t, backend)
	ctx := context.Background()

	marker, _, err := mgr.Login(ctx, validCreds())
	require.NoError(t, err)

	clk.Advance(6 * time.Minute)
	_, err = mgr.Resolve(ctx, marker)
	require.NoError(t, err)
	require.Equal(t, 1, backend.checks)

	// checked just now, so no second call
	_, err = mgr.Resolve(ctx, marker)
	require.NoError(t, err)
	require.Equal(t, 1, backend.checks)

	clk.Advance(6 * time.Minute)
	backend.checkErr = &upstream.StatusError{Operation: "check_auth", StatusCode: http.StatusUnauthorized}
	_, err = mgr.Resolve(ctx, marker)
	require.ErrorIs(t, err, ErrNoSession)

	_, err = mgr.Resolve(ctx, marker)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestResolveKeepsSessionWhenBackendUnreachable(t *testing.T) {
	backend := &fakeBackend{credential: "backend-token"}
	mgr, clk := newManager(t, backend)
	ctx := context.Background()

	marker, _, err := mgr.Login(ctx, validCreds())
	require.NoError(t, err)

	clk.Advance(6 * time.Minute)
	backend.checkErr = errors.New("timeout")
	_, err = mgr.Resolve(ctx, marker)
	require.NoError(t, err)
}

func TestResolveExpiredMarker(t *testing.T) {
	mgr, clk := newManager(t, &fakeBackend{credential: "backend-token"})
	ctx := context.Background()

	marker, _, err := mgr.Login(ctx, validCreds())
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	_, err = mgr.Resolve(ctx, marker)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestLogoutSucceedsLocallyWhenBackendFails(t *testing.T) {
	backend := &fakeBackend{credential: "backend-token", logoutErr: errors.New("down")}
	mgr, _ := newManager(t, backend)
	ctx := context.Background()

	marker, _, err := mgr.Login(ctx, validCreds())
	require.NoError(t, err)

	mgr.Logout(ctx, marker)
	require.Equal(t, []upstream.Credential{"backend-token"}, backend.logouts)
	require.False(t, mgr.LoggedIn(ctx, marker))

	// a second logout is a no-op
	mgr.Logout(ctx, marker)
	require.Len(t, backend.logouts, 1)
}

func TestMarkerFromOtherSecretRejected(t *testing.T) {
	mgr, _ := newManager(t, &fakeBackend{credential: "backend-token"})
	other := &markerService{secret: []byte("another-secret-value"), issuer: "campusportal", ttl: time.Hour, now: time.Now}

	marker, _, err := other.issue("7f1b0f2e-9a57-4c4b-8a86-8d7e0f0b9b11", "admin")
	require.NoError(t, err)

	_, err = mgr.Resolve(context.Background(), marker)
	require.ErrorIs(t, err, ErrNoSession)
}

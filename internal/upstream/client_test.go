package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return client
}

func TestNewClientRejectsInvalidBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)

	_, err = NewClient(Config{BaseURL: "not a url"})
	require.Error(t, err)

	client, err := NewClient(Config{BaseURL: "http://backend.local/"})
	require.NoError(t, err)
	require.Equal(t, "http://backend.local", client.BaseURL())
}

func TestLockerAuthCheckDecodesPair(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/locker/auth-check", r.URL.Path)
		require.Equal(t, "AbCdEfGh12345678", r.URL.Query().Get("token"))
		_, _ = w.Write([]byte(`{"data":{"mainUser":{"studentId":"1234567A","familyName":"Yamada","givenName":"Taro"},"coUser":{"studentId":"7654321B","familyName":"Sato","givenName":"Hanako"}},"authId":"auth-1"}`))
	})

	check, err := client.LockerAuthCheck(context.Background(), "AbCdEfGh12345678")
	require.NoError(t, err)
	require.Equal(t, "auth-1", check.AuthID)
	require.True(t, check.Pair.Complete())
	require.Equal(t, "7654321B", check.Pair.CoUser.StudentID)
}

func TestStatusErrorCarriesCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusGone)
	})

	err := client.LockerMainAuth(context.Background(), "AbCdEfGh12345678")
	require.Error(t, err)
	code, ok := StatusCode(err)
	require.True(t, ok)
	require.Equal(t, http.StatusGone, code)
}

func TestCircleAuthSendsIDOnlyWhenPresent(t *testing.T) {
	var seen []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		seen = append(seen, r.URL.Query().Get("id"))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.CircleMainAuth(context.Background(), "AbCdEfGh12345678", ""))
	require.NoError(t, client.CircleCoAuth(context.Background(), "AbCdEfGh12345678", "C00001"))
	require.Equal(t, []string{"", "C00001"}, seen)
}

func TestAccessWindowParsesZonedAndNaiveTimes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"start":"2026-04-01T00:00:00.000Z","end":"2026-04-30T23:59:59"}`))
	})

	window, err := client.AccessWindow(context.Background())
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), window.Start.UTC())
	require.Equal(t, time.Date(2026, 4, 30, 23, 59, 59, 0, time.UTC), window.End.UTC())
	require.True(t, window.Valid())
}

func TestAccessWindowRejectsMalformedTimes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"start":"yesterday","end":""}`))
	})

	_, err := client.AccessWindow(context.Background())
	require.Error(t, err)
}

func TestLoginPrefersCookieCredential(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		require.Equal(t, "admin", creds.Username)
		http.SetCookie(w, &http.Cookie{Name: DefaultCredentialCookie, Value: "from-cookie"})
		_, _ = w.Write([]byte(`{"token":"from-body"}`))
	})

	cred, err := client.Login(context.Background(), Credentials{Username: "admin", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, Credential("from-cookie"), cred)
}

func TestLoginFallsBackToBodyToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token":"from-body"}`))
	})

	cred, err := client.Login(context.Background(), Credentials{Username: "admin", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, Credential("from-body"), cred)
}

func TestLoginWithoutCredential(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := client.Login(context.Background(), Credentials{Username: "admin", Password: "secret"})
	require.ErrorIs(t, err, ErrNoCredential)
}

func TestAdminCallsForwardCredentialCookie(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(DefaultCredentialCookie)
		require.NoError(t, err)
		require.Equal(t, "cred-1", cookie.Value)

		switch r.URL.Path {
		case "/api/admin/locker/user-search/2026":
			require.Equal(t, "3", r.URL.Query().Get("floor"))
			require.Equal(t, "Yamada", r.URL.Query().Get("familyname"))
			require.Empty(t, r.URL.Query().Get("givenname"))
			_, _ = w.Write([]byte(`{"data":[{"lockerId":"3001","floor":3,"year":2026}]}`))
		case "/api/admin/download":
			_, _ = w.Write([]byte(`{"filename":"backup.zip","zipData":[80,75,3,4]}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	floor := 3
	users, err := client.SearchLockerUsers(context.Background(), "cred-1", LockerUserQuery{Year: 2026, Floor: &floor, FamilyName: " Yamada "})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "3001", users[0].LockerID)

	backup, err := client.DownloadBackup(context.Background(), "cred-1", "pw")
	require.NoError(t, err)
	require.Equal(t, "backup.zip", backup.Filename)
	require.Equal(t, []byte("PK\x03\x04"), backup.Data)
}

func TestBackupPayloadRejectsOutOfRangeBytes(t *testing.T) {
	_, err := backupPayload{Filename: "x.zip", ZipData: []int{1, 256}}.decode()
	require.Error(t, err)
}

func TestAccessWindowContainsIsInclusive(t *testing.T) {
	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	w := AccessWindow{Start: start, End: end}

	require.True(t, w.Contains(start))
	require.True(t, w.Contains(end))
	require.False(t, w.Contains(start.Add(-time.Nanosecond)))
	require.False(t, w.Contains(end.Add(time.Nanosecond)))
}

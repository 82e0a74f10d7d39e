package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Login exchanges admin credentials for a backend credential. The backend sets
// it as a cookie; a JSON body {"token": "..."} is accepted as a fallback.
func (c *Client) Login(ctx context.Context, creds Credentials) (Credential, error) {
	var body struct {
		Token string `json:"token"`
	}
	resp, err := c.do(ctx, call{
		operation: "login",
		method:    http.MethodPost,
		path:      "/api/login",
		body:      creds,
		out:       &body,
	})
	if err != nil {
		return "", err
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == c.cookieName && cookie.Value != "" {
			return Credential(cookie.Value), nil
		}
	}
	if body.Token != "" {
		return Credential(body.Token), nil
	}
	return "", ErrNoCredential
}

// CheckAuth asks the backend whether cred is still valid.
func (c *Client) CheckAuth(ctx context.Context, cred Credential) error {
	_, err := c.do(ctx, call{
		operation:  "check_auth",
		method:     http.MethodGet,
		path:       "/api/check-auth",
		credential: cred,
	})
	return err
}

// Logout tells the backend the credential is no longer in use.
func (c *Client) Logout(ctx context.Context, cred Credential) error {
	_, err := c.do(ctx, call{
		operation:  "logout",
		method:     http.MethodPost,
		path:       "/api/logout",
		credential: cred,
	})
	return err
}

// ResetLockers clears every locker assignment. password is re-checked by the backend.
func (c *Client) ResetLockers(ctx context.Context, cred Credential, password string) error {
	_, err := c.do(ctx, call{
		operation:  "locker_reset",
		method:     http.MethodPost,
		path:       "/api/admin/locker/reset",
		credential: cred,
		body:       map[string]string{"password": password},
	})
	return err
}

// DownloadBackup fetches the backup archive.
func (c *Client) DownloadBackup(ctx context.Context, cred Credential, password string) (Backup, error) {
	var payload backupPayload
	if _, err := c.do(ctx, call{
		operation:  "download",
		method:     http.MethodPost,
		path:       "/api/admin/download",
		credential: cred,
		body:       map[string]string{"password": password},
		out:        &payload,
	}); err != nil {
		return Backup{}, err
	}
	return payload.decode()
}

// SearchLockerUsers looks up locker assignments of a fiscal year.
func (c *Client) SearchLockerUsers(ctx context.Context, cred Credential, q LockerUserQuery) ([]LockerUser, error) {
	if q.Year <= 0 {
		return nil, fmt.Errorf("upstream: search year must be positive")
	}

	query := url.Values{}
	if q.Floor != nil {
		query.Set("floor", strconv.Itoa(*q.Floor))
	}
	if name := strings.TrimSpace(q.FamilyName); name != "" {
		query.Set("familyname", name)
	}
	if name := strings.TrimSpace(q.GivenName); name != "" {
		query.Set("givenname", name)
	}

	var out struct {
		Data []LockerUser `json:"data"`
	}
	if _, err := c.do(ctx, call{
		operation:  "locker_user_search",
		method:     http.MethodGet,
		path:       "/api/admin/locker/user-search/" + strconv.Itoa(q.Year),
		query:      query,
		credential: cred,
		out:        &out,
	}); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CircleList returns the admin view of every registered circle.
func (c *Client) CircleList(ctx context.Context, cred Credential) ([]CircleDetail, error) {
	var out struct {
		Data []CircleDetail `json:"data"`
	}
	if _, err := c.do(ctx, call{
		operation:  "circle_list",
		method:     http.MethodGet,
		path:       "/api/admin/circle/list",
		credential: cred,
		out:        &out,
	}); err != nil {
		return nil, err
	}
	return out.Data, nil
}

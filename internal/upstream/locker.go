package upstream

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// LockerCoAuth consumes the co-user's verification token.
func (c *Client) LockerCoAuth(ctx context.Context, token string) error {
	_, err := c.do(ctx, call{
		operation: "locker_co_auth",
		method:    http.MethodGet,
		path:      "/api/locker/co-auth",
		query:     url.Values{"token": {token}},
	})
	return err
}

// LockerMainAuth consumes the main user's verification token.
func (c *Client) LockerMainAuth(ctx context.Context, token string) error {
	_, err := c.do(ctx, call{
		operation: "locker_main_auth",
		method:    http.MethodGet,
		path:      "/api/locker/main-auth",
		query:     url.Values{"token": {token}},
	})
	return err
}

// LockerAuthCheck resolves a pair-check token into the verified pair and its auth id.
func (c *Client) LockerAuthCheck(ctx context.Context, token string) (PairCheck, error) {
	var out PairCheck
	_, err := c.do(ctx, call{
		operation: "locker_auth_check",
		method:    http.MethodGet,
		path:      "/api/locker/auth-check",
		query:     url.Values{"token": {token}},
		out:       &out,
	})
	return out, err
}

// LockerAvailability lists lockers, optionally restricted to one floor.
func (c *Client) LockerAvailability(ctx context.Context, floor *int) ([]Locker, error) {
	query := url.Values{}
	if floor != nil {
		query.Set("floor", strconv.Itoa(*floor))
	}

	var out struct {
		Data []Locker `json:"data"`
	}
	if _, err := c.do(ctx, call{
		operation: "locker_availability",
		method:    http.MethodGet,
		path:      "/api/locker/availability",
		query:     query,
		out:       &out,
	}); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// RegisterLocker commits a locker to a verified pair.
func (c *Client) RegisterLocker(ctx context.Context, a LockerAssignment) error {
	type assignment struct {
		StudentID string `json:"studentId"`
		LockerID  string `json:"lockerId"`
	}
	_, err := c.do(ctx, call{
		operation: "locker_register",
		method:    http.MethodPost,
		path:      "/api/locker/locker-register",
		body: struct {
			Data   assignment `json:"data"`
			AuthID string     `json:"authId"`
		}{
			Data:   assignment{StudentID: a.StudentID, LockerID: a.LockerID},
			AuthID: a.AuthID,
		},
	})
	return err
}

// SubmitLockerApplication starts a locker application; the backend emails both parties.
func (c *Client) SubmitLockerApplication(ctx context.Context, pair PartyPair) error {
	_, err := c.do(ctx, call{
		operation: "locker_token_gen",
		method:    http.MethodPost,
		path:      "/api/locker/token-gen",
		body: struct {
			Data PartyPair `json:"data"`
		}{Data: pair},
	})
	return err
}

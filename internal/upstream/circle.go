package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// timestamp layouts accepted for access window bounds; zone-less values are UTC.
var windowLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// CircleCoAuth consumes a co-representative token. id is only sent for updates.
func (c *Client) CircleCoAuth(ctx context.Context, token, id string) error {
	return c.circleAuth(ctx, "circle_co_auth", "/api/circle/co-auth", token, id)
}

// CircleMainAuth consumes a main representative token. id is only sent for updates.
func (c *Client) CircleMainAuth(ctx context.Context, token, id string) error {
	return c.circleAuth(ctx, "circle_main_auth", "/api/circle/main-auth", token, id)
}

func (c *Client) circleAuth(ctx context.Context, operation, path, token, id string) error {
	query := url.Values{"token": {token}}
	if id != "" {
		query.Set("id", id)
	}
	_, err := c.do(ctx, call{
		operation: operation,
		method:    http.MethodPost,
		path:      path,
		query:     query,
	})
	return err
}

// AccessWindow fetches the circle registration window.
func (c *Client) AccessWindow(ctx context.Context) (AccessWindow, error) {
	var raw struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if _, err := c.do(ctx, call{
		operation: "access_window",
		method:    http.MethodGet,
		path:      "/api/circle/access/setting",
		out:       &raw,
	}); err != nil {
		return AccessWindow{}, err
	}

	start, err := parseWindowTime(raw.Start)
	if err != nil {
		return AccessWindow{}, fmt.Errorf("upstream: access window start: %w", err)
	}
	end, err := parseWindowTime(raw.End)
	if err != nil {
		return AccessWindow{}, fmt.Errorf("upstream: access window end: %w", err)
	}
	return AccessWindow{Start: start, End: end}, nil
}

// SetAccessWindow replaces the circle registration window.
func (c *Client) SetAccessWindow(ctx context.Context, cred Credential, w AccessWindow) error {
	_, err := c.do(ctx, call{
		operation:  "set_access_window",
		method:     http.MethodPost,
		path:       "/api/admin/circle/access/setting",
		credential: cred,
		body: map[string]string{
			"start": w.Start.UTC().Format("2006-01-02T15:04:05.000Z"),
			"end":   w.End.UTC().Format("2006-01-02T15:04:05.000Z"),
		},
	})
	return err
}

// SubmitCircleRegistration starts a circle application.
func (c *Client) SubmitCircleRegistration(ctx context.Context, reg CircleRegistration) error {
	_, err := c.do(ctx, call{
		operation: "circle_register_token_gen",
		method:    http.MethodPost,
		path:      "/api/circle/register/token-gen",
		body: struct {
			Data CircleRegistration `json:"data"`
		}{Data: reg},
	})
	return err
}

// SubmitCircleUpdate starts a representative change for an existing circle.
func (c *Client) SubmitCircleUpdate(ctx context.Context, upd CircleUpdate) error {
	_, err := c.do(ctx, call{
		operation: "circle_update_token_gen",
		method:    http.MethodPost,
		path:      "/api/circle/update/token-gen",
		body: struct {
			Data CircleUpdate `json:"data"`
		}{Data: upd},
	})
	return err
}

// CircleStatuses lists the public registration progress of every circle.
func (c *Client) CircleStatuses(ctx context.Context) ([]OrganizationStatus, error) {
	var out struct {
		Data []OrganizationStatus `json:"data"`
	}
	if _, err := c.do(ctx, call{
		operation: "circle_status",
		method:    http.MethodGet,
		path:      "/api/circle/status",
		out:       &out,
	}); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func parseWindowTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	for _, layout := range windowLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed timestamp %q", value)
}

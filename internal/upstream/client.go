package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/campusportal/pkg/logger"
	"github.com/charlesng35/campusportal/pkg/metrics"
)

const (
	// DefaultTimeout bounds every backend call unless configured otherwise.
	DefaultTimeout = 10 * time.Second
	// DefaultCredentialCookie is the cookie the backend issues at login and expects on admin calls.
	DefaultCredentialCookie = "token"

	maxErrorBody = 4 << 10
)

// ErrNoCredential is returned when a successful login carries no credential.
var ErrNoCredential = errors.New("upstream: login response carried no credential")

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Credential is the opaque admin credential issued by the backend.
type Credential string

// Config configures a Client.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	CredentialCookie string
	HTTPClient       HTTPDoer
}

// StatusError reports a non-2xx reply from the backend.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream: %s: unexpected status %d", e.Operation, e.StatusCode)
}

// StatusCode extracts the HTTP status from err when it wraps a StatusError.
func StatusCode(err error) (int, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, true
	}
	return 0, false
}

// Client talks to the facility backend. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	http       HTTPDoer
	timeout    time.Duration
	cookieName string
	log        *zap.Logger
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("upstream: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("upstream: invalid base url %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	doer := cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: timeout}
	}

	cookie := strings.TrimSpace(cfg.CredentialCookie)
	if cookie == "" {
		cookie = DefaultCredentialCookie
	}

	return &Client{
		baseURL:    base,
		http:       doer,
		timeout:    timeout,
		cookieName: cookie,
		log:        logger.WithModule("upstream"),
	}, nil
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

type call struct {
	operation  string
	method     string
	path       string
	query      url.Values
	body       any
	credential Credential
	// out receives the decoded JSON reply when non-nil.
	out any
}

func (c *Client) do(ctx context.Context, cl call) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := *c.baseURL
	target.Path = c.baseURL.Path + cl.path
	if len(cl.query) > 0 {
		target.RawQuery = cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("upstream: %s: encode request: %w", cl.operation, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("upstream: %s: build request: %w", cl.operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.credential != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: string(cl.credential)})
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamLatency.WithLabelValues(cl.operation, "error").Observe(time.Since(start).Seconds())
		c.log.Debug("backend call failed", zap.String("operation", cl.operation), zap.Error(err))
		return nil, fmt.Errorf("upstream: %s: %w", cl.operation, err)
	}
	defer resp.Body.Close()
	metrics.UpstreamLatency.WithLabelValues(cl.operation, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Debug("backend rejected call",
			zap.String("operation", cl.operation),
			zap.Int("status", resp.StatusCode),
		)
		return resp, &StatusError{Operation: cl.operation, StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	if cl.out != nil {
		// an empty body leaves out untouched
		if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil && !errors.Is(err, io.EOF) {
			return resp, fmt.Errorf("upstream: %s: decode response: %w", cl.operation, err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp, nil
}

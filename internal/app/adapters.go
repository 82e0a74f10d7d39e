package app

import (
	"strings"

	"github.com/charlesng35/campusportal/internal/database"
	"github.com/charlesng35/campusportal/internal/lockerflow"
	"github.com/charlesng35/campusportal/internal/session"
	"github.com/charlesng35/campusportal/internal/upstream"
)

// DatabaseSettings picks the host based block matching the driver.
func (c DatabaseConfig) DatabaseSettings() database.Config {
	cfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:   strings.TrimSpace(c.Path),
		DSN:    strings.TrimSpace(c.DSN),
	}

	var auth DBAuthConfig
	switch cfg.Driver {
	case "postgres", "postgresql":
		auth = c.Postgres
	case "mysql":
		auth = c.MySQL
	default:
		return cfg
	}

	cfg.Host = strings.TrimSpace(auth.Host)
	cfg.Port = auth.Port
	cfg.Name = strings.TrimSpace(auth.Database)
	cfg.User = strings.TrimSpace(auth.Username)
	cfg.Password = auth.Password
	return cfg
}

// ClientConfig converts the upstream section into the client configuration.
func (c UpstreamConfig) ClientConfig() upstream.Config {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = upstream.DefaultTimeout
	}
	return upstream.Config{
		BaseURL:          strings.TrimSpace(c.BaseURL),
		Timeout:          timeout,
		CredentialCookie: strings.TrimSpace(c.CredentialCookie),
	}
}

// ManagerConfig converts the session section into the session manager configuration.
func (c SessionConfig) ManagerConfig() session.Config {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	recheck := c.RecheckInterval
	if recheck <= 0 {
		recheck = session.DefaultRecheckInterval
	}
	return session.Config{
		Secret:          c.Secret,
		Issuer:          strings.TrimSpace(c.Issuer),
		TTL:             ttl,
		RecheckInterval: recheck,
	}
}

// Options converts the flow section into locker flow options.
func (c FlowConfig) Options() []lockerflow.Option {
	return []lockerflow.Option{
		lockerflow.WithTTL(c.TTL),
		lockerflow.WithCooldown(c.Cooldown),
	}
}

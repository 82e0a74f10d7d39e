package checks

import (
	"context"
	"time"

	"github.com/charlesng35/campusportal/internal/monitoring"
)

// RedisPinger represents the minimal interface required to probe a redis connection.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// Redis returns a readiness probe for the shared cache. Sessions, locker flows
// and cooldowns live there, so an unreachable Redis is down, not degraded.
// A nil client means the SQL cache is in use and the probe reports up.
func Redis(client RedisPinger) monitoring.Check {
	return monitoring.NewCheck("redis", func(ctx context.Context) monitoring.ProbeResult {
		if client == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "redis disabled"}
		}
		start := time.Now()
		return monitoring.ResultFromError("redis", client.Ping(ctx), time.Since(start))
	})
}

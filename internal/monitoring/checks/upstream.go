package checks

import (
	"context"
	"time"

	"github.com/charlesng35/campusportal/internal/monitoring"
	"github.com/charlesng35/campusportal/internal/upstream"
)

// WindowFetcher is the unauthenticated upstream call used as a reachability probe.
type WindowFetcher interface {
	AccessWindow(ctx context.Context) (upstream.AccessWindow, error)
}

// Upstream probes the facility backend through the public access window
// endpoint. An HTTP error reply proves the backend is reachable, so it only
// degrades readiness; a transport failure takes it down.
func Upstream(client WindowFetcher) monitoring.Check {
	return monitoring.NewCheck("upstream", func(ctx context.Context) monitoring.ProbeResult {
		if client == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "upstream not configured"}
		}

		start := time.Now()
		_, err := client.AccessWindow(ctx)
		if _, ok := upstream.StatusCode(err); ok {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  err.Error(),
				Duration: time.Since(start),
			}
		}
		return monitoring.ResultFromError("upstream", err, time.Since(start))
	})
}

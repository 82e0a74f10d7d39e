package monitoring_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/campusportal/internal/monitoring"
	"github.com/charlesng35/campusportal/internal/monitoring/checks"
	"github.com/charlesng35/campusportal/internal/upstream"
)

func TestHealthManagerEvaluate(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager(time.Second)
	manager.RegisterReadiness(monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("redis", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "connection refused"}
	}))

	report := manager.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "database", report.Checks[0].Component)
	require.Equal(t, "redis", report.Checks[1].Component)
}

func TestHealthManagerRecoversPanicsAndTimesOut(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager(20 * time.Millisecond)
	manager.RegisterLiveness(monitoring.NewCheck("panics", func(context.Context) monitoring.ProbeResult {
		panic("boom")
	}))
	manager.RegisterLiveness(monitoring.NewCheck("slow", func(ctx context.Context) monitoring.ProbeResult {
		<-ctx.Done()
		return monitoring.ResultFromError("slow", ctx.Err(), 0)
	}))

	report := manager.EvaluateLiveness(context.Background())
	require.Equal(t, monitoring.StatusDown, report.Checks[0].Status)
	require.Equal(t, "boom", report.Checks[0].Details)
	require.Equal(t, monitoring.StatusDegraded, report.Checks[1].Status)
}

func TestMergeReportsEmpty(t *testing.T) {
	report := monitoring.MergeReports(monitoring.HealthReport{}, monitoring.HealthReport{})
	require.True(t, report.Success)
	require.Equal(t, monitoring.StatusUp, report.Status)
	require.NotNil(t, report.Checks)
}

func TestMaintenanceCheck(t *testing.T) {
	t.Parallel()

	tracker := monitoring.NewJobTracker()
	check := checks.Maintenance(tracker, 0)
	require.Equal(t, monitoring.StatusUp, check.Run(context.Background()).Status)

	tracker.Record("cache_purge", nil, time.Millisecond)
	tracker.Record("audit_cleanup", errors.New("timeout"), time.Second)
	require.Equal(t, monitoring.StatusDegraded, check.Run(context.Background()).Status)

	tracker.Record("audit_cleanup", errors.New("timeout"), time.Second)
	result := check.Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
	require.Contains(t, result.Details, "audit_cleanup")

	tracker.Record("audit_cleanup", nil, time.Second)
	require.Equal(t, monitoring.StatusUp, check.Run(context.Background()).Status)

	jobs := tracker.Snapshot()
	require.Len(t, jobs, 2)
	require.Equal(t, uint64(3), jobs[0].TotalRuns)
	require.Equal(t, uint64(2), jobs[0].Failures)
}

type windowStub struct{ err error }

func (w windowStub) AccessWindow(context.Context) (upstream.AccessWindow, error) {
	return upstream.AccessWindow{}, w.err
}

func TestUpstreamCheck(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	require.Equal(t, monitoring.StatusUp, checks.Upstream(windowStub{}).Run(ctx).Status)
	require.Equal(t, monitoring.StatusDegraded,
		checks.Upstream(windowStub{err: &upstream.StatusError{StatusCode: http.StatusInternalServerError}}).Run(ctx).Status)
	require.Equal(t, monitoring.StatusDown, checks.Upstream(windowStub{err: errors.New("dial tcp: refused")}).Run(ctx).Status)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestRedisCheck(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	require.Equal(t, monitoring.StatusUp, checks.Redis(nil).Run(ctx).Status)
	require.Equal(t, monitoring.StatusUp, checks.Redis(pinger{}).Run(ctx).Status)
	require.Equal(t, monitoring.StatusDown, checks.Redis(pinger{err: errors.New("refused")}).Run(ctx).Status)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VerificationOutcomes counts resolved verification links by variant and outcome (completed|selection|error).
	VerificationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusportal_verification_outcomes_total",
			Help: "Total number of verification links resolved",
		},
		[]string{"variant", "outcome"},
	)

	// WindowDecisions counts access window guard decisions (accessible|inaccessible).
	WindowDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusportal_access_window_decisions_total",
			Help: "Total number of access window guard evaluations",
		},
		[]string{"result"},
	)

	// LockerCommits counts locker registration attempts (success|failure|cooldown|unacknowledged).
	LockerCommits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusportal_locker_commits_total",
			Help: "Total number of locker registration submissions",
		},
		[]string{"result"},
	)

	// AdminActions counts admin back office actions by action and result.
	AdminActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusportal_admin_actions_total",
			Help: "Total number of admin actions",
		},
		[]string{"action", "result"},
	)

	// AuthAttempts records admin login attempts by result (success|invalid|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusportal_auth_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)

	// ActiveSessions tracks admin sessions created minus sessions ended.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campusportal_active_sessions",
			Help: "Number of active admin sessions",
		},
	)

	// UpstreamLatency measures calls to the facility backend.
	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campusportal_upstream_latency_seconds",
			Help:    "Facility backend call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campusportal_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// MaintenanceRuns counts background job runs by job and result.
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusportal_maintenance_runs_total",
			Help: "Total number of maintenance job runs",
		},
		[]string{"job", "result"},
	)

	// MaintenanceDuration measures how long each maintenance job takes.
	MaintenanceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campusportal_maintenance_duration_seconds",
			Help:    "Maintenance job duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)
)

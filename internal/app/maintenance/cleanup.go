package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/campusportal/internal/monitoring"
	"github.com/charlesng35/campusportal/pkg/logger"
)

const (
	defaultAuditRetention = 90 * 24 * time.Hour
	defaultCacheSpec      = "@every 15m"
	defaultAuditSpec      = "@daily"

	jobCachePurge   = "cache_purge"
	jobAuditCleanup = "audit_cleanup"
)

// ExpiredPurger removes cache rows past their expiry, such as abandoned
// locker flows and elapsed cooldowns.
type ExpiredPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// AuditPruner removes audit rows older than a retention period.
type AuditPruner interface {
	CleanupOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}

// Cleaner runs the periodic purge jobs.
type Cleaner struct {
	cache     ExpiredPurger
	audit     AuditPruner
	cron      *cron.Cron
	tracker   *monitoring.JobTracker
	log       *zap.Logger
	retention time.Duration

	cacheSchedule string
	auditSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithTracker records every job run so the readiness probe can report stale or failing jobs.
func WithTracker(tracker *monitoring.JobTracker) Option {
	return func(cleaner *Cleaner) {
		cleaner.tracker = tracker
	}
}

// WithAuditRetention adjusts how long audit logs are kept.
func WithAuditRetention(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.retention = d
		}
	}
}

// WithCacheSchedule overrides the cron specification for the cache purge.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner. A nil dependency skips its job; pass a nil
// purger when the cache lives in Redis, which expires keys on its own.
func NewCleaner(cache ExpiredPurger, audit AuditPruner, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		cache:         cache,
		audit:         audit,
		retention:     defaultAuditRetention,
		cacheSchedule: defaultCacheSpec,
		auditSchedule: defaultAuditSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the jobs and launches the scheduler when at least one job exists.
func (c *Cleaner) Start() error {
	if c.cache == nil && c.audit == nil {
		return nil
	}

	if c.cache != nil {
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			if _, err := c.purgeCache(context.Background()); err != nil {
				c.log.Warn("cache purge failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.audit != nil {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			if _, err := c.pruneAudit(context.Background()); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured job sequentially.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.cache != nil {
		if _, err := c.purgeCache(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if c.audit != nil {
		if _, err := c.pruneAudit(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (c *Cleaner) purgeCache(ctx context.Context) (int64, error) {
	start := time.Now()
	removed, err := c.cache.DeleteExpired(ctx)
	c.tracker.Record(jobCachePurge, err, time.Since(start))
	if err == nil && removed > 0 {
		c.log.Debug("purged expired cache entries", zap.Int64("count", removed))
	}
	return removed, err
}

func (c *Cleaner) pruneAudit(ctx context.Context) (int64, error) {
	start := time.Now()
	removed, err := c.audit.CleanupOlderThan(ctx, c.retention)
	c.tracker.Record(jobAuditCleanup, err, time.Since(start))
	if err == nil && removed > 0 {
		c.log.Info("pruned audit log", zap.Int64("count", removed), zap.Duration("retention", c.retention))
	}
	return removed, err
}

package maintenance

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petekamm/teamup/internal/models"
	"github.com/petekamm/teamup/internal/services"
	"github.com/petekamm/teamup/pkg/logger"
)

const (
	defaultAuditRetentionDays = 90
	defaultAuditSpec          = "@daily"
	defaultSweepSpec          = "@hourly"
)

// Cleaner coordinates background maintenance: pruning stale audit logs and
// sweeping orphaned team state that a crashed transaction might have left
// behind (the transactional core makes orphans unlikely, not impossible when
// operators poke the database directly).
type Cleaner struct {
	db        *gorm.DB
	audit     *services.AuditService
	cron      *cron.Cron
	log       *zap.Logger
	retention int

	auditSchedule string
	sweepSchedule string
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

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// WithSweepSchedule overrides the cron specification for the orphan sweep.
func WithSweepSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sweepSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. A nil dependency
// results in the corresponding job being skipped.
func NewCleaner(db *gorm.DB, audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:            db,
		audit:         audit,
		retention:     defaultAuditRetentionDays,
		auditSchedule: defaultAuditSpec,
		sweepSchedule: defaultSweepSpec,
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

// Start registers cleanup jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.audit != nil && c.retention > 0 {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			if _, err := c.audit.CleanupOlderThan(context.Background(), c.retention); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.db != nil {
		if _, err := c.cron.AddFunc(c.sweepSchedule, func() {
			if _, err := SweepOrphans(context.Background(), c.db); err != nil {
				c.log.Warn("orphan sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.audit != nil && c.retention > 0 {
		if _, err := c.audit.CleanupOlderThan(ctx, c.retention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.db != nil {
		if _, err := SweepOrphans(ctx, c.db); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// SweepStats captures the number of orphaned records removed.
type SweepStats struct {
	Invites int64
	Teams   int64
}

// SweepOrphans removes invites whose team no longer exists and teams with no
// remaining members. Both states violate the membership invariants and can
// only arise from out-of-band database edits.
func SweepOrphans(ctx context.Context, db *gorm.DB) (SweepStats, error) {
	if db == nil {
		return SweepStats{}, errors.New("sweep orphans: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stats := SweepStats{}

	result := db.WithContext(ctx).
		Where("team_id NOT IN (?)", db.Model(&models.Team{}).Select("id")).
		Delete(&models.Invite{})
	if result.Error != nil {
		return stats, fmt.Errorf("sweep orphans: invites: %w", result.Error)
	}
	stats.Invites = result.RowsAffected

	result = db.WithContext(ctx).
		Where("id NOT IN (?)", db.Model(&models.TeamMember{}).Select("team_id")).
		Delete(&models.Team{})
	if result.Error != nil {
		return stats, fmt.Errorf("sweep orphans: teams: %w", result.Error)
	}
	stats.Teams = result.RowsAffected

	return stats, nil
}

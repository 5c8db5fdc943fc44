package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/bluewud/storefront-backend/pkg/logger"
)

const outboxRetentionDays = 30

// OutboxRetentionJobParams configure the published event purge.
type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRetentionRepo
	Retention  int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob builds the job that purges published outbox rows
// older than the retention window.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      outboxRetentionRepo
	retention int
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeletePublishedBefore(tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}

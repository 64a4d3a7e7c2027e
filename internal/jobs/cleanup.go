package jobs

import (
	"context"
	"log/slog"
	"time"
)

// EventPruner is the part of events.Store the retention job needs.
type EventPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupJob hard-deletes events older than the configured retention.
type CleanupJob struct {
	store     EventPruner
	logger    *slog.Logger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

// NewCleanupJob returns a job that keeps retention worth of events. A zero
// retention disables the job.
func NewCleanupJob(store EventPruner, logger *slog.Logger, retention, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		store:     store,
		logger:    logger,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

func (j *CleanupJob) Name() string { return "event_retention" }

func (j *CleanupJob) Interval() time.Duration {
	if j.retention <= 0 {
		return 0
	}
	return j.interval
}

func (j *CleanupJob) Run(ctx context.Context) error {
	if j.retention <= 0 {
		return nil
	}
	cutoff := j.now().UTC().Add(-j.retention)

	deleted, err := j.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	if deleted > 0 {
		j.logger.Info("Cleaned up old events",
			slog.Int64("deleted_count", deleted),
			slog.Time("cutoff", cutoff))
	} else {
		j.logger.Debug("No old events to clean up", slog.Time("cutoff", cutoff))
	}
	return nil
}

// Package jobs runs sitepulse's periodic maintenance.
package jobs

import (
	"log/slog"
	"time"

	"sitepulse/internal/config"
	"sitepulse/internal/pkg/geoip"
)

// NewJobs builds the scheduler with the retention and GeoLite reload jobs.
func NewJobs(cfg *config.Config, store EventPruner, logger *slog.Logger) *Scheduler {
	retention := time.Duration(cfg.EventRetentionDays) * 24 * time.Hour
	interval := time.Duration(cfg.JobIntervalSeconds) * time.Second

	return NewScheduler(logger,
		NewCleanupJob(store, logger, retention, interval),
		NewGeoLiteReloadJob(cfg.GeoDBPath, logger, geoip.Reload),
	)
}

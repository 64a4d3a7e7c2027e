package jobs

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// GeoLiteReloadInterval is how often the GeoLite file is checked for replacement.
const GeoLiteReloadInterval = 10 * time.Minute

// GeoLiteReloadJob reopens the shared GeoLite reader when the database file on
// disk is replaced, e.g. by geoipupdate.
type GeoLiteReloadJob struct {
	path   string
	logger *slog.Logger
	reload func(*slog.Logger)

	mu      sync.Mutex
	modTime time.Time
}

func NewGeoLiteReloadJob(path string, logger *slog.Logger, reload func(*slog.Logger)) *GeoLiteReloadJob {
	return &GeoLiteReloadJob{path: path, logger: logger, reload: reload}
}

func (j *GeoLiteReloadJob) Name() string { return "geolite_reload" }

func (j *GeoLiteReloadJob) Interval() time.Duration {
	if j.path == "" {
		return 0
	}
	return GeoLiteReloadInterval
}

// Run reloads the reader when the file's modification time moved. The first
// run only records the current state.
func (j *GeoLiteReloadJob) Run(context.Context) error {
	info, err := os.Stat(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			j.logger.Debug("GeoLite database not present", slog.String("path", j.path))
			return nil
		}
		return err
	}

	j.mu.Lock()
	previous := j.modTime
	j.modTime = info.ModTime()
	j.mu.Unlock()

	if previous.IsZero() || !info.ModTime().After(previous) {
		return nil
	}

	j.logger.Info("GeoLite database changed, reloading",
		slog.String("path", j.path),
		slog.Time("modified", info.ModTime()))
	j.reload(j.logger)
	return nil
}

package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (f *fakePruner) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return 3, f.err
}

func TestCleanupJobUsesRetentionCutoff(t *testing.T) {
	pruner := &fakePruner{}
	job := NewCleanupJob(pruner, testLogger(), 30*24*time.Hour, time.Hour)
	now := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, pruner.cutoffs, 1)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), pruner.cutoffs[0])
	assert.Equal(t, time.Hour, job.Interval())
}

func TestCleanupJobDisabledWithoutRetention(t *testing.T) {
	pruner := &fakePruner{}
	job := NewCleanupJob(pruner, testLogger(), 0, time.Hour)

	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, pruner.cutoffs)
	assert.Zero(t, job.Interval())
}

func TestCleanupJobPropagatesErrors(t *testing.T) {
	pruner := &fakePruner{err: errors.New("database is locked")}
	job := NewCleanupJob(pruner, testLogger(), time.Hour, time.Hour)
	assert.Error(t, job.Run(context.Background()))
}

func TestGeoLiteReloadJobReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "GeoLite2-City.mmdb")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	var reloads atomic.Int32
	job := NewGeoLiteReloadJob(path, testLogger(), func(*slog.Logger) { reloads.Add(1) })

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, int32(0), reloads.Load())

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, int32(1), reloads.Load())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, int32(1), reloads.Load())
}

func TestGeoLiteReloadJobIgnoresMissingFile(t *testing.T) {
	job := NewGeoLiteReloadJob(filepath.Join(t.TempDir(), "missing.mmdb"), testLogger(), func(*slog.Logger) {
		t.Fatal("reload must not be called")
	})
	assert.NoError(t, job.Run(context.Background()))
	assert.Zero(t, NewGeoLiteReloadJob("", testLogger(), nil).Interval())
}

type countingJob struct {
	runs     atomic.Int32
	interval time.Duration
	panics   bool
}

func (j *countingJob) Name() string            { return "counting" }
func (j *countingJob) Interval() time.Duration { return j.interval }
func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	if j.panics {
		panic("boom")
	}
	return nil
}

func TestSchedulerStartStop(t *testing.T) {
	job := &countingJob{interval: time.Hour}
	disabled := &countingJob{interval: 0}
	s := NewScheduler(testLogger(), job, disabled)

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 10*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Zero(t, disabled.runs.Load())
}

func TestSchedulerRecoversFromPanics(t *testing.T) {
	job := &countingJob{panics: true}
	s := NewScheduler(testLogger(), job)

	assert.NotPanics(t, func() { s.RunOnce(context.Background()) })
	s.RunOnce(context.Background())
	assert.Equal(t, int32(2), job.runs.Load())
}

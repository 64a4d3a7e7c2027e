package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is a unit of periodic background work.
type Job interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// Scheduler runs each job on its own ticker. A job never overlaps with itself.
// It implements cartridge.BackgroundWorker.
type Scheduler struct {
	logger *slog.Logger
	jobs   []Job

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	isRunning bool
	running   map[string]bool
	wg        sync.WaitGroup
}

func NewScheduler(logger *slog.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{
		logger:  logger,
		jobs:    jobs,
		running: make(map[string]bool),
	}
}

// executeJobSafely runs job unless a previous run of it is still in progress.
func (s *Scheduler) executeJobSafely(ctx context.Context, job Job) {
	name := job.Name()

	s.mu.Lock()
	if s.running[name] {
		s.mu.Unlock()
		s.logger.Debug("Skipping job execution - previous run still in progress", slog.String("job", name))
		return
	}
	s.running[name] = true
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", name),
				slog.Any("panic", r))
		}
		s.mu.Lock()
		s.running[name] = false
		s.mu.Unlock()
	}()

	if err := job.Run(ctx); err != nil {
		s.logger.Error("Error executing job", slog.String("job", name), slog.Any("error", err))
	}
}

// Start launches every job with a positive interval, running each once immediately.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		s.logger.Info("Background jobs already running.")
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.isRunning = true

	for _, job := range s.jobs {
		if job.Interval() <= 0 {
			s.logger.Info("Background job disabled", slog.String("job", job.Name()))
			continue
		}
		s.wg.Add(1)
		go s.loop(s.ctx, job)
	}

	s.logger.Info("Background jobs started", slog.Int("jobs", len(s.jobs)))
	return nil
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval())
	defer ticker.Stop()

	s.logger.Info("Starting job", slog.String("job", job.Name()), slog.Duration("interval", job.Interval()))
	s.executeJobSafely(ctx, job)

	for {
		select {
		case <-ticker.C:
			s.executeJobSafely(ctx, job)
		case <-ctx.Done():
			s.logger.Info("Job stopped", slog.String("job", job.Name()))
			return
		}
	}
}

// Stop cancels all jobs and waits for in-progress runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.logger.Info("Stopping background jobs...")
	s.cancel()
	s.isRunning = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Background jobs stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// RunOnce executes every job a single time, in order. Used by the CLI.
func (s *Scheduler) RunOnce(ctx context.Context) {
	for _, job := range s.jobs {
		s.executeJobSafely(ctx, job)
	}
}

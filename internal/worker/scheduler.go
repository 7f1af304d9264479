// Package worker runs periodic maintenance jobs.
package worker

import (
	"context"
	"sync"
	"time"

	"merchant-service/internal/core/ports"
	"merchant-service/pkg/metrics"

	"github.com/rs/zerolog"
)

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs each job on its own ticker. When a JobLock is configured a
// tick only runs if this replica wins the lock.
type Scheduler struct {
	jobs    []Job
	lock    ports.JobLock
	lockTTL time.Duration
	metrics *metrics.Metrics
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler. lock may be nil for single-instance runs.
func NewScheduler(lock ports.JobLock, lockTTL time.Duration, m *metrics.Metrics, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		lock:    lock,
		lockTTL: lockTTL,
		metrics: m,
		log:     log,
	}
}

// Add registers a job. Jobs with a non-positive interval are ignored.
func (s *Scheduler) Add(job Job) {
	if job.Interval <= 0 {
		s.log.Warn().Str("job", job.Name).Msg("job disabled: interval not set")
		return
	}
	s.jobs = append(s.jobs, job)
}

// Start launches one goroutine per job. They stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}
	s.log.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
}

// Wait blocks until every job loop has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx, job)
		}
	}
}

// RunOnce executes job a single time under the job lock.
func (s *Scheduler) RunOnce(ctx context.Context, job Job) {
	log := s.log.With().Str("job", job.Name).Logger()

	if s.lock != nil {
		ok, err := s.lock.Acquire(ctx, job.Name, s.lockTTL)
		if err != nil {
			log.Error().Err(err).Msg("job lock unavailable")
			s.metrics.JobRun(job.Name, "lock_error")
			return
		}
		if !ok {
			log.Debug().Msg("job running on another instance")
			s.metrics.JobRun(job.Name, "skipped")
			return
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := s.lock.Release(releaseCtx, job.Name); err != nil {
				log.Warn().Err(err).Msg("job lock release failed")
			}
		}()
	}

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		log.Error().Err(err).Dur("took", time.Since(start)).Msg("job failed")
		s.metrics.JobRun(job.Name, "error")
		return
	}
	log.Debug().Dur("took", time.Since(start)).Msg("job finished")
	s.metrics.JobRun(job.Name, "success")
}

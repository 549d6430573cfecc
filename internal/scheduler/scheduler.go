// Package scheduler runs periodic and delayed jobs on gocron with an injectable clock.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// ErrUnknownJob is returned by RunNow for a job that was never registered.
var ErrUnknownJob = errors.New("unknown job")

// Job is a periodic task. Exactly one of Every or Cron must be set.
type Job struct {
	Name  string
	Every time.Duration
	Cron  string
	Run   func(ctx context.Context, now time.Time) error
}

// Scheduler owns a gocron scheduler and the jobs registered on it.
type Scheduler struct {
	sched  gocron.Scheduler
	clock  clockwork.Clock
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.RWMutex
	jobs map[string]Job
}

// New creates a Scheduler. Cron expressions are evaluated in loc.
func New(clock clockwork.Clock, loc *time.Location, logger zerolog.Logger) (*Scheduler, error) {
	logger = logger.With().Str("component", "scheduler").Logger()
	if loc == nil {
		loc = time.UTC
	}

	sched, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLocation(loc),
		gocron.WithLogger(gocronLogger{logger: logger}),
	)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create scheduler")
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		sched:  sched,
		clock:  clock,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]Job),
	}, nil
}

// Register adds a periodic job.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("job name and function are required")
	}

	var def gocron.JobDefinition
	switch {
	case job.Every > 0 && job.Cron == "":
		def = gocron.DurationJob(job.Every)
	case job.Cron != "" && job.Every == 0:
		def = gocron.CronJob(job.Cron, false)
	default:
		return fmt.Errorf("job %s must set exactly one of Every or Cron", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %s already registered", job.Name)
	}

	if _, err := s.sched.NewJob(def, gocron.NewTask(s.execute, job), gocron.WithName(job.Name)); err != nil {
		s.logger.Error().Err(err).Str("job", job.Name).Msg("failed to register job")
		return fmt.Errorf("failed to register job %s: %w", job.Name, err)
	}

	s.jobs[job.Name] = job
	s.logger.Info().
		Str("job", job.Name).
		Dur("every", job.Every).
		Str("cron", job.Cron).
		Msg("job registered")
	return nil
}

// execute runs one tick of job and logs the outcome.
func (s *Scheduler) execute(job Job) {
	now := s.clock.Now()
	logger := s.logger.With().Str("job", job.Name).Logger()

	logger.Debug().Time("now", now).Msg("job started")

	if err := job.Run(s.ctx, now); err != nil {
		logger.Error().Err(err).Dur("elapsed", s.clock.Since(now)).Msg("job failed")
		return
	}
	logger.Debug().Dur("elapsed", s.clock.Since(now)).Msg("job finished")
}

// RunNow runs a registered job once, synchronously, with the current time.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return job.Run(ctx, s.clock.Now())
}

// Names returns the registered job names.
func (s *Scheduler) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// After runs fn once, delay from now. Pending runs are lost on shutdown.
func (s *Scheduler) After(delay time.Duration, name string, fn func(ctx context.Context)) error {
	start := gocron.OneTimeJobStartImmediately()
	if delay > 0 {
		start = gocron.OneTimeJobStartDateTime(s.clock.Now().Add(delay))
	}

	task := func() {
		if s.ctx.Err() != nil {
			return
		}
		fn(s.ctx)
	}

	if _, err := s.sched.NewJob(gocron.OneTimeJob(start), gocron.NewTask(task), gocron.WithName(name)); err != nil {
		s.logger.Error().Err(err).Str("job", name).Msg("failed to schedule delayed task")
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}

	s.logger.Debug().Str("job", name).Dur("delay", delay).Msg("delayed task scheduled")
	return nil
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	s.sched.Start()
	s.logger.Info().Int("jobs", len(s.sched.Jobs())).Msg("scheduler started")
}

// Shutdown cancels running jobs and stops the scheduler.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	if err := s.sched.Shutdown(); err != nil {
		s.logger.Error().Err(err).Msg("failed to stop scheduler")
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	s.logger.Info().Msg("scheduler stopped")
	return nil
}

// gocronLogger adapts zerolog to gocron's logger.
type gocronLogger struct {
	logger zerolog.Logger
}

func (l gocronLogger) Debug(msg string, args ...any) { l.logger.Debug().Fields(args).Msg(msg) }
func (l gocronLogger) Info(msg string, args ...any)  { l.logger.Info().Fields(args).Msg(msg) }
func (l gocronLogger) Warn(msg string, args ...any)  { l.logger.Warn().Fields(args).Msg(msg) }
func (l gocronLogger) Error(msg string, args ...any) { l.logger.Error().Fields(args).Msg(msg) }

// Package scheduler runs named jobs on cron specs.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spigell/helper-matcher/internal/logger"
)

// Scheduler wraps robfig/cron. Jobs receive the context passed to Start and
// never overlap with themselves.
type Scheduler struct {
	cron      *cron.Cron
	logger    *zap.Logger
	immediate bool

	mu   sync.Mutex
	jobs []job
	wg   sync.WaitGroup
}

type job struct {
	name string
	spec string
	run  func(context.Context)
}

type Option func(*Scheduler)

// WithImmediateRun also runs every job once at Start, without waiting for
// the first tick.
func WithImmediateRun() Option {
	return func(s *Scheduler) {
		s.immediate = true
	}
}

func New(lg *zap.Logger, opts ...Option) *Scheduler {
	lg = logger.WithFields(lg)
	s := &Scheduler{logger: lg}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = cron.New(
		cron.WithLogger(cronLogger{log: lg.Sugar()}),
		cron.WithChain(cron.Recover(cronLogger{log: lg.Sugar()}), cron.SkipIfStillRunning(cronLogger{log: lg.Sugar()})),
	)
	return s
}

// Add registers a job. The cron expression is validated immediately.
func (s *Scheduler) Add(name, spec string, run func(context.Context)) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job{name: name, spec: spec, run: run})
	return nil
}

// Start registers the jobs with cron and starts it.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	jobs := append([]job(nil), s.jobs...)
	s.mu.Unlock()

	for _, j := range jobs {
		j := j
		if _, err := s.cron.AddFunc(j.spec, func() { s.runJob(ctx, j) }); err != nil {
			return fmt.Errorf("cron.AddFunc: %w", err)
		}
	}

	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("jobs", len(jobs)))

	if s.immediate {
		for _, j := range jobs {
			s.wg.Add(1)
			go func(j job) {
				defer s.wg.Done()
				s.runJob(ctx, j)
			}(j)
		}
	}
	return nil
}

// Stop stops scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) runJob(ctx context.Context, j job) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Debug("Job started", zap.String("job", j.name))
	j.run(ctx)
	s.logger.Debug("Job finished", zap.String("job", j.name))
}

type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

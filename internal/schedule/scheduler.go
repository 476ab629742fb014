// Package schedule runs periodic jobs on cron expressions.
package schedule

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Job is a unit of scheduled work. Errors are logged, never fatal; a failed
// tick is retried at the next scheduled invocation.
type Job func(ctx context.Context) error

// Scheduler wraps robfig/cron with named jobs and a manual trigger path for
// the CLI.
type Scheduler struct {
	cron *cron.Cron

	mu   sync.Mutex
	jobs map[string]Job
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		jobs: make(map[string]Job),
	}
}

// Add registers a named job under a cron expression. An empty expression
// registers the job for manual triggering only.
func (s *Scheduler) Add(ctx context.Context, name, spec string, job Job) error {
	log := zap.L().With(zap.String("component", "schedule"), zap.String("job", name))

	s.mu.Lock()
	if _, exists := s.jobs[name]; exists {
		s.mu.Unlock()
		return eris.Errorf("schedule: duplicate job %q", name)
	}
	s.jobs[name] = job
	s.mu.Unlock()

	if spec == "" {
		log.Info("no cron expression, job is manual-trigger only")
		return nil
	}

	_, err := s.cron.AddFunc(spec, func() {
		log.Info("scheduled run starting")
		if err := job(ctx); err != nil {
			log.Error("scheduled run failed", zap.Error(err))
			return
		}
		log.Info("scheduled run complete")
	})
	if err != nil {
		return eris.Wrapf(err, "schedule: add job %q with spec %q", name, spec)
	}
	log.Info("job scheduled", zap.String("cron", spec))
	return nil
}

// Start begins cron dispatch in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts dispatch and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// TriggerNow runs a registered job synchronously, outside its schedule.
func (s *Scheduler) TriggerNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return eris.Errorf("schedule: unknown job %q", name)
	}
	return job(ctx)
}

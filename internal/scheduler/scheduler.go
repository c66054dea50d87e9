// Package scheduler runs the dashboard's periodic catalog refresh.
package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps a cron runner with seconds-resolution specs, e.g.
// "0 */5 * * * *" or "@every 5m".
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

// New creates a stopped Scheduler.
func New(log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log,
	}
}

// Register adds a named task. An invalid spec is an error.
func (s *Scheduler) Register(name, spec string, task func()) error {
	if _, err := s.cron.AddFunc(spec, func() {
		s.log.Debug("running scheduled task", "task", name)
		task()
	}); err != nil {
		return fmt.Errorf("register %s task %q: %w", name, spec, err)
	}
	s.log.Info("scheduled task registered", "task", name, "spec", spec)
	return nil
}

// Len reports the number of registered tasks.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the scheduler and waits for running tasks to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// ValidateSpec reports whether spec parses as a schedule.
func ValidateSpec(spec string) error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

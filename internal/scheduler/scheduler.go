package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one recurring registration: a cron cadence and the task it fires.
// Registered jobs run on independent timers; one job's in-flight run never
// blocks another's trigger.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context)
}

// Scheduler owns the explicit list of recurring jobs for this process. All
// cadences are evaluated in UTC so daylight-saving shifts never affect
// snapshot-identifier derivation.
type Scheduler struct {
	cron *cron.Cron
	jobs []Job
}

func New(jobs []Job) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		jobs: jobs,
	}
}

// Start registers every job and begins firing cadences. Malformed cron
// specs are a startup configuration error.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, job := range s.jobs {
		job := job
		_, err := s.cron.AddFunc(job.Spec, func() {
			slog.Info("scheduler: triggering job", "job", job.Name)
			job.Run(ctx)
		})
		if err != nil {
			return fmt.Errorf("register job %s (%q): %w", job.Name, job.Spec, err)
		}
	}
	s.cron.Start()
	slog.Info("scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop halts future triggers and returns once in-flight runs have finished.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
}

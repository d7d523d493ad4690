// Package sched runs periodic report jobs on a fixed one-second poll.
// Jobs run synchronously in registration order; a slow job delays the
// rest of the same tick, never the ingest loop.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/meshwatch/meshwatch/state"
)

// Trigger computes the next firing instant strictly after now.
type Trigger interface {
	Next(now time.Time) time.Time
}

// HourlyAt fires once per hour at a fixed minute.
type HourlyAt struct {
	Minute int
}

func (h HourlyAt) Next(now time.Time) time.Time {
	// Build the boundary from wall-clock fields so half-hour timezone
	// offsets keep the configured minute.
	next := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), h.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(time.Hour)
	}
	return next
}

// DailyAt fires once per day at a fixed local time.
type DailyAt struct {
	Hour   int
	Minute int
	Loc    *time.Location
}

func (d DailyAt) Next(now time.Time) time.Time {
	loc := d.Loc
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.Hour, d.Minute, 0, 0, loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Job is one scheduled unit of work.
type Job struct {
	Name    string
	Trigger Trigger
	Run     func() error
}

type armedJob struct {
	Job
	next time.Time
}

// Scheduler polls its job list at TickInterval resolution and runs due
// jobs one after another.
type Scheduler struct {
	log   *slog.Logger
	clock clockwork.Clock
	jobs  []*armedJob
}

func New(log *slog.Logger, clock clockwork.Clock) *Scheduler {
	return &Scheduler{log: log, clock: clock}
}

func (s *Scheduler) Add(job Job) {
	s.jobs = append(s.jobs, &armedJob{Job: job})
}

// Run executes the scheduler loop until ctx is cancelled. Job failures
// and panics are logged per job and never stop the loop or the jobs
// after them.
func (s *Scheduler) Run(ctx context.Context) {
	now := s.clock.Now()
	for _, job := range s.jobs {
		job.next = job.Trigger.Next(now)
	}
	s.log.Info("scheduler started", "jobs", len(s.jobs))

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(state.TickInterval):
		}
		now := s.clock.Now()
		for _, job := range s.jobs {
			if now.Before(job.next) {
				continue
			}
			s.runJob(job)
			job.next = job.Trigger.Next(s.clock.Now())
		}
	}
}

func (s *Scheduler) runJob(job *armedJob) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("job panicked", "job", job.Name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	start := s.clock.Now()
	if err := job.Run(); err != nil {
		s.log.Error("job failed", "job", job.Name, "error", err)
		return
	}
	s.log.Debug("job complete", "job", job.Name, "elapsed", s.clock.Since(start))
}

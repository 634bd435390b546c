package cron

import (
	"context"
	"time"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Schedule runs Job at most once per Every. A zero Every runs it on every tick.
type Schedule struct {
	Job   Job
	Every time.Duration
}

// Registry tracks registered jobs and when each last started in this process.
type Registry struct {
	schedules []Schedule
	lastRun   map[string]time.Time
}

// NewRegistry builds a registry preloaded with the provided schedules.
func NewRegistry(schedules ...Schedule) *Registry {
	registry := &Registry{lastRun: make(map[string]time.Time)}
	for _, schedule := range schedules {
		registry.Register(schedule.Job, schedule.Every)
	}
	return registry
}

// Register adds a job that runs every interval.
func (r *Registry) Register(job Job, every time.Duration) {
	if job == nil {
		return
	}
	if every < 0 {
		every = 0
	}
	r.schedules = append(r.schedules, Schedule{Job: job, Every: every})
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, 0, len(r.schedules))
	for _, schedule := range r.schedules {
		jobs = append(jobs, schedule.Job)
	}
	return jobs
}

// Due returns the jobs that have never run or whose interval has elapsed by now.
func (r *Registry) Due(now time.Time) []Job {
	var due []Job
	for _, schedule := range r.schedules {
		last, ran := r.lastRun[schedule.Job.Name()]
		if !ran || schedule.Every == 0 || !now.Before(last.Add(schedule.Every)) {
			due = append(due, schedule.Job)
		}
	}
	return due
}

func (r *Registry) markRun(name string, at time.Time) {
	r.lastRun[name] = at
}

package cron

import (
	"context"
	"testing"
	"time"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryStoresJobs(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry.Register(jobA, time.Hour)
	registry.Register(jobB, 0)
	registry.Register(nil, time.Hour)
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("jobs returned out of order")
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryDueHonoursEachInterval(t *testing.T) {
	escrow := &stubJob{name: "escrow-maturity"}
	retention := &stubJob{name: "outbox-retention"}
	every := &stubJob{name: "every-tick"}
	registry := NewRegistry(
		Schedule{Job: escrow, Every: time.Hour},
		Schedule{Job: retention, Every: 24 * time.Hour},
		Schedule{Job: every},
	)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if due := registry.Due(start); len(due) != 3 {
		t.Fatalf("expected every job due before first run, got %d", len(due))
	}
	for _, job := range registry.Jobs() {
		registry.markRun(job.Name(), start)
	}

	due := registry.Due(start.Add(30 * time.Minute))
	if len(due) != 1 || due[0] != every {
		t.Fatalf("expected only the every-tick job after 30m, got %v", names(due))
	}
	due = registry.Due(start.Add(time.Hour))
	if len(due) != 2 || due[0] != escrow {
		t.Fatalf("expected escrow due after an hour, got %v", names(due))
	}
	due = registry.Due(start.Add(24 * time.Hour))
	if len(due) != 3 {
		t.Fatalf("expected all jobs due after a day, got %v", names(due))
	}
}

func names(jobs []Job) []string {
	out := make([]string, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, job.Name())
	}
	return out
}

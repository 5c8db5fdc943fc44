package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/bluewud/storefront-backend/pkg/logger"
)

type fakeLock struct {
	held     bool
	acquired int
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	f.acquired++
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	registry := NewRegistry(success, failure)
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Interval: 0,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if success.runs != 1 {
		t.Fatalf("expected success job to run once, ran %d", success.runs)
	}
	if failure.runs != 1 {
		t.Fatalf("expected failure job to run once, ran %d", failure.runs)
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock released after the cycle, got %d", lock.releases)
	}
}

func TestServiceRunCycleSkipsWhenLockHeld(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	job := &testJob{name: "idle"}
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(job),
		Lock:     &fakeLock{held: true},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("jobs must not run while another instance holds the lock, ran %d", job.runs)
	}
}

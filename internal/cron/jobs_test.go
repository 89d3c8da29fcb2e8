package cron_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/flemzord/slackapprove/internal/cron"
	"github.com/flemzord/slackapprove/internal/cron/crontest"
)

func TestPruneJob_Name(t *testing.T) {
	t.Parallel()

	if got := (&cron.PruneJob{}).Name(); got != "ledger_prune" {
		t.Errorf("name = %q, want %q", got, "ledger_prune")
	}
	if got := (&cron.PruneJob{Backend: "sqlite"}).Name(); got != "ledger_prune:sqlite" {
		t.Errorf("name = %q, want %q", got, "ledger_prune:sqlite")
	}
}

func TestPruneJob_Schedule(t *testing.T) {
	t.Parallel()

	if got := (&cron.PruneJob{}).Schedule(); got != "*/15 * * * *" {
		t.Errorf("schedule = %q, want default", got)
	}
	if got := (&cron.PruneJob{ScheduleExpr: "@hourly"}).Schedule(); got != "@hourly" {
		t.Errorf("schedule = %q, want override", got)
	}
}

func TestPruneJob_Run(t *testing.T) {
	t.Parallel()

	store := &crontest.Pruner{Expired: 3}
	j := &cron.PruneJob{Store: store, Logger: slog.Default(), Backend: "memory"}

	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Calls() != 1 {
		t.Errorf("prune calls = %d, want 1", store.Calls())
	}
}

func TestPruneJob_StoreError(t *testing.T) {
	t.Parallel()

	boom := errors.New("database is locked")
	store := &crontest.Pruner{Err: boom}
	j := &cron.PruneJob{Store: store, Logger: slog.Default()}

	if err := j.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped %v", err, boom)
	}
}

func TestPruneJob_CancelledContext(t *testing.T) {
	t.Parallel()

	store := &crontest.Pruner{}
	j := &cron.PruneJob{Store: store, Logger: slog.Default()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := j.Run(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if store.Calls() != 0 {
		t.Error("store should not be touched after cancellation")
	}
}

func TestScheduler_RunNowPrunes(t *testing.T) {
	t.Parallel()

	store := &crontest.Pruner{Expired: 2}
	s := cron.NewScheduler(slog.Default())
	if err := s.RegisterJob(&cron.PruneJob{Store: store, Logger: slog.Default(), Backend: "memory"}); err != nil {
		t.Fatalf("RegisterJob: %v", err)
	}
	if err := s.RunNow(context.Background(), "ledger_prune:memory"); err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if store.Calls() != 1 {
		t.Errorf("prune calls = %d, want 1", store.Calls())
	}
}

func TestScheduler_JobErrorDoesNotStopScheduler(t *testing.T) {
	t.Parallel()

	job := &crontest.Job{JobName: "flaky", Expr: "@hourly", Fn: func(context.Context) error { return errors.New("redis: connection refused") }}
	s := cron.NewScheduler(slog.Default())
	if err := s.RegisterJob(job); err != nil {
		t.Fatalf("RegisterJob: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.RunNow(context.Background(), "flaky"); err == nil {
		t.Error("RunNow should surface the job error")
	}
	if err := s.RunNow(context.Background(), "flaky"); err == nil {
		t.Error("job should still be runnable after a failure")
	}
	if job.Calls() != 2 {
		t.Errorf("calls = %d, want 2", job.Calls())
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

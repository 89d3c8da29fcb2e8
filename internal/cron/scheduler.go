package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flemzord/slackapprove/internal/core"
)

var (
	_ core.Starter = (*Scheduler)(nil)
	_ core.Stopper = (*Scheduler)(nil)
)

// ErrDuplicateJob is returned when two jobs share a name.
var ErrDuplicateJob = errors.New("cron: duplicate job name")

// Five-field expressions plus descriptors such as "@hourly".
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether expr is a schedule the Scheduler accepts.
func ValidateSchedule(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("cron: invalid schedule %q: %w", expr, err)
	}
	return nil
}

// entry is a registered job with its parsed schedule. running guards
// against a slow run overlapping the next tick.
type entry struct {
	job      Job
	schedule cron.Schedule
	running  sync.Mutex
}

// Scheduler runs the background maintenance jobs (ledger pruning) on
// their cron schedules. It is appended to the app lifecycle last, so it
// starts after every store it prunes and stops before them.
type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	byName  map[string]*entry
	cron    *cron.Cron
	cancel  context.CancelFunc
	logger  *slog.Logger
}

// NewScheduler creates a scheduler. Jobs must be registered before Start.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		byName: make(map[string]*entry),
		logger: logger,
	}
}

// ModuleInfo implements core.Module so the scheduler joins the app lifecycle.
func (s *Scheduler) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "cron"}
}

// Jobs returns the registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.job.Name()
	}
	return out
}

// RegisterJob adds j. The schedule is parsed here, so a bad expression
// fails module provisioning rather than Start.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	switch {
	case s.byName[name] != nil:
		return fmt.Errorf("%w: %q", ErrDuplicateJob, name)
	case s.cron != nil:
		return fmt.Errorf("cron: job %q registered after start", name)
	}
	sched, err := parser.Parse(j.Schedule())
	if err != nil {
		return fmt.Errorf("cron: invalid schedule for job %q: %w", name, err)
	}

	e := &entry{job: j, schedule: sched}
	s.byName[name] = e
	s.entries = append(s.entries, e)
	return nil
}

// Start implements core.Starter.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return errors.New("cron: scheduler already started")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.cron = cron.New(cron.WithParser(parser))
	for _, e := range s.entries {
		s.cron.Schedule(e.schedule, cron.FuncJob(func() { s.tick(ctx, e) }))
	}
	s.cron.Start()
	s.logger.Info("cron: scheduler started", "jobs", len(s.entries))
	return nil
}

// RunNow runs the named job once, outside its schedule. It returns
// immediately with nil if a run of that job is already in progress.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e := s.byName[name]
	s.mu.Unlock()
	if e == nil {
		return fmt.Errorf("cron: unknown job %q", name)
	}
	return s.run(ctx, e)
}

func (s *Scheduler) tick(ctx context.Context, e *entry) {
	if err := s.run(ctx, e); err != nil {
		s.logger.Error("cron: job failed", "job", e.job.Name(), "error", err)
	}
}

func (s *Scheduler) run(ctx context.Context, e *entry) error {
	if !e.running.TryLock() {
		s.logger.Warn("cron: job still running, skipping tick", "job", e.job.Name())
		return nil
	}
	defer e.running.Unlock()

	start := time.Now()
	err := e.job.Run(ctx)
	s.logger.Debug("cron: job finished", "job", e.job.Name(), "duration", time.Since(start), "ok", err == nil)
	return err
}

// Stop cancels the context handed to running jobs and waits for them to
// return, or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("cron: scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cron: waiting for jobs: %w", ctx.Err())
	}
}

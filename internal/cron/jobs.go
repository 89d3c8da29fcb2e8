package cron

import (
	"context"
	"fmt"
	"log/slog"
)

// Pruner drops expired entries from a store. Defined here to avoid a
// dependency on the ledger package.
type Pruner interface {
	Prune(ctx context.Context) (int, error)
}

// PruneJob removes expired decision ledger entries.
type PruneJob struct {
	Store        Pruner
	Logger       *slog.Logger
	Backend      string // e.g. "sqlite"; part of the job name
	ScheduleExpr string // empty = default "*/15 * * * *"
}

// Compile-time interface check.
var _ Job = (*PruneJob)(nil)

// Name implements Job.
func (j *PruneJob) Name() string {
	if j.Backend != "" {
		return "ledger_prune:" + j.Backend
	}
	return "ledger_prune"
}

// Schedule implements Job.
func (j *PruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/15 * * * *"
}

// Run prunes expired entries.
func (j *PruneJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: prune cancelled: %w", ctx.Err())
	}
	pruned, err := j.Store.Prune(ctx)
	if err != nil {
		return fmt.Errorf("cron: prune %s: %w", j.Name(), err)
	}
	if pruned > 0 {
		j.Logger.Info("cron: pruned expired decisions", "count", pruned, "backend", j.Backend)
	}
	return nil
}

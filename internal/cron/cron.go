// Package cron provides a job scheduler for periodic background tasks
// such as decision ledger pruning.
package cron

import "context"

// ServiceName is the AppContext service key for the *Scheduler. Modules
// register their jobs during Provision; the scheduler starts last.
const ServiceName = "cron.scheduler"

// Job defines a periodic background task.
type Job interface {
	// Name returns a unique identifier for this job (used for logging and dedup).
	Name() string

	// Schedule returns a 5-field cron expression such as "*/5 * * * *", or a
	// descriptor such as "@hourly".
	Schedule() string

	// Run executes the job. Implementations should check ctx.Done() for
	// graceful cancellation.
	Run(ctx context.Context) error
}

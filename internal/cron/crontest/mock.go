// Package crontest provides test doubles for the cron package.
package crontest

import (
	"context"
	"sync/atomic"

	"github.com/flemzord/slackapprove/internal/cron"
)

// Job runs Fn, if set, on every call and counts the calls.
type Job struct {
	JobName string
	Expr    string
	Fn      func(ctx context.Context) error

	calls atomic.Int32
}

var _ cron.Job = (*Job)(nil)

func (j *Job) Name() string     { return j.JobName }
func (j *Job) Schedule() string { return j.Expr }

func (j *Job) Run(ctx context.Context) error {
	j.calls.Add(1)
	if j.Fn != nil {
		return j.Fn(ctx)
	}
	return nil
}

// Calls returns how many times Run was called.
func (j *Job) Calls() int { return int(j.calls.Load()) }

// Pruner reports Expired removed entries, or Err, on every call.
type Pruner struct {
	Expired int
	Err     error

	calls atomic.Int32
}

var _ cron.Pruner = (*Pruner)(nil)

func (p *Pruner) Prune(context.Context) (int, error) {
	p.calls.Add(1)
	if p.Err != nil {
		return 0, p.Err
	}
	return p.Expired, nil
}

// Calls returns how many times Prune was called.
func (p *Pruner) Calls() int { return int(p.calls.Load()) }

package router

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flemzord/slackapprove/pkg/interaction"
)

// DefaultWorkerCount is the number of workers when no size is specified.
const DefaultWorkerCount = 10

// envelope is one queued interaction. The handler is resolved at submit
// time so workers never touch the table.
type envelope struct {
	Interaction interaction.Interaction
	Handler     Handler
	Enqueued    time.Time
}

// workerPool runs a fixed number of goroutines over the inbox until it is
// closed. busy counts the envelopes being handled right now.
type workerPool struct {
	size int
	busy atomic.Int64
	wg   sync.WaitGroup

	drainOnce sync.Once
	done      chan struct{}
}

func newWorkerPool(size int) *workerPool {
	if size <= 0 {
		size = DefaultWorkerCount
	}
	return &workerPool{size: size, done: make(chan struct{})}
}

func (p *workerPool) run(ctx context.Context, inbox <-chan envelope, handle func(context.Context, envelope)) {
	p.wg.Add(p.size)
	for range p.size {
		go func() {
			defer p.wg.Done()
			for env := range inbox {
				p.busy.Add(1)
				handle(ctx, env)
				p.busy.Add(-1)
			}
		}()
	}
}

// drained is closed once every worker has exited. Call it only after the
// inbox is closed.
func (p *workerPool) drained() <-chan struct{} {
	p.drainOnce.Do(func() {
		go func() {
			p.wg.Wait()
			close(p.done)
		}()
	})
	return p.done
}

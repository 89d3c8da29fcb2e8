package router

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flemzord/slackapprove/pkg/interaction"
)

func actionEnvelope(id string) envelope {
	return envelope{
		Interaction: interaction.Interaction{Kind: interaction.KindBlockAction, ID: id},
		Enqueued:    time.Now(),
	}
}

func TestWorkerPool_RunsSizeConcurrently(t *testing.T) {
	t.Parallel()

	const size = 3
	p := newWorkerPool(size)
	inbox := make(chan envelope, size)
	entered := make(chan struct{}, size)
	release := make(chan struct{})

	p.run(context.Background(), inbox, func(context.Context, envelope) {
		entered <- struct{}{}
		<-release
	})
	for _, id := range []string{"approve", "reject", "approver_select"} {
		inbox <- actionEnvelope(id)
	}
	for range size {
		select {
		case <-entered:
		case <-time.After(2 * time.Second):
			t.Fatal("workers did not pick up envelopes concurrently")
		}
	}
	if got := p.busy.Load(); got != size {
		t.Errorf("busy = %d, want %d", got, size)
	}

	close(release)
	close(inbox)
	<-p.drained()
	if got := p.busy.Load(); got != 0 {
		t.Errorf("busy after drain = %d, want 0", got)
	}
}

func TestWorkerPool_DrainsQueued(t *testing.T) {
	t.Parallel()

	p := newWorkerPool(2)
	inbox := make(chan envelope, 5)
	var handled atomic.Int32
	p.run(context.Background(), inbox, func(context.Context, envelope) { handled.Add(1) })

	for range 5 {
		inbox <- actionEnvelope("approve")
	}
	close(inbox)

	select {
	case <-p.drained():
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not drain")
	}
	if got := handled.Load(); got != 5 {
		t.Errorf("handled = %d, want 5", got)
	}
}

func TestWorkerPool_DrainedWithoutRun(t *testing.T) {
	t.Parallel()

	p := newWorkerPool(0)
	if p.size != DefaultWorkerCount {
		t.Errorf("size = %d, want %d", p.size, DefaultWorkerCount)
	}
	select {
	case <-p.drained():
	case <-time.After(time.Second):
		t.Fatal("a pool that never ran should report drained")
	}
}

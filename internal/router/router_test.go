package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/flemzord/slackapprove/internal/telemetry"
	"github.com/flemzord/slackapprove/pkg/interaction"
)

// recorder collects handled interactions.
type recorder struct {
	mu   sync.Mutex
	seen []interaction.Interaction
	done chan struct{}
}

func newRecorder(n int) (*recorder, Handler) {
	rec := &recorder{done: make(chan struct{})}
	return rec, func(_ context.Context, in interaction.Interaction) error {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.seen = append(rec.seen, in)
		if len(rec.seen) == n {
			close(rec.done)
		}
		return nil
	}
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for handlers")
	}
}

func action(id string) interaction.Interaction {
	return interaction.Interaction{Kind: interaction.KindBlockAction, ID: id, UserID: "U2"}
}

func TestNewRouter_RequiresTable(t *testing.T) {
	t.Parallel()

	if _, err := NewRouter(Config{}); !errors.Is(err, ErrNoTable) {
		t.Errorf("error = %v, want %v", err, ErrNoTable)
	}
}

func TestNewRouter_Defaults(t *testing.T) {
	t.Parallel()

	tbl := NewTable()
	r, err := NewRouter(Config{Table: tbl})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.config.WorkerCount != DefaultWorkerCount {
		t.Errorf("WorkerCount = %d, want %d", r.config.WorkerCount, DefaultWorkerCount)
	}
	if r.config.InboxSize != defaultInboxSize {
		t.Errorf("InboxSize = %d, want %d", r.config.InboxSize, defaultInboxSize)
	}
	if r.config.Timeout != defaultTimeout {
		t.Errorf("Timeout = %v, want %v", r.config.Timeout, defaultTimeout)
	}
	if r.config.Logger == nil || r.config.Metrics == nil || r.config.Tracer == nil {
		t.Error("Logger, Metrics and Tracer should be set after defaults")
	}
	if !tbl.Frozen() {
		t.Error("NewRouter should freeze the table")
	}
}

func TestRouter_Submit_NoHandler(t *testing.T) {
	t.Parallel()

	metrics := telemetry.NewMetrics(nil)
	r, _ := NewRouter(Config{Table: NewTable(), Metrics: metrics})

	err := r.Submit(action("approver_select"))
	if !errors.Is(err, ErrNoHandler) {
		t.Errorf("error = %v, want %v", err, ErrNoHandler)
	}
	if r.Queued() != 0 {
		t.Error("unrouted interaction should not be queued")
	}
	got := testutil.ToFloat64(metrics.Interactions.WithLabelValues("block_action", "approver_select", telemetry.ResultUnrouted))
	if got != 1 {
		t.Errorf("unrouted counter = %v, want 1", got)
	}
}

func TestRouter_Submit_NonBlocking(t *testing.T) {
	t.Parallel()

	tbl := NewTable()
	tbl.MustRegister(interaction.KindBlockAction, "approve_request", func(context.Context, interaction.Interaction) error { return nil })

	// Inbox size 1 and no Start: nothing consumes, so it fills up.
	r, _ := NewRouter(Config{Table: tbl, InboxSize: 1})

	if err := r.Submit(action("approve_request")); err != nil {
		t.Fatalf("first Submit returned error: %v", err)
	}
	if err := r.Submit(action("approve_request")); !errors.Is(err, ErrInboxFull) {
		t.Errorf("second Submit error = %v, want %v", err, ErrInboxFull)
	}
}

type denyAll struct{}

func (denyAll) Allow(string) error { return errors.New("rate limit exceeded") }

func TestRouter_Submit_RateLimited(t *testing.T) {
	t.Parallel()

	tbl := NewTable()
	tbl.MustRegister(interaction.KindBlockAction, "approve_request", func(context.Context, interaction.Interaction) error { return nil })
	r, _ := NewRouter(Config{Table: tbl, Limiter: denyAll{}})

	if err := r.Submit(action("approve_request")); err == nil {
		t.Error("expected rate limit error")
	}
	if r.Queued() != 0 {
		t.Error("rate-limited interaction should not be queued")
	}
}

func TestRouter_Submit_AfterStop(t *testing.T) {
	t.Parallel()

	r, _ := NewRouter(Config{Table: NewTable()})
	r.Start(context.Background())
	r.Stop(context.Background())

	if err := r.Submit(action("approve_request")); !errors.Is(err, ErrRouterStopped) {
		t.Errorf("Submit after Stop error = %v, want %v", err, ErrRouterStopped)
	}
}

func TestRouter_EndToEnd(t *testing.T) {
	t.Parallel()

	rec, h := newRecorder(3)
	tbl := NewTable()
	tbl.MustRegister(interaction.KindCommand, "/approval-test", h)
	tbl.MustRegister(interaction.KindViewSubmission, "approval_modal", h)
	tbl.MustRegister(interaction.KindBlockAction, "approve_request", h)

	metrics := telemetry.NewMetrics(nil)
	r, _ := NewRouter(Config{Table: tbl, WorkerCount: 2, InboxSize: 10, Metrics: metrics})
	r.Start(context.Background())
	defer r.Stop(context.Background())

	for _, in := range []interaction.Interaction{
		{Kind: interaction.KindCommand, ID: "/approval-test"},
		{Kind: interaction.KindViewSubmission, ID: "approval_modal"},
		{Kind: interaction.KindBlockAction, ID: "approve_request"},
	} {
		if err := r.Submit(in); err != nil {
			t.Fatalf("Submit(%s) error: %v", in.Key(), err)
		}
	}
	rec.wait(t)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, in := range rec.seen {
		if in.ReceivedAt.IsZero() {
			t.Errorf("%s: ReceivedAt not stamped", in.Key())
		}
	}
}

func TestRouter_RecoversPanic(t *testing.T) {
	t.Parallel()

	rec, ok := newRecorder(1)
	tbl := NewTable()
	tbl.MustRegister(interaction.KindBlockAction, "approve_request", func(context.Context, interaction.Interaction) error {
		panic("nil map write")
	})
	tbl.MustRegister(interaction.KindBlockAction, "reject_request", ok)

	metrics := telemetry.NewMetrics(nil)
	r, _ := NewRouter(Config{Table: tbl, WorkerCount: 1, Metrics: metrics})
	r.Start(context.Background())
	defer r.Stop(context.Background())

	_ = r.Submit(action("approve_request"))
	_ = r.Submit(action("reject_request"))

	// The single worker survives the panic and handles the next unit.
	rec.wait(t)

	got := testutil.ToFloat64(metrics.Interactions.WithLabelValues("block_action", "approve_request", telemetry.ResultPanic))
	if got != 1 {
		t.Errorf("panic counter = %v, want 1", got)
	}
}

func TestRouter_Timeout(t *testing.T) {
	t.Parallel()

	finished := make(chan error, 1)
	tbl := NewTable()
	tbl.MustRegister(interaction.KindBlockAction, "approve_request", func(ctx context.Context, _ interaction.Interaction) error {
		<-ctx.Done()
		finished <- ctx.Err()
		return ctx.Err()
	})

	r, _ := NewRouter(Config{Table: tbl, Timeout: 20 * time.Millisecond})
	r.Start(context.Background())
	defer r.Stop(context.Background())

	_ = r.Submit(action("approve_request"))

	select {
	case err := <-finished:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("handler ctx error = %v, want DeadlineExceeded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not cancelled by the per-unit timeout")
	}
}

func TestRouter_Spans(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	rec, h := newRecorder(1)
	tbl := NewTable()
	tbl.MustRegister(interaction.KindBlockAction, "approve_request", h)

	r, _ := NewRouter(Config{Table: tbl, Tracer: tp.Tracer("test")})
	r.Start(context.Background())
	_ = r.Submit(action("approve_request"))
	rec.wait(t)
	r.Stop(context.Background())

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "interaction block_action:approve_request" {
		t.Errorf("span name = %q", spans[0].Name)
	}
}

func TestRouter_GracefulShutdown(t *testing.T) {
	t.Parallel()

	rec, h := newRecorder(3)
	tbl := NewTable()
	tbl.MustRegister(interaction.KindBlockAction, "approve_request", h)

	r, _ := NewRouter(Config{Table: tbl, WorkerCount: 2})
	r.Start(context.Background())

	for range 3 {
		if err := r.Submit(action("approve_request")); err != nil {
			t.Fatalf("Submit error: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		r.Stop(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not complete within 5 seconds")
	}
	// Queued units drain before Stop returns.
	rec.wait(t)
}

func TestRouter_Stop_Idempotent(t *testing.T) {
	t.Parallel()

	r, _ := NewRouter(Config{Table: NewTable()})
	r.Start(context.Background())
	r.Stop(context.Background())
	r.Stop(context.Background())
}

func TestRouter_SubmitConcurrentWithStop_NoPanic(t *testing.T) {
	t.Parallel()

	tbl := NewTable()
	tbl.MustRegister(interaction.KindBlockAction, "approve_request", func(context.Context, interaction.Interaction) error { return nil })
	r, _ := NewRouter(Config{Table: tbl, WorkerCount: 2, InboxSize: 32})
	r.Start(context.Background())

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := range 100 {
				in := action("approve_request")
				in.Value = fmt.Sprintf("%d-%d", worker, j)
				_ = r.Submit(in)
			}
		}(i)
	}

	time.Sleep(10 * time.Millisecond)
	r.Stop(context.Background())
	wg.Wait()
}

func TestRouter_Stop_DeadlineCancelsInFlight(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	tbl := NewTable()
	tbl.MustRegister(interaction.KindBlockAction, "approve_request", func(ctx context.Context, _ interaction.Interaction) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	r, _ := NewRouter(Config{Table: tbl, WorkerCount: 1, Timeout: time.Minute})
	r.Start(context.Background())
	if err := r.Submit(action("approve_request")); err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for in-flight handler start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		r.Stop(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not complete; expected cancellation of in-flight handler")
	}
}

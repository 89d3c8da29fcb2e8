package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/slackapprove/internal/telemetry"
	"github.com/flemzord/slackapprove/pkg/interaction"
)

// ServiceName is the AppContext service key for the running *Router.
const ServiceName = "router"

const (
	defaultInboxSize = 256
	defaultTimeout   = 30 * time.Second
)

// Limiter gates submissions per interaction kind.
type Limiter interface {
	Allow(kind string) error
}

// Config holds the configuration for a Router.
type Config struct {
	WorkerCount int
	InboxSize   int
	// Timeout bounds one handler invocation.
	Timeout time.Duration
	Table   *Table
	Logger  *slog.Logger

	// Metrics, if nil, records into a private registry.
	Metrics *telemetry.Metrics

	// Tracer, if nil, uses the global tracer provider.
	Tracer trace.Tracer

	// Limiter, if non-nil, rejects submissions over the configured rate.
	Limiter Limiter
}

// withDefaults returns a copy of the config with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.WorkerCount <= 0 {
		c.WorkerCount = DefaultWorkerCount
	}
	if c.InboxSize <= 0 {
		c.InboxSize = defaultInboxSize
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Metrics == nil {
		c.Metrics = telemetry.NewMetrics(nil)
	}
	if c.Tracer == nil {
		c.Tracer = telemetry.Tracer(nil)
	}
	return c
}

// Router accepts acknowledged interactions, queues them, and runs their
// handlers on a worker pool. Submit never blocks.
type Router struct {
	config   Config
	table    *Table
	inbox    chan envelope
	inboxMu  sync.RWMutex
	pool     *workerPool
	cancel   context.CancelFunc
	stopOnce sync.Once
	logger   *slog.Logger
	stopped  atomic.Bool
}

// NewRouter creates a new Router with the given configuration. The table
// is frozen here; later registrations fail.
func NewRouter(cfg Config) (*Router, error) {
	cfg = cfg.withDefaults()

	if cfg.Table == nil {
		return nil, ErrNoTable
	}
	cfg.Table.Freeze()

	return &Router{
		config: cfg,
		table:  cfg.Table,
		inbox:  make(chan envelope, cfg.InboxSize),
		pool:   newWorkerPool(cfg.WorkerCount),
		logger: cfg.Logger,
	}, nil
}

// Start launches the worker pool and begins processing interactions.
func (r *Router) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.inboxMu.Lock()
	if r.stopped.Load() {
		r.inboxMu.Unlock()
		cancel()
		r.logger.Warn("router: start ignored, router already stopped")
		return
	}
	r.cancel = cancel
	r.inboxMu.Unlock()

	r.pool.run(ctx, r.inbox, r.execute)
	r.logger.Info("router: started",
		"workers", r.config.WorkerCount,
		"inbox_size", r.config.InboxSize,
		"handlers", len(r.table.Keys()),
	)
}

// Submit enqueues an interaction for processing. Interactions without a
// handler are dropped with ErrNoHandler. If the inbox is full, the
// interaction is dropped with a warning log.
func (r *Router) Submit(in interaction.Interaction) error {
	r.inboxMu.RLock()
	defer r.inboxMu.RUnlock()

	if r.stopped.Load() {
		return ErrRouterStopped
	}

	key := in.Key()
	m := r.config.Metrics

	h, ok := r.table.Lookup(key)
	if !ok {
		r.logger.Debug("router: no handler, interaction dropped", "interaction", key.String(), "user", in.UserID)
		m.Interactions.WithLabelValues(string(in.Kind), in.ID, telemetry.ResultUnrouted).Inc()
		return fmt.Errorf("%w: %s", ErrNoHandler, key)
	}

	if r.config.Limiter != nil {
		if err := r.config.Limiter.Allow(string(in.Kind)); err != nil {
			r.logger.Warn("router: interaction rate limited", "interaction", key.String(), "user", in.UserID)
			m.Interactions.WithLabelValues(string(in.Kind), in.ID, telemetry.ResultLimited).Inc()
			return err
		}
	}

	if in.ReceivedAt.IsZero() {
		in.ReceivedAt = time.Now()
	}
	env := envelope{Interaction: in, Handler: h, Enqueued: time.Now()}

	// Non-blocking send: drop with warning if inbox is full.
	select {
	case r.inbox <- env:
		m.InboxDepth.Set(float64(len(r.inbox)))
		return nil
	default:
		r.logger.Warn("router: inbox full, interaction dropped",
			"interaction", key.String(),
			"user", in.UserID,
		)
		m.Interactions.WithLabelValues(string(in.Kind), in.ID, telemetry.ResultDropped).Inc()
		return ErrInboxFull
	}
}

// execute runs one envelope with a timeout, a span, and panic recovery.
func (r *Router) execute(ctx context.Context, env envelope) {
	m := r.config.Metrics
	m.InboxDepth.Set(float64(len(r.inbox)))

	in := env.Interaction
	kind := string(in.Kind)

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	ctx, span := r.config.Tracer.Start(ctx, "interaction "+in.Key().String(),
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("interaction.kind", kind),
			attribute.String("interaction.id", in.ID),
			attribute.String("interaction.user", in.UserID),
			attribute.Int64("interaction.queue_ms", time.Since(env.Enqueued).Milliseconds()),
		),
	)

	start := time.Now()
	err := r.invoke(ctx, env)
	elapsed := time.Since(start)

	result := telemetry.Result(err)
	var pe *panicError
	switch {
	case errors.As(err, &pe):
		result = telemetry.ResultPanic
	case errors.Is(err, context.DeadlineExceeded):
		result = telemetry.ResultTimeout
	}

	m.Interactions.WithLabelValues(kind, in.ID, result).Inc()
	m.InteractionDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	telemetry.EndSpan(span, err)

	if err != nil {
		r.logger.Error("router: handler failed",
			"interaction", in.Key().String(),
			"user", in.UserID,
			"result", result,
			"duration", elapsed,
			"error", err,
		)
		return
	}
	r.logger.Debug("router: handled", "interaction", in.Key().String(), "duration", elapsed)
}

// panicError carries a recovered handler panic.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.value)
}

func (r *Router) invoke(ctx context.Context, env envelope) (err error) {
	defer func() {
		if v := recover(); v != nil {
			pe := &panicError{value: v, stack: debug.Stack()}
			r.logger.Error("router: recovered handler panic",
				"interaction", env.Interaction.Key().String(),
				"panic", v,
				"stack", string(pe.stack),
			)
			err = pe
		}
	}()
	return env.Handler(ctx, env.Interaction)
}

// InFlight returns the number of handlers currently running.
func (r *Router) InFlight() int64 {
	return r.pool.busy.Load()
}

// Queued returns the number of interactions waiting for a worker.
func (r *Router) Queued() int {
	return len(r.inbox)
}

// Stop gracefully shuts down the router: closes inbox, drains workers, cancels context.
// Queued interactions still run, bounded by ctx.
func (r *Router) Stop(ctx context.Context) {
	r.stopOnce.Do(func() {
		r.logger.Info("router: stopping", "queued", len(r.inbox))

		r.inboxMu.Lock()
		r.stopped.Store(true)
		close(r.inbox)
		cancel := r.cancel
		r.inboxMu.Unlock()

		done := r.pool.drained()
		select {
		case <-done:
		case <-ctx.Done():
			r.logger.Warn("router: drain deadline reached, cancelling handlers")
			if cancel != nil {
				cancel()
			}
			<-done
		}
		if cancel != nil {
			cancel()
		}
		r.logger.Info("router: stopped")
	})
}

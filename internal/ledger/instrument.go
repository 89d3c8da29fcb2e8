package ledger

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/slackapprove/internal/telemetry"
)

// Instrumented wraps a Store with claim metrics and spans.
type Instrumented struct {
	Store
	metrics *telemetry.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

// Instrument decorates s. A nil metrics or tracer falls back to a private
// registry and the global tracer provider.
func Instrument(s Store, metrics *telemetry.Metrics, tracer trace.Tracer, logger *slog.Logger) *Instrumented {
	if metrics == nil {
		metrics = telemetry.NewMetrics(nil)
	}
	if tracer == nil {
		tracer = telemetry.Tracer(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Instrumented{Store: s, metrics: metrics, tracer: tracer, logger: logger}
}

// Claim implements workflow.Ledger.
func (i *Instrumented) Claim(ctx context.Context, key, status string) (string, bool, error) {
	backend := i.Backend()
	ctx, span := i.tracer.Start(ctx, "ledger.claim",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("ledger.backend", backend),
			attribute.String("approval.status", status),
		),
	)

	recorded, claimed, err := i.Store.Claim(ctx, key, status)
	outcome := Outcome(status, recorded, claimed, err)

	span.SetAttributes(attribute.String("ledger.outcome", outcome))
	telemetry.EndSpan(span, err)
	i.metrics.LedgerClaims.WithLabelValues(backend, outcome).Inc()
	i.logger.Debug("ledger: claim", "backend", backend, "outcome", outcome)

	return recorded, claimed, err
}

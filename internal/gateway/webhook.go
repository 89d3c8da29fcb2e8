package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/slackapprove/internal/telemetry"
)

// WebhookHandler processes a verified webhook payload. It must return
// quickly: the HTTP response is written only after it returns.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, source string, body []byte, headers http.Header) error
}

// Verifier authenticates a raw webhook request before it reaches the handler.
type Verifier interface {
	Verify(headers http.Header, body []byte) error
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(headers http.Header, body []byte) error

// Verify implements Verifier.
func (f VerifierFunc) Verify(headers http.Header, body []byte) error {
	return f(headers, body)
}

type webhookEntry struct {
	handler  WebhookHandler
	verifier Verifier
}

// WebhookDispatcher routes incoming webhooks to registered handlers after
// per-source verification.
type WebhookDispatcher struct {
	mu       sync.RWMutex
	handlers map[string]webhookEntry
	logger   *slog.Logger
	maxBody  int64
	metrics  *telemetry.Metrics
}

// NewWebhookDispatcher creates a ready-to-use dispatcher. maxBody <= 0 uses
// DefaultMaxBodyBytes; a nil metrics records into a private registry.
func NewWebhookDispatcher(logger *slog.Logger, maxBody int64, metrics *telemetry.Metrics) *WebhookDispatcher {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	if metrics == nil {
		metrics = telemetry.NewMetrics(nil)
	}
	return &WebhookDispatcher{
		handlers: make(map[string]webhookEntry),
		logger:   logger,
		maxBody:  maxBody,
		metrics:  metrics,
	}
}

// Register adds a handler for the given source. A nil verifier accepts every
// request.
func (d *WebhookDispatcher) Register(source string, h WebhookHandler, v Verifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[source] = webhookEntry{handler: h, verifier: v}
}

// Sources returns the registered source names, sorted.
func (d *WebhookDispatcher) Sources() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.handlers))
	for s := range d.handlers {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// ServeHTTP implements http.Handler. It extracts the source from the chi URL
// param, verifies the request, and dispatches to the registered handler.
// Success is an empty 200.
func (d *WebhookDispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	code := d.serve(w, r, source)
	d.metrics.WebhookRequests.WithLabelValues(source, strconv.Itoa(code)).Inc()
}

func (d *WebhookDispatcher) serve(w http.ResponseWriter, r *http.Request, source string) int {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return http.StatusMethodNotAllowed
	}

	d.mu.RLock()
	entry, ok := d.handlers[source]
	d.mu.RUnlock()

	if !ok {
		d.logger.Warn("webhook received for unregistered source", "source", source)
		http.Error(w, "unknown source", http.StatusNotFound)
		return http.StatusNotFound
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, d.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			d.logger.Warn("webhook body too large", "source", source, "limit", tooLarge.Limit)
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return http.StatusRequestEntityTooLarge
		}
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return http.StatusBadRequest
	}

	if entry.verifier != nil {
		if err := entry.verifier.Verify(r.Header, body); err != nil {
			d.logger.Warn("webhook verification failed", "source", source, "error", err)
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return http.StatusUnauthorized
		}
	}

	if err := entry.handler.HandleWebhook(r.Context(), source, body, r.Header); err != nil {
		d.logger.Warn("webhook rejected", "source", source, "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return http.StatusBadRequest
	}

	w.WriteHeader(http.StatusOK)
	return http.StatusOK
}

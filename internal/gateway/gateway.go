package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/flemzord/slackapprove/internal/core"
	"github.com/flemzord/slackapprove/internal/ledger"
	"github.com/flemzord/slackapprove/internal/router"
	"github.com/flemzord/slackapprove/internal/telemetry"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// ServiceDispatcher is the AppContext service key for the *WebhookDispatcher.
const ServiceDispatcher = "gateway.webhook_dispatcher"

// RouterStats reports router load.
type RouterStats interface {
	InFlight() int64
	Queued() int
}

// Pinger checks a backing store.
type Pinger interface {
	Backend() string
	Ping(ctx context.Context) error
}

// Gateway is the HTTP gateway module. It exposes health, metrics, status and
// webhook endpoints. It is a leaf module: nothing imports it except the
// channels that register webhook sources.
type Gateway struct {
	config     Config
	appCtx     *core.AppContext
	logger     *slog.Logger
	server     *http.Server
	metrics    *telemetry.Metrics
	dispatcher *WebhookDispatcher
	startedAt  time.Time

	// Resolved lazily at Start() via service registry.
	stats  RouterStats
	ledger Pinger
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger

	if m, ok := core.ServiceAs[*telemetry.Metrics](ctx, telemetry.ServiceName); ok {
		g.metrics = m
	} else {
		g.metrics = telemetry.NewMetrics(nil)
	}

	g.dispatcher = NewWebhookDispatcher(g.logger, g.config.MaxBodyBytes, g.metrics)
	ctx.RegisterService(ServiceDispatcher, g.dispatcher)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	// Optional services; health degrades gracefully without them.
	if st, ok := core.ServiceAs[RouterStats](g.appCtx, router.ServiceName); ok {
		g.stats = st
	}
	if p, ok := core.ServiceAs[Pinger](g.appCtx, ledger.ServiceName); ok {
		g.ledger = p
	}

	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

// Dispatcher returns the webhook dispatcher. Valid after Provision.
func (g *Gateway) Dispatcher() *WebhookDispatcher {
	return g.dispatcher
}

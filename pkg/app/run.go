// Package app provides the shared entry point for the slackapprove binary
// and its service wrapper.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flemzord/slackapprove/internal/config"
	"github.com/flemzord/slackapprove/internal/core"
	"github.com/flemzord/slackapprove/internal/cron"
	"github.com/flemzord/slackapprove/internal/router"
	"github.com/flemzord/slackapprove/internal/security"
	"github.com/flemzord/slackapprove/internal/telemetry"
)

const tracingShutdownTimeout = 5 * time.Second

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.FindPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the default persistent data directory.
	DataDir string

	// LogOutput receives log records. Defaults to os.Stderr.
	LogOutput io.Writer
}

// Runtime is a loaded, not yet started application.
type Runtime struct {
	App     *core.App
	Context *core.AppContext
	Router  *router.Router
	Metrics *telemetry.Metrics
	Logger  *slog.Logger

	shutdownTracing telemetry.ShutdownFunc
}

// Build loads and validates the configuration, sets up logging and
// telemetry, loads every configured module and wires the router. Nothing
// is started.
func Build(params RunParams) (*Runtime, error) {
	cfgPath, err := config.FindPath(params.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return BuildFromConfig(cfg, params)
}

// BuildFromConfig is Build for an already loaded and validated config.
func BuildFromConfig(cfg *config.Config, params RunParams) (*Runtime, error) {
	out := params.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger, err := NewLogger(cfg.Log, out, config.Secrets(cfg)...)
	if err != nil {
		return nil, err
	}

	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	if cfg.Telemetry.RuntimeMetrics {
		metrics.RegisterRuntime()
	}

	_, shutdownTracing, err := telemetry.SetupTracing(context.Background(), cfg.Telemetry.Tracing, "slackapprove", params.Version)
	if err != nil {
		return nil, err
	}

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	appCtx := core.NewAppContext(logger, dataDir)
	appCtx = appCtx.WithModuleConfigs(cfg.Modules)

	scheduler := cron.NewScheduler(logger.With("component", "cron"))
	appCtx.RegisterService(telemetry.ServiceName, metrics)
	appCtx.RegisterService(cron.ServiceName, scheduler)

	application := core.NewApp(appCtx)
	if err := application.LoadModules(config.Resolve(cfg)); err != nil {
		_ = shutdownTracing(context.Background())
		return nil, err
	}

	r, err := wireRouter(application, appCtx, cfg.Router, logger.With("component", "router"))
	if err != nil {
		_ = application.Stop()
		_ = shutdownTracing(context.Background())
		return nil, err
	}
	application.AppendModule("cron", scheduler)

	logger.Info("slackapprove loaded", "version", params.Version, "commit", params.Commit, "built", params.Date)
	return &Runtime{
		App:             application,
		Context:         appCtx,
		Router:          r,
		Metrics:         metrics,
		Logger:          logger,
		shutdownTracing: shutdownTracing,
	}, nil
}

// Start starts every module in load order.
func (rt *Runtime) Start() error {
	if err := rt.App.Start(); err != nil {
		rt.flushTracing()
		return err
	}
	return nil
}

// Stop stops every module in reverse order and flushes pending spans.
func (rt *Runtime) Stop() {
	if err := rt.App.Stop(); err != nil {
		rt.Logger.Warn("shutdown finished with errors", "error", err)
	}
	rt.flushTracing()
	rt.Logger.Info("shutdown complete")
}

func (rt *Runtime) flushTracing() {
	ctx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
	defer cancel()
	if err := rt.shutdownTracing(ctx); err != nil {
		rt.Logger.Warn("tracing shutdown failed", "error", err)
	}
}

// Run builds and starts the application, then blocks until SIGINT or
// SIGTERM.
func Run(params RunParams) error {
	rt, err := Build(params)
	if err != nil {
		return err
	}
	if err := rt.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	rt.Logger.Info("shutdown signal received", "signal", sig.String())
	rt.Stop()
	return nil
}

// NewLogger builds the process logger: a text or JSON handler at the
// configured level, wrapped so secrets never reach the output. Each of
// secrets is also redacted verbatim.
func NewLogger(cfg config.LogConfig, w io.Writer, secrets ...string) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	switch cfg.Format {
	case "", "text":
		inner = slog.NewTextHandler(w, opts)
	case "json":
		inner = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("log format %q: must be text or json", cfg.Format)
	}
	redactor := security.NewRedactor()
	for _, s := range secrets {
		redactor.AddLiteral(s)
	}
	return slog.New(security.NewRedactingHandler(inner, redactor)), nil
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/slackapprove if set, otherwise ~/.local/share/slackapprove.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, "slackapprove")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "slackapprove")
}

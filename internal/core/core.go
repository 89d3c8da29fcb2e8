package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const shutdownTimeout = 30 * time.Second

// App runs a fixed list of modules: the ones named in the config, loaded by
// LoadModules, followed by the ones assembled at wiring time (the router,
// the cron scheduler) and added with AppendModule.
type App struct {
	ctx     *AppContext
	modules []moduleInstance
	logger  *slog.Logger
	ran     bool
}

type moduleInstance struct {
	id      ModuleID
	module  Module
	started bool
}

// NewApp creates a new App with the given context.
func NewApp(ctx *AppContext) *App {
	return &App{
		ctx:    ctx,
		logger: ctx.Logger.With("component", "core"),
	}
}

// LoadModules runs New, Configure, Provision and Validate for each ID in
// order. On failure every module loaded so far is stopped and discarded.
func (a *App) LoadModules(ids []string) error {
	for _, id := range ids {
		mod, err := a.ctx.LoadModule(id)
		if err != nil {
			a.discard()
			return fmt.Errorf("loading module %s: %w", id, err)
		}
		a.modules = append(a.modules, moduleInstance{id: mod.ModuleInfo().ID, module: mod})
		a.logger.Info("module loaded", "module", id)
	}
	return nil
}

// AppendModule adds an already-built module to the end of the lifecycle.
func (a *App) AppendModule(id ModuleID, mod Module) {
	a.modules = append(a.modules, moduleInstance{id: id, module: mod})
}

// Module returns the module registered in the lifecycle under id.
func (a *App) Module(id string) (Module, bool) {
	for _, mi := range a.modules {
		if string(mi.id) == id {
			return mi.module, true
		}
	}
	return nil, false
}

// IDs returns the lifecycle order.
func (a *App) IDs() []string {
	ids := make([]string, len(a.modules))
	for i, mi := range a.modules {
		ids[i] = string(mi.id)
	}
	return ids
}

// Start starts modules in order. If one fails, the modules after it are
// released, the ones already started are stopped in reverse order, and the
// start error is returned.
func (a *App) Start() error {
	a.ran = true
	for i := range a.modules {
		mi := &a.modules[i]
		if s, ok := mi.module.(Starter); ok {
			a.logger.Info("starting module", "module", string(mi.id))
			if err := s.Start(); err != nil {
				a.logger.Error("module start failed", "module", string(mi.id), "error", err)
				a.release(i + 1)
				_ = a.stopFrom(i - 1)
				return fmt.Errorf("starting module %s: %w", mi.id, err)
			}
		}
		mi.started = true
	}
	a.logger.Info("all modules started", "modules", len(a.modules))
	return nil
}

// Stop stops every started module in reverse order under a shared
// deadline. Stop errors are logged and joined; every module is still asked
// to stop. On an App that was loaded but never started, Stop releases what
// Provision acquired (ledger connections, database files).
func (a *App) Stop() error {
	if !a.ran {
		a.discard()
		return nil
	}
	return a.stopFrom(len(a.modules) - 1)
}

func (a *App) stopFrom(last int) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	for i := last; i >= 0; i-- {
		mi := &a.modules[i]
		if !mi.started {
			continue
		}
		mi.started = false
		if err := stopModule(ctx, mi); err != nil {
			a.logger.Error("module stop error", "module", string(mi.id), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// discard releases every loaded module and forgets them.
func (a *App) discard() {
	a.release(0)
	a.modules = nil
}

// release stops modules[from:], which were loaded but never started, in
// reverse order so Provision-time resources are closed.
func (a *App) release(from int) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(a.modules) - 1; i >= from; i-- {
		_ = stopModule(ctx, &a.modules[i])
	}
}

func stopModule(ctx context.Context, mi *moduleInstance) error {
	s, ok := mi.module.(Stopper)
	if !ok {
		return nil
	}
	if err := s.Stop(ctx); err != nil {
		return fmt.Errorf("stopping module %s: %w", mi.id, err)
	}
	return nil
}

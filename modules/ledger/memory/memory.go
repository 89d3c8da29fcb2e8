// Package memory provides the "ledger.memory" module: a process-local
// decision ledger for single-replica deployments.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/slackapprove/internal/core"
	"github.com/flemzord/slackapprove/internal/cron"
	"github.com/flemzord/slackapprove/internal/ledger"
)

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Config holds the memory ledger configuration.
type Config struct {
	TTL           time.Duration `yaml:"ttl"`
	PruneSchedule string        `yaml:"prune_schedule"`
}

func (c *Config) defaults() {
	if c.TTL == 0 {
		c.TTL = ledger.DefaultTTL
	}
	if c.PruneSchedule == "" {
		c.PruneSchedule = "*/5 * * * *"
	}
}

// Module wraps a ledger.MemoryStore.
type Module struct {
	config Config
	store  *ledger.MemoryStore
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "ledger.memory",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("memory ledger: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger
	m.store = ledger.NewMemoryStore(m.config.TTL)
	if err := ledger.Provide(ctx, m.store, m.config.PruneSchedule); err != nil {
		return err
	}
	m.logger.Info("memory ledger provisioned", "ttl", m.config.TTL)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if m.config.TTL < 0 {
		return fmt.Errorf("memory ledger: ttl must be positive, got %s", m.config.TTL)
	}
	if m.config.PruneSchedule != "" {
		if err := cron.ValidateSchedule(m.config.PruneSchedule); err != nil {
			return fmt.Errorf("memory ledger: prune_schedule: %w", err)
		}
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}

// Package redis implements a decision ledger module on Redis, for
// deployments that run more than one replica.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/slackapprove/internal/core"
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

const pingTimeout = 5 * time.Second

// Module provides the "ledger.redis" decision ledger.
type Module struct {
	config Config
	store  *Store
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "ledger.redis",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("redis: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner. The connection is lazy; Validate
// checks reachability.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if err := m.config.validate(); err != nil {
		return err
	}
	opts, err := m.config.options()
	if err != nil {
		return err
	}

	m.store = NewStore(goredis.NewClient(opts), m.config.KeyPrefix, m.config.TTL)
	if err := ledger.Provide(ctx, m.store, ""); err != nil {
		_ = m.store.Close()
		return err
	}

	m.logger.Info("redis ledger provisioned", "addr", opts.Addr, "db", opts.DB, "ttl", m.config.TTL)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := m.store.Ping(ctx); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("redis ledger stopping")
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}

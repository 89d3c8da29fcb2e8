package sqlite

import (
	"fmt"
	"time"

	"github.com/flemzord/slackapprove/internal/cron"
	"github.com/flemzord/slackapprove/internal/ledger"
)

const (
	defaultBusyTimeout   = 5000
	defaultDBFile        = "ledger.db"
	defaultPruneSchedule = "*/15 * * * *"
)

// Config holds the SQLite ledger module configuration.
type Config struct {
	// Path is the database file path. Defaults to {DataDir}/ledger.db.
	Path string `yaml:"path"`

	// WAL enables WAL journal mode for concurrent reads. Defaults to true.
	WAL *bool `yaml:"wal"`

	// BusyTimeout is the milliseconds to wait on a busy lock. Defaults to 5000.
	BusyTimeout int `yaml:"busy_timeout"`

	// TTL is how long a decision is remembered. Defaults to 168h.
	TTL time.Duration `yaml:"ttl"`

	// PruneSchedule is the cron expression for deleting expired rows.
	PruneSchedule string `yaml:"prune_schedule"`
}

func (c *Config) defaults() {
	if c.WAL == nil {
		t := true
		c.WAL = &t
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
	if c.TTL == 0 {
		c.TTL = ledger.DefaultTTL
	}
	if c.PruneSchedule == "" {
		c.PruneSchedule = defaultPruneSchedule
	}
}

func (c *Config) walEnabled() bool {
	return c.WAL == nil || *c.WAL
}

func (c *Config) validate() error {
	if c.BusyTimeout < 0 {
		return fmt.Errorf("sqlite: busy_timeout must be non-negative, got %d", c.BusyTimeout)
	}
	if c.TTL < 0 {
		return fmt.Errorf("sqlite: ttl must be positive, got %s", c.TTL)
	}
	if c.PruneSchedule != "" {
		if err := cron.ValidateSchedule(c.PruneSchedule); err != nil {
			return fmt.Errorf("sqlite: prune_schedule: %w", err)
		}
	}
	return nil
}

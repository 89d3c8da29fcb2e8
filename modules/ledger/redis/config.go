package redis

import (
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/flemzord/slackapprove/internal/ledger"
)

const defaultKeyPrefix = "slackapprove:decision:"

// Config holds the Redis ledger module configuration. Either URL or Addr
// must be set; URL wins when both are.
type Config struct {
	URL       string        `yaml:"url"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

func (c *Config) defaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = defaultKeyPrefix
	}
	if c.TTL == 0 {
		c.TTL = ledger.DefaultTTL
	}
}

func (c *Config) validate() error {
	if c.URL == "" && c.Addr == "" {
		return errors.New("redis: url or addr is required")
	}
	if c.TTL < 0 {
		return fmt.Errorf("redis: ttl must be positive, got %s", c.TTL)
	}
	return nil
}

// options builds client options from the config.
func (c *Config) options() (*goredis.Options, error) {
	if c.URL != "" {
		opts, err := goredis.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("redis: parse url: %w", err)
		}
		return opts, nil
	}
	return &goredis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	}, nil
}

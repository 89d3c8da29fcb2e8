package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/slackapprove/internal/core"
)

// Well-known module IDs the configuration must reference.
const (
	ChannelModule   = "channel.slack"
	GatewayModule   = "gateway.http"
	LedgerNamespace = "ledger"
)

// Validate checks the structural validity of a Config.
// It verifies the version field, ensures modules are present, checks that
// all referenced module IDs exist in the registry, and enforces the module
// set the workflow needs: the Slack channel, the HTTP gateway when the
// channel receives over HTTP, and at most one decision ledger.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	for _, id := range Resolve(cfg) {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, unknownModule(id))
		}
	}

	errs = append(errs, validateModuleSet(cfg)...)
	errs = append(errs, validateLog(cfg.Log)...)
	errs = append(errs, validateTelemetry(cfg.Telemetry)...)
	errs = append(errs, validateRouter(cfg.Router)...)

	return errors.Join(errs...)
}

// unknownModule names the compiled-in alternatives from the same namespace,
// so a typo like "ledger.redsi" points at ledger.redis.
func unknownModule(id string) error {
	ns := core.ModuleID(id).Namespace()
	var known []string
	for _, info := range core.GetModulesByNamespace(ns) {
		known = append(known, string(info.ID))
	}
	if len(known) == 0 {
		return fmt.Errorf("config: unknown module %q", id)
	}
	return fmt.Errorf("config: unknown module %q (available: %s)", id, strings.Join(known, ", "))
}

// channelMode is the subset of channel.slack config validation needs.
type channelMode struct {
	Mode string `yaml:"mode"`
}

func validateModuleSet(cfg *Config) []error {
	var errs []error

	node, ok := cfg.Modules[ChannelModule]
	if !ok {
		errs = append(errs, fmt.Errorf("config: module %q is required", ChannelModule))
	} else {
		var cm channelMode
		if err := node.Decode(&cm); err != nil {
			errs = append(errs, fmt.Errorf("config: module %q: %w", ChannelModule, err))
		}
		if (cm.Mode == "" || cm.Mode == "http") && !hasModule(cfg, GatewayModule) {
			errs = append(errs, fmt.Errorf("config: module %q is required when %s receives over http", GatewayModule, ChannelModule))
		}
	}

	var ledgers []string
	for _, id := range Resolve(cfg) {
		if core.ModuleID(id).Namespace() == LedgerNamespace {
			ledgers = append(ledgers, id)
		}
	}
	if len(ledgers) > 1 {
		errs = append(errs, fmt.Errorf("config: at most one ledger module may be configured, got %s", strings.Join(ledgers, ", ")))
	}

	return errs
}

func hasModule(cfg *Config, id string) bool {
	_, ok := cfg.Modules[id]
	return ok
}

func validateLog(l LogConfig) []error {
	var errs []error
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: log.level %q is not one of debug, info, warn, error", l.Level))
	}
	switch l.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format %q is not text or json", l.Format))
	}
	return errs
}

func validateTelemetry(t TelemetryConfig) []error {
	var errs []error
	switch t.Tracing.Exporter {
	case "", "otlp", "stdout":
	default:
		errs = append(errs, fmt.Errorf("config: telemetry.tracing.exporter %q is not otlp or stdout", t.Tracing.Exporter))
	}
	if t.Tracing.SampleRatio < 0 || t.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("config: telemetry.tracing.sample_ratio must be within [0, 1], got %v", t.Tracing.SampleRatio))
	}
	return errs
}

func validateRouter(r RouterConfig) []error {
	var errs []error
	if r.Workers < 0 {
		errs = append(errs, fmt.Errorf("config: router.workers must not be negative, got %d", r.Workers))
	}
	if r.InboxSize < 0 {
		errs = append(errs, fmt.Errorf("config: router.inbox_size must not be negative, got %d", r.InboxSize))
	}
	if r.Timeout < 0 {
		errs = append(errs, fmt.Errorf("config: router.timeout must not be negative, got %s", r.Timeout))
	}
	return errs
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// appName names the config directory and file.
const appName = "slackapprove"

// Resolve returns a sorted list of module IDs from the configuration.
// The deterministic order ensures consistent module loading.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// SearchPaths lists the config file locations tried when no path is given:
// $XDG_CONFIG_HOME (or ~/.config), then the working directory.
func SearchPaths() []string {
	var candidates []string
	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, appName, appName+".yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", appName, appName+".yaml"))
	}
	return append(candidates, appName+".yaml")
}

// FindPath returns explicit when set, otherwise the first existing file
// from SearchPaths.
func FindPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	candidates := SearchPaths()
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("config: %w (searched: %v)", ErrNotFound, candidates)
}

// ErrNotFound is returned by FindPath when no config file exists.
var ErrNotFound = errors.New("no configuration file found")

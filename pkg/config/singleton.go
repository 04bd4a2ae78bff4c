package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// The process-wide configuration used by the anvil command. Library
// packages take a *Config explicitly and never read it.
var (
	current  atomic.Pointer[Config]
	initOnce sync.Once
)

// Initialize loads path with environment overrides and installs the
// result as the process configuration. Only the first call loads; later
// calls return nil without reading path.
func Initialize(path string) error {
	var err error
	initOnce.Do(func() {
		var cfg *Config
		if cfg, err = LoadConfigWithEnvOverrides(path); err == nil {
			current.Store(cfg)
		}
	})
	return err
}

// GetConfig returns the process configuration, or nil before Initialize
// or SetConfig.
func GetConfig() *Config {
	return current.Load()
}

// SetConfig installs cfg as the process configuration.
func SetConfig(cfg *Config) {
	current.Store(cfg)
}

// ReloadConfig loads path and swaps it in. On error the installed
// configuration is left as is.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	current.Store(cfg)
	return nil
}

// MustGetConfig is GetConfig for code that runs after setup; it panics
// when no configuration is installed.
func MustGetConfig() *Config {
	cfg := current.Load()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}

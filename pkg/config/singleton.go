package config

import (
	"fmt"
	"sync"
)

// installed is the configuration of the running command.
var installed struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// Install loads the configuration at path (environment overrides included),
// lets override adjust it, validates the result and installs it. override
// receives command-line values that outrank the file and the environment;
// it may be nil. Nothing is installed when any step fails.
func Install(path string, override func(*Config)) (*Config, error) {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("invalid command-line override: %w", err)
		}
	}

	installed.mu.Lock()
	installed.cfg = cfg
	installed.path = path
	installed.mu.Unlock()
	return cfg, nil
}

// GetConfig returns the installed configuration, or nil before Install.
func GetConfig() *Config {
	installed.mu.RLock()
	defer installed.mu.RUnlock()
	return installed.cfg
}

// Source returns the file the installed configuration was read from. It is
// empty when only defaults and the environment applied.
func Source() string {
	installed.mu.RLock()
	defer installed.mu.RUnlock()
	return installed.path
}

// SetConfig installs cfg without loading anything. Passing nil resets the
// installed configuration, which tests use between cases.
func SetConfig(cfg *Config) {
	installed.mu.Lock()
	defer installed.mu.Unlock()
	installed.cfg = cfg
	installed.path = ""
}

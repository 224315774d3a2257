// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package consoleconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and parses the bootstrap configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration used when no config file is
// present.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// applyDefaults sets default values for missing config.
func (c *Config) applyDefaults() {
	if c.Server.HTTP == "" {
		c.Server.HTTP = ":8080"
	}
	if c.Library.Root == "" {
		c.Library.Root = "./shows"
	}
	if c.Library.InitialShow == "" {
		c.Library.InitialShow = "default"
	}
	if c.Reactor.UpdateMs == 0 {
		c.Reactor.UpdateMs = 10
	}
	if c.Reactor.RenderMs == 0 {
		c.Reactor.RenderMs = 20
	}
	// AutosaveMs stays 0 (disabled) unless configured — open
	// question (c).
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Reactor.UpdateMs <= 0 {
		return fmt.Errorf("reactor.update_ms must be positive")
	}
	if c.Reactor.RenderMs <= 0 {
		return fmt.Errorf("reactor.render_ms must be positive")
	}
	if c.Reactor.AutosaveMs < 0 {
		return fmt.Errorf("reactor.autosave_ms must not be negative")
	}
	seen := make(map[string]bool)
	for _, u := range c.Universes {
		key := u.Namespace + "/" + u.PortName
		if seen[key] {
			return fmt.Errorf("duplicate universe port binding %q", key)
		}
		seen[key] = true
	}
	return nil
}

/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

// Package config loads and validates seclink's process configuration:
// the socket to bind/dial, key-file paths, and logging verbosity. The
// CLI front end (cmd/seclink) layers flags over a YAML file loaded
// here, flags taking precedence field-by-field.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zx2c4dev/seclink/ratelimiter"
	"github.com/zx2c4dev/seclink/seclog"
)

// DefaultSocket is the default bind/dial address (spec.md §6).
const DefaultSocket = "127.0.0.1:1025"

// Transport selects the network stack an Endpoint runs over.
type Transport string

const (
	TransportTCP  Transport = "tcp"
	TransportQUIC Transport = "quic"
)

// RateLimitConfig configures the server's accept-side token bucket
// (ratelimiter.Limiter), keyed per source address.
type RateLimitConfig struct {
	AttemptsPerSecond int `yaml:"attempts_per_second"`
	Burst             int `yaml:"burst"`
}

// Config is seclink's process configuration.
type Config struct {
	Socket        string          `yaml:"socket"`
	PublicKeyFile string          `yaml:"public_key_file"`
	KeyFile       string          `yaml:"key_file"`
	MetricsAddr   string          `yaml:"metrics_addr"`
	LogLevel      string          `yaml:"log_level"`
	Transport     Transport       `yaml:"transport"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
}

// Default returns a Config with every field at its documented default.
func Default() Config {
	return Config{
		Socket:    DefaultSocket,
		Transport: TransportTCP,
		LogLevel:  "error",
		RateLimit: RateLimitConfig{AttemptsPerSecond: ratelimiter.DefaultAttemptsPerSecond, Burst: ratelimiter.DefaultBurst},
	}
}

// Load reads a YAML config file at path and merges it onto Default().
// A missing file is not an error; Load returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks that required fields are present for mode, one of
// "keygen", "server", "client".
func (c *Config) Validate(mode string) error {
	switch mode {
	case "keygen":
		if c.KeyFile == "" {
			return fmt.Errorf("config: keygen requires key_file")
		}
	case "server", "client":
		if c.KeyFile == "" {
			return fmt.Errorf("config: %s requires key_file", mode)
		}
		if c.PublicKeyFile == "" {
			return fmt.Errorf("config: %s requires public_key_file", mode)
		}
		if c.Socket == "" {
			return fmt.Errorf("config: %s requires socket", mode)
		}
		if c.Transport != TransportTCP && c.Transport != TransportQUIC {
			return fmt.Errorf("config: unknown transport %q", c.Transport)
		}
	default:
		return fmt.Errorf("config: unknown mode %q", mode)
	}
	return nil
}

// Logger builds the seclog.Logger this config describes.
func (c *Config) Logger() *seclog.Logger {
	return seclog.New(seclog.ParseLevel(c.LogLevel), "seclink: ")
}

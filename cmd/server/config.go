// Package main provides the taskboard server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Tasks     TasksConfig     `yaml:"tasks"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Verbose   bool            `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	HTTPAddress     string    `yaml:"http_address"`     // HTTP listen address (default: :8000)
	TLS             TLSConfig `yaml:"tls"`              // HTTPS for the API
	RequestTimeout  string    `yaml:"request_timeout"`  // per-request deadline (default: 10s)
	ShutdownTimeout string    `yaml:"shutdown_timeout"` // graceful shutdown budget (default: 10s)

	// TrustProxyHeaders takes the client IP from X-Forwarded-For and
	// X-Real-IP. Enable only behind a reverse proxy that sets them.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

// TLSConfig contains TLS settings for the API server.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // overridden by TASKBOARD_DB_PATH
}

// AuthConfig contains token and lockout settings.
type AuthConfig struct {
	AccessTokenTTL   string `yaml:"access_token_ttl"`  // default: 30m
	RefreshTokenTTL  string `yaml:"refresh_token_ttl"` // default: 168h
	LockoutThreshold int    `yaml:"lockout_threshold"` // failed logins before lockout
	LockoutDuration  string `yaml:"lockout_duration"`  // default: 15m
	StrictPasswords  bool   `yaml:"strict_passwords"`  // require 8+ chars with upper, lower and digit
}

// RateLimitConfig contains per-minute request limits. A negative value
// disables the limit.
type RateLimitConfig struct {
	PerIP   int `yaml:"per_ip"`
	PerUser int `yaml:"per_user"`
}

// TasksConfig controls who may touch tasks.
type TasksConfig struct {
	RequireMembership *bool `yaml:"require_membership"` // default: true
}

// MetricsConfig contains the Prometheus listener settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8000"
	}
	if c.Server.RequestTimeout == "" {
		c.Server.RequestTimeout = "10s"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/taskboard.db"
	}
	if c.Auth.AccessTokenTTL == "" {
		c.Auth.AccessTokenTTL = "30m"
	}
	if c.Auth.RefreshTokenTTL == "" {
		c.Auth.RefreshTokenTTL = "168h"
	}
	if c.Auth.LockoutThreshold == 0 {
		c.Auth.LockoutThreshold = 5
	}
	if c.Auth.LockoutDuration == "" {
		c.Auth.LockoutDuration = "15m"
	}
	if c.RateLimit.PerIP == 0 {
		c.RateLimit.PerIP = 20
	}
	if c.RateLimit.PerUser == 0 {
		c.RateLimit.PerUser = 300
	}
	if c.Tasks.RequireMembership == nil {
		require := true
		c.Tasks.RequireMembership = &require
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9100"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.HTTPAddress == "" {
		return fmt.Errorf("server.http_address is required")
	}
	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			return fmt.Errorf("server.tls.cert_file is required when TLS is enabled")
		}
		if c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("server.tls.key_file is required when TLS is enabled")
		}
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	durations := []struct {
		name  string
		value string
	}{
		{"server.request_timeout", c.Server.RequestTimeout},
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
		{"auth.access_token_ttl", c.Auth.AccessTokenTTL},
		{"auth.refresh_token_ttl", c.Auth.RefreshTokenTTL},
		{"auth.lockout_duration", c.Auth.LockoutDuration},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
		if v <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}

	if c.Auth.LockoutThreshold < 0 {
		return fmt.Errorf("auth.lockout_threshold must not be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics.address is required when metrics are enabled")
	}
	return nil
}

// duration parses a value already checked by Validate.
func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

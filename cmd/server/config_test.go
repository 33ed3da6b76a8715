package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate default config: %v", err)
	}
	if cfg.Server.HTTPAddress != ":8000" {
		t.Errorf("http_address = %q, want :8000", cfg.Server.HTTPAddress)
	}
	if cfg.Tasks.RequireMembership == nil || !*cfg.Tasks.RequireMembership {
		t.Error("require_membership should default to true")
	}

	acfg := apiConfig(cfg, []byte("secret"))
	if acfg.AccessTokenTTL != 30*time.Minute {
		t.Errorf("AccessTokenTTL = %v, want 30m", acfg.AccessTokenTTL)
	}
	if acfg.RefreshTokenTTL != 7*24*time.Hour {
		t.Errorf("RefreshTokenTTL = %v, want 168h", acfg.RefreshTokenTTL)
	}
	if !acfg.RequireTaskMembership {
		t.Error("RequireTaskMembership = false, want true")
	}
	if acfg.StrictPasswords || acfg.TrustProxyHeaders {
		t.Error("strict passwords and proxy headers should be off by default")
	}
}

func TestConfigValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"tls without cert", func(c *Config) {
			c.Server.TLS.Enabled = true
			c.Server.TLS.KeyFile = "key.pem"
		}},
		{"tls without key", func(c *Config) {
			c.Server.TLS.Enabled = true
			c.Server.TLS.CertFile = "cert.pem"
		}},
		{"bad access ttl", func(c *Config) { c.Auth.AccessTokenTTL = "not-a-duration" }},
		{"zero refresh ttl", func(c *Config) { c.Auth.RefreshTokenTTL = "0s" }},
		{"bad request timeout", func(c *Config) { c.Server.RequestTimeout = "ten" }},
		{"negative lockout", func(c *Config) { c.Auth.LockoutThreshold = -1 }},
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"metrics without address", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Address = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskboard.yaml")
	data := `
server:
  http_address: ":9000"
  trust_proxy_headers: true
database:
  path: /tmp/tb.db
auth:
  access_token_ttl: 5m
  strict_passwords: true
rate_limit:
  per_ip: -1
tasks:
  require_membership: false
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.HTTPAddress != ":9000" {
		t.Errorf("http_address = %q", cfg.Server.HTTPAddress)
	}
	if cfg.Database.Path != "/tmp/tb.db" {
		t.Errorf("database.path = %q", cfg.Database.Path)
	}
	if *cfg.Tasks.RequireMembership {
		t.Error("require_membership = true, want false")
	}
	if cfg.RateLimit.PerUser != 300 {
		t.Errorf("per_user = %d, want default 300", cfg.RateLimit.PerUser)
	}

	acfg := apiConfig(cfg, []byte("secret"))
	if acfg.AccessTokenTTL != 5*time.Minute {
		t.Errorf("AccessTokenTTL = %v, want 5m", acfg.AccessTokenTTL)
	}
	if acfg.RateLimitPerIP != -1 {
		t.Errorf("RateLimitPerIP = %d, want -1", acfg.RateLimitPerIP)
	}
	if !acfg.StrictPasswords {
		t.Error("StrictPasswords = false, want true")
	}
	if !acfg.TrustProxyHeaders {
		t.Error("TrustProxyHeaders = false, want true")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("auth:\n  lockout_duration: soon\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestResolveConfig_Secret(t *testing.T) {
	configFile, httpAddr, dbPath = "", "", ""

	t.Setenv("TASKBOARD_JWT_SECRET", "")
	if _, _, err := resolveConfig(); err == nil {
		t.Error("expected error without secret")
	}

	t.Setenv("TASKBOARD_JWT_SECRET", "short")
	if _, _, err := resolveConfig(); err == nil {
		t.Error("expected error for short secret")
	}

	t.Setenv("TASKBOARD_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("TASKBOARD_DB_PATH", "/tmp/env.db")
	cfg, secret, err := resolveConfig()
	if err != nil {
		t.Fatalf("resolve config: %v", err)
	}
	if len(secret) != 32 {
		t.Errorf("secret length = %d", len(secret))
	}
	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("database.path = %q, want env override", cfg.Database.Path)
	}

	dbPath = "/tmp/flag.db"
	defer func() { dbPath = "" }()
	cfg, _, err = resolveConfig()
	if err != nil {
		t.Fatalf("resolve config: %v", err)
	}
	if cfg.Database.Path != "/tmp/flag.db" {
		t.Errorf("database.path = %q, want flag override", cfg.Database.Path)
	}
}

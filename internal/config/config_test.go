// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWTSecret = testSecret
	cfg.FeatureFlags = DefaultFeatureFlags()
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Security.SessionTTL != 15*time.Minute {
		t.Errorf("Security.SessionTTL = %v, want 15m", cfg.Security.SessionTTL)
	}
	if cfg.Runtime.HandlerTimeout != 5*time.Second {
		t.Errorf("Runtime.HandlerTimeout = %v, want 5s", cfg.Runtime.HandlerTimeout)
	}
	if cfg.Realtime.NATS.Enabled {
		t.Error("Realtime.NATS.Enabled should be false by default")
	}
	if cfg.Events.ForwardEnabled {
		t.Error("Events.ForwardEnabled should be false by default")
	}
	if cfg.Tenancy.Store != "memory" {
		t.Errorf("Tenancy.Store = %q, want memory", cfg.Tenancy.Store)
	}
	if cfg.Security.JWTSecret != "" {
		t.Error("Security.JWTSecret must not have a default")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"missing secret", func(c *Config) { c.Security.JWTSecret = "" }, "JWT_SECRET is required"},
		{"short secret", func(c *Config) { c.Security.JWTSecret = "short" }, "at least 32"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"bad environment", func(c *Config) { c.Server.Environment = "prod" }, "ENVIRONMENT"},
		{"zero session ttl", func(c *Config) { c.Security.SessionTTL = 0 }, "SESSION_TTL"},
		{"zero handler timeout", func(c *Config) { c.Runtime.HandlerTimeout = 0 }, "HANDLER_TIMEOUT"},
		{"zero register timeout", func(c *Config) { c.Runtime.RegisterTimeout = 0 }, "REGISTER_TIMEOUT"},
		{"rate limit disabled skips checks", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, ""},
		{"zero rate limit", func(c *Config) { c.Security.RateLimitReqs = 0 }, "RATE_LIMIT_REQUESTS"},
		{"production wildcard cors", func(c *Config) { c.Server.Environment = "production" }, "CORS_ORIGINS"},
		{"production dev sessions", func(c *Config) {
			c.Server.Environment = "production"
			c.Security.CORSOrigins = []string{"https://app.example.com"}
			c.Security.DevSessions = true
		}, "DEV_SESSIONS"},
		{"badger without path", func(c *Config) {
			c.Tenancy.Store = "badger"
			c.Tenancy.BadgerPath = ""
		}, "TENANCY_BADGER_PATH"},
		{"unknown store", func(c *Config) { c.Tenancy.Store = "postgres" }, "TENANCY_STORE"},
		{"seed unknown plan", func(c *Config) {
			c.Tenancy.Seeds = []TenantSeed{{ID: "t1", Plan: "platinum"}}
		}, "unknown plan"},
		{"seed duplicate", func(c *Config) {
			c.Tenancy.Seeds = []TenantSeed{{ID: "t1", Plan: "free"}, {ID: "t1", Plan: "pro"}}
		}, "duplicate tenant"},
		{"nats external without url", func(c *Config) {
			c.Realtime.NATS.Enabled = true
			c.Realtime.NATS.Embedded = false
			c.Realtime.NATS.URL = ""
		}, "REALTIME_NATS_URL is required"},
		{"nats bad scheme", func(c *Config) {
			c.Realtime.NATS.Enabled = true
			c.Realtime.NATS.Embedded = false
			c.Realtime.NATS.URL = "http://nats:4222"
		}, "scheme must be"},
		{"nats wildcard prefix", func(c *Config) {
			c.Realtime.NATS.Enabled = true
			c.Realtime.NATS.SubjectPrefix = "tavola.>"
		}, "SUBJECT_PREFIX"},
		{"flag percentage", func(c *Config) {
			rule := c.FeatureFlags["financial-dashboard"]
			rule.Percentage = 150
			c.FeatureFlags["financial-dashboard"] = rule
		}, "percentage"},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFrom_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
security:
  jwt_secret: "` + testSecret + `"
  session_ttl: 5m
runtime:
  handler_timeout: 2s
tenancy:
  seeds:
    - id: trattoria
      name: Trattoria Roma
      plan: pro
      modules: [orders-module, financial]
feature_flags:
  financial-dashboard:
    enabled: true
    tenants: [trattoria]
  kitchen-display:
    enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HTTP_PORT", "9191")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := loadFrom(path)
	if err != nil {
		t.Fatalf("loadFrom() error = %v", err)
	}

	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want env override 9191", cfg.Server.Port)
	}
	if cfg.Security.SessionTTL != 5*time.Minute {
		t.Errorf("Security.SessionTTL = %v, want 5m", cfg.Security.SessionTTL)
	}
	if cfg.Runtime.HandlerTimeout != 2*time.Second {
		t.Errorf("Runtime.HandlerTimeout = %v, want 2s", cfg.Runtime.HandlerTimeout)
	}
	if cfg.Runtime.RegisterTimeout != 30*time.Second {
		t.Errorf("Runtime.RegisterTimeout = %v, want default 30s", cfg.Runtime.RegisterTimeout)
	}
	wantOrigins := []string{"https://a.example.com", "https://b.example.com"}
	if !slices.Equal(cfg.Security.CORSOrigins, wantOrigins) {
		t.Errorf("CORSOrigins = %v, want %v", cfg.Security.CORSOrigins, wantOrigins)
	}
	if len(cfg.Tenancy.Seeds) != 1 || cfg.Tenancy.Seeds[0].Plan != "pro" ||
		!slices.Equal(cfg.Tenancy.Seeds[0].Modules, []string{"orders-module", "financial"}) {
		t.Errorf("Tenancy.Seeds = %+v", cfg.Tenancy.Seeds)
	}
	if len(cfg.FeatureFlags) != 2 {
		t.Fatalf("FeatureFlags = %v, want 2 flags", cfg.FeatureFlags)
	}
	if r := cfg.FeatureFlags["financial-dashboard"]; !r.Enabled || !slices.Equal(r.Tenants, []string{"trattoria"}) {
		t.Errorf("financial-dashboard rule = %+v", r)
	}
}

func TestLoadFrom_DefaultFlags(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := loadFrom("")
	if err != nil {
		t.Fatalf("loadFrom() error = %v", err)
	}
	if !cfg.FeatureFlags["financial-dashboard"].Enabled {
		t.Errorf("FeatureFlags = %v, want default financial-dashboard enabled", cfg.FeatureFlags)
	}
}

func TestLoadFrom_ValidationFails(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := loadFrom(""); err == nil {
		t.Fatal("expected validation error without JWT_SECRET")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"HTTP_PORT":             "server.port",
		"SESSION_TTL":           "security.session_ttl",
		"HANDLER_TIMEOUT":       "runtime.handler_timeout",
		"REALTIME_NATS_ENABLED": "realtime.nats.enabled",
		"TENANCY_STORE":         "tenancy.store",
		"PATH":                  "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", got)
	}
}

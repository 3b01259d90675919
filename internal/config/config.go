// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/tavola/internal/featureflag"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in defaults for every setting
//  2. Config File: optional YAML file (config.yaml or CONFIG_PATH)
//  3. Environment Variables: override individual settings
//
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	Server       ServerConfig                `koanf:"server"`
	Security     SecurityConfig              `koanf:"security"`
	Runtime      RuntimeConfig               `koanf:"runtime"`
	Realtime     RealtimeConfig              `koanf:"realtime"`
	Events       EventsConfig                `koanf:"events"`
	Tenancy      TenancyConfig               `koanf:"tenancy"`
	FeatureFlags map[string]featureflag.Rule `koanf:"feature_flags"`
	Logging      LoggingConfig               `koanf:"logging"`
	Supervisor   SupervisorConfig            `koanf:"supervisor"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds session and access settings.
type SecurityConfig struct {
	JWTSecret string `koanf:"jwt_secret"`

	// SessionTTL is the session token lifetime. It is also the staleness
	// window of the activation snapshot: module deactivation and grant
	// changes reach a user at their next refresh.
	SessionTTL time.Duration `koanf:"session_ttl"`

	Issuer            string        `koanf:"issuer"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// DevSessions enables POST /api/v1/session, which issues a session for
	// any (user, tenant, role). Authentication is an external collaborator;
	// this endpoint exists for development and tests only.
	DevSessions bool `koanf:"dev_sessions"`

	Casbin CasbinConfig `koanf:"casbin"`
}

// CasbinConfig holds role grant policy settings.
type CasbinConfig struct {
	ModelPath      string        `koanf:"model_path"`  // empty uses the embedded model
	PolicyPath     string        `koanf:"policy_path"` // empty uses the embedded policy
	AutoReload     bool          `koanf:"auto_reload"`
	ReloadInterval time.Duration `koanf:"reload_interval"`
	CacheTTL       time.Duration `koanf:"cache_ttl"`
}

// RuntimeConfig holds module runtime settings.
type RuntimeConfig struct {
	// RegisterTimeout bounds each module's Register call during boot.
	RegisterTimeout time.Duration `koanf:"register_timeout"`

	// HandlerTimeout bounds every event handler invocation. A timeout is
	// logged as a handler failure; the publisher continues.
	HandlerTimeout time.Duration `koanf:"handler_timeout"`

	// StrictEventTypes rejects events whose source module did not declare them.
	StrictEventTypes bool `koanf:"strict_event_types"`
}

// RealtimeConfig holds WebSocket hub settings.
type RealtimeConfig struct {
	ClientBuffer    int                `koanf:"client_buffer"`
	BroadcastBuffer int                `koanf:"broadcast_buffer"`
	AllowedOrigins  []string           `koanf:"allowed_origins"`
	InboundRate     float64            `koanf:"inbound_rate"` // messages per second per socket
	InboundBurst    int                `koanf:"inbound_burst"`
	NATS            RealtimeNATSConfig `koanf:"nats"`
}

// RealtimeNATSConfig configures the cross-process realtime bridge.
type RealtimeNATSConfig struct {
	Enabled       bool   `koanf:"enabled"`
	URL           string `koanf:"url"`
	Embedded      bool   `koanf:"embedded"`
	EmbeddedPort  int    `koanf:"embedded_port"`
	StoreDir      string `koanf:"store_dir"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// EventsConfig controls forwarding of domain events to a message broker.
type EventsConfig struct {
	ForwardEnabled     bool          `koanf:"forward_enabled"`
	ForwardTopicPrefix string        `koanf:"forward_topic_prefix"`
	StreamName         string        `koanf:"stream_name"`
	BreakerFailures    uint32        `koanf:"breaker_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// TenancyConfig holds activation store settings.
type TenancyConfig struct {
	Store      string       `koanf:"store"` // memory or badger
	BadgerPath string       `koanf:"badger_path"`
	Seeds      []TenantSeed `koanf:"seeds"`
}

// TenantSeed creates a tenant and activates modules at startup.
type TenantSeed struct {
	ID      string   `koanf:"id"`
	Name    string   `koanf:"name"`
	Plan    string   `koanf:"plan"`
	Modules []string `koanf:"modules"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// SupervisorConfig holds supervisor tree settings.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load loads configuration from defaults, an optional config file, and
// environment variables.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

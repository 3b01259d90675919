// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/tavola/internal/featureflag"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tavola/config.yaml",
	"/etc/tavola/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			JWTSecret:         "",
			SessionTTL:        15 * time.Minute,
			Issuer:            "tavola",
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			DevSessions:       false,
			Casbin: CasbinConfig{
				AutoReload:     false,
				ReloadInterval: 30 * time.Second,
				CacheTTL:       5 * time.Minute,
			},
		},
		Runtime: RuntimeConfig{
			RegisterTimeout:  30 * time.Second,
			HandlerTimeout:   5 * time.Second,
			StrictEventTypes: false,
		},
		Realtime: RealtimeConfig{
			ClientBuffer:    256,
			BroadcastBuffer: 1024,
			AllowedOrigins:  []string{},
			InboundRate:     10,
			InboundBurst:    20,
			NATS: RealtimeNATSConfig{
				Enabled:       false,
				URL:           "nats://127.0.0.1:4222",
				Embedded:      true,
				EmbeddedPort:  4222,
				StoreDir:      "",
				SubjectPrefix: "tavola.realtime",
			},
		},
		Events: EventsConfig{
			ForwardEnabled:     false,
			ForwardTopicPrefix: "tavola.events",
			StreamName:         "TAVOLA_EVENTS",
			BreakerFailures:    5,
			BreakerTimeout:     30 * time.Second,
		},
		Tenancy: TenancyConfig{
			Store:      "memory",
			BadgerPath: "/data/tenancy",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// DefaultFeatureFlags is used when no feature_flags section is configured.
func DefaultFeatureFlags() map[string]featureflag.Rule {
	return map[string]featureflag.Rule{
		"financial-dashboard": {Enabled: true},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
// defaults, then the config file, then environment variables.
func LoadWithKoanf() (*Config, error) {
	return loadFrom(findConfigFile())
}

func loadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if len(cfg.FeatureFlags) == 0 {
		cfg.FeatureFlags = DefaultFeatureFlags()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// FilePath returns the config file Load reads, or empty when there is none.
func FilePath() string {
	return findConfigFile()
}

// findConfigFile returns the first existing config file path, or empty string.
// CONFIG_PATH takes precedence over the default search paths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are keys that accept comma-separated values from the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"realtime.allowed_origins",
}

// processSliceFields converts comma-separated strings to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to config keys.
var envMappings = map[string]string{
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	"jwt_secret":          "security.jwt_secret",
	"session_ttl":         "security.session_ttl",
	"session_issuer":      "security.issuer",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"dev_sessions":        "security.dev_sessions",

	"casbin_model_path":      "security.casbin.model_path",
	"casbin_policy_path":     "security.casbin.policy_path",
	"casbin_auto_reload":     "security.casbin.auto_reload",
	"casbin_reload_interval": "security.casbin.reload_interval",
	"casbin_cache_ttl":       "security.casbin.cache_ttl",

	"register_timeout":   "runtime.register_timeout",
	"handler_timeout":    "runtime.handler_timeout",
	"strict_event_types": "runtime.strict_event_types",

	"realtime_client_buffer":       "realtime.client_buffer",
	"realtime_broadcast_buffer":    "realtime.broadcast_buffer",
	"realtime_allowed_origins":     "realtime.allowed_origins",
	"realtime_inbound_rate":        "realtime.inbound_rate",
	"realtime_inbound_burst":       "realtime.inbound_burst",
	"realtime_nats_enabled":        "realtime.nats.enabled",
	"realtime_nats_url":            "realtime.nats.url",
	"realtime_nats_embedded":       "realtime.nats.embedded",
	"realtime_nats_embedded_port":  "realtime.nats.embedded_port",
	"realtime_nats_store_dir":      "realtime.nats.store_dir",
	"realtime_nats_subject_prefix": "realtime.nats.subject_prefix",

	"events_forward_enabled":      "events.forward_enabled",
	"events_forward_topic_prefix": "events.forward_topic_prefix",
	"events_stream_name":          "events.stream_name",
	"events_breaker_failures":     "events.breaker_failures",
	"events_breaker_timeout":      "events.breaker_timeout",

	"tenancy_store":       "tenancy.store",
	"tenancy_badger_path": "tenancy.badger_path",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc maps environment variable names to config keys.
// Unmapped variables return an empty key and are skipped, so unrelated
// environment variables never pollute the configuration.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

// WatchConfigFile calls callback whenever the file at path changes.
// The caller is responsible for synchronizing access to reloaded config.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}

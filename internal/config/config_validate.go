// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/tavola/internal/manifest"
)

// minJWTSecretLength is the minimum HMAC secret length in bytes.
const minJWTSecretLength = 32

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateRuntime(); err != nil {
		return err
	}
	if err := c.validateRealtime(); err != nil {
		return err
	}
	if err := c.validateTenancy(); err != nil {
		return err
	}
	if err := c.validateFeatureFlags(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development, staging, or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if c.Security.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %v", c.Security.SessionTTL)
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs <= 0 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.Security.RateLimitReqs)
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Security.RateLimitWindow)
		}
	}
	if c.IsProduction() {
		if c.Security.DevSessions {
			return fmt.Errorf("DEV_SESSIONS must be disabled in production")
		}
		for _, origin := range c.Security.CORSOrigins {
			if origin == "*" {
				return fmt.Errorf("CORS_ORIGINS must not contain * in production")
			}
		}
	}
	return nil
}

func (c *Config) validateRuntime() error {
	if c.Runtime.RegisterTimeout <= 0 {
		return fmt.Errorf("REGISTER_TIMEOUT must be positive, got %v", c.Runtime.RegisterTimeout)
	}
	if c.Runtime.HandlerTimeout <= 0 {
		return fmt.Errorf("HANDLER_TIMEOUT must be positive, got %v", c.Runtime.HandlerTimeout)
	}
	return nil
}

func (c *Config) validateRealtime() error {
	if c.Realtime.ClientBuffer <= 0 {
		return fmt.Errorf("REALTIME_CLIENT_BUFFER must be positive, got %d", c.Realtime.ClientBuffer)
	}
	if c.Realtime.BroadcastBuffer <= 0 {
		return fmt.Errorf("REALTIME_BROADCAST_BUFFER must be positive, got %d", c.Realtime.BroadcastBuffer)
	}
	if c.Realtime.InboundRate <= 0 || c.Realtime.InboundBurst <= 0 {
		return fmt.Errorf("REALTIME_INBOUND_RATE and REALTIME_INBOUND_BURST must be positive")
	}

	nc := c.Realtime.NATS
	if !nc.Enabled {
		return nil
	}
	if nc.SubjectPrefix == "" || strings.ContainsAny(nc.SubjectPrefix, " *>") {
		return fmt.Errorf("REALTIME_NATS_SUBJECT_PREFIX must be a literal subject, got %q", nc.SubjectPrefix)
	}
	if !nc.Embedded {
		if nc.URL == "" {
			return fmt.Errorf("REALTIME_NATS_URL is required when the embedded server is disabled")
		}
		if err := validateNATSURL(nc.URL); err != nil {
			return fmt.Errorf("REALTIME_NATS_URL is invalid: %w", err)
		}
	}
	return nil
}

func (c *Config) validateTenancy() error {
	switch c.Tenancy.Store {
	case "memory":
	case "badger":
		if c.Tenancy.BadgerPath == "" {
			return fmt.Errorf("TENANCY_BADGER_PATH is required when TENANCY_STORE=badger")
		}
	default:
		return fmt.Errorf("TENANCY_STORE must be memory or badger, got %q", c.Tenancy.Store)
	}

	seen := make(map[string]bool, len(c.Tenancy.Seeds))
	for i, seed := range c.Tenancy.Seeds {
		if seed.ID == "" {
			return fmt.Errorf("tenancy.seeds[%d]: id is required", i)
		}
		if seen[seed.ID] {
			return fmt.Errorf("tenancy.seeds[%d]: duplicate tenant %q", i, seed.ID)
		}
		seen[seed.ID] = true
		if !manifest.PlanTier(seed.Plan).Valid() {
			return fmt.Errorf("tenancy.seeds[%d]: unknown plan %q", i, seed.Plan)
		}
	}
	return nil
}

func (c *Config) validateFeatureFlags() error {
	for id, rule := range c.FeatureFlags {
		if rule.Percentage < 0 || rule.Percentage > 100 {
			return fmt.Errorf("feature_flags.%s: percentage must be between 0 and 100, got %d", id, rule.Percentage)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

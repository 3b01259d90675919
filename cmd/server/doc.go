// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

/*
Package main is the entry point for the Tavola server.

Tavola hosts restaurant feature modules (orders, kitchen sounds, financial
reporting) behind one process. Each module declares a manifest, registers
services and event handlers at boot, and exposes routes that are gated by
tenant activation and role grants.

# Startup Order

 1. Configuration: Koanf v2 (defaults, config file, environment)
 2. Logging: zerolog
 3. Tenancy: module catalog, activation store (memory or badger), seeds
 4. Authorization: Casbin role grants
 5. Sessions: JWT token manager and issuer
 6. Feature flags: rule provider behind a circuit breaker
 7. Event bus, plus the optional NATS forwarder
 8. Realtime hub, plus the optional NATS bridge
 9. Module runtime boot; any failure exits before the listener binds
 10. HTTP router and server
 11. Supervisor tree (suture v4) until SIGINT or SIGTERM

# Configuration

Settings come from config.yaml (or CONFIG_PATH) and environment variables.
Common variables:

	JWT_SECRET=...              # required, 32+ bytes
	SESSION_TTL=15m             # also the activation staleness window
	TENANCY_STORE=badger        # memory (default) or badger
	TENANCY_BADGER_PATH=/data/tenancy
	REALTIME_NATS_ENABLED=true  # fan realtime envelopes across processes
	EVENTS_FORWARD_ENABLED=true # republish domain events to JetStream
	DEV_SESSIONS=true           # POST /api/v1/session, never in production

Feature flags in the config file are reloaded when the file changes.
*/
package main

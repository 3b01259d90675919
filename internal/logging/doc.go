// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

// Package logging provides centralized zerolog-based structured logging for Tavola.
//
// The package provides:
//   - A global zerolog logger configured once at startup (JSON or console)
//   - Context-aware logging with correlation, request, and tenant IDs
//   - An slog adapter for the suture supervisor tree (sutureslog)
//   - A watermill.LoggerAdapter for the domain event forwarder
//   - Access-denial telemetry for the RBAC guard chain
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("module", "orders-module").Msg("Module registered")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Event handler failed")
//
// # Configuration
//
// Environment Variables:
//
//	LOG_LEVEL   - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - json, console (default: json)
//	LOG_CALLER  - include caller file:line (default: false)
//
// Always terminate log chains with .Msg() or .Send(); an unterminated
// chain is never written.
package logging

// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

// Package module defines the Module contract and the Runtime that boots
// modules into a single process.
//
// A module exports a manifest and a Register function. At boot the Runtime
// builds one Context holding the event bus and a registry writer, then calls
// Register on every module in dependency order (manifest dependsOn), falling
// back to declaration order. Register calls run one at a time.
//
// Any failure aborts boot: invalid or duplicate manifests, unknown or cyclic
// dependencies, a Register error, panic or timeout, or a service
// registration that replaced an existing one. The process must exit rather
// than serve traffic with a partial module set.
package module

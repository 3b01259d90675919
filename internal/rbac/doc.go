// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

/*
Package rbac implements the request guards placed in front of module routes.

A request moves through the stages in a fixed order:

	authentication -> module -> permission -> feature flag -> handler

Each guard either calls the next handler or writes an error envelope and
returns. A later guard never runs once an earlier one has terminated.

	| Stage          | Status | Code                     |
	|----------------|--------|--------------------------|
	| authentication | 401    | UNAUTHORIZED             |
	| module         | 403    | MODULE_NOT_ACTIVE        |
	| permission     | 403    | INSUFFICIENT_PERMISSIONS |
	| feature flag   | 403    | FEATURE_FLAG_DISABLED    |

Guards read only the Principal attached to the request context. The
Principal's ActiveModules and Permissions are a snapshot taken when the
session token was issued, so deactivating a module takes effect for a user
at their next session refresh (bounded by security.session_ttl).

Usage with chi:

	r.With(rbac.RequireModuleAndPermission("orders-module", "orders.create")).
		Post("/orders", h.CreateOrder)
*/
package rbac

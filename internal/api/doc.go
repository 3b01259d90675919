// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

/*
Package api provides the HTTP surface of the platform.

The router owns only the cross-cutting endpoints. Everything a module
offers is mounted by the module itself once the runtime has booted.

Route Tree:

	GET    /health, /health/live, /health/ready
	GET    /metrics                      Prometheus scrape endpoint
	GET    /ws                           tenant realtime socket (authenticated)
	GET    /api/v1/modules               module catalog with caller activation
	GET    /api/v1/me                    caller principal snapshot
	POST   /api/v1/session/refresh       reissue the caller's session
	POST   /api/v1/session               dev-only session issuance
	*      /api/v1/...                   module routes

Middleware Stack:

Every request gets a request ID, real-IP extraction, panic recovery, an
access log line and CORS. API routes add rate limiting (go-chi/httprate),
security headers, Prometheus request metrics and session authentication.
Session authentication never rejects a request on its own; the rbac guards
decide.

Error Envelope:

All errors use the envelope from the response package, so a denial by a
guard looks the same as a module error:

	{"success":false,"error":{"code":"MODULE_NOT_ACTIVE","message":"..."}}
*/
package api

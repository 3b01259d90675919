// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

/*
Package middleware provides HTTP infrastructure middleware.

Key Components:

  - RequestID: request and correlation IDs in the response header and the
    logging context
  - PrometheusMetrics: request counts, latencies and in-flight gauge labelled
    by chi route pattern
  - AccessLog: one structured log line per request

Middleware Stack:

The router installs these ahead of CORS, rate limiting and session
authentication:

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.AccessLog)

Authorization guards live in the rbac package and are applied per route.
*/
package middleware

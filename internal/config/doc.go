// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

/*
Package config loads Tavola configuration with Koanf v2.

Sources are layered, later sources overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. YAML file: config.yaml, /etc/tavola/config.yaml, or CONFIG_PATH
 3. Environment variables mapped through envTransformFunc

Example config.yaml:

	server:
	  port: 8080
	  environment: production
	security:
	  jwt_secret: "..."
	  session_ttl: 15m
	runtime:
	  handler_timeout: 5s
	realtime:
	  nats:
	    enabled: true
	    embedded: false
	    url: nats://nats:4222
	tenancy:
	  store: badger
	  badger_path: /data/tenancy
	  seeds:
	    - id: trattoria
	      name: Trattoria Roma
	      plan: pro
	      modules: [orders-module, financial]
	feature_flags:
	  financial-dashboard:
	    enabled: true
	    percentage: 50

The security.session_ttl setting is the staleness window of the activation
snapshot carried in session tokens. A module deactivation takes effect for a
user at their next session refresh.

A non-empty feature_flags section replaces the default flag set entirely.
*/
package config

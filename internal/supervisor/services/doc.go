// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

/*
Package services adapts Tavola components to suture.Service.

Each wrapper translates a component's own lifecycle (ListenAndServe,
Shutdown, a periodic maintenance call) into a context-aware Serve method
and names itself through fmt.Stringer for supervisor logs.

  - HTTPServerService: *http.Server with graceful shutdown
  - PeriodicService: runs a function on a fixed interval (badger GC)
  - BrokerService: keeps the embedded NATS server alive until shutdown

The realtime hub and NATS bridge implement suture.Service directly and
need no wrapper.
*/
package services

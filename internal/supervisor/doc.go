// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

/*
Package supervisor runs the long-lived parts of the Tavola server under a
suture v4 supervisor tree.

The tree has three layers so that a crash in one does not take down the
others:

	RootSupervisor ("tavola")
	├── DataSupervisor ("data-layer")
	│   └── tenancy value-log GC (badger store only)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── realtime hub
	│   ├── realtime NATS bridge (if enabled)
	│   └── embedded NATS server (if enabled)
	└── APISupervisor ("api-layer")
	    └── HTTP server

Module boot is not supervised. The runtime boots once, before the tree
starts, and a boot failure stops the process before any listener binds.

Supervisor events (start, stop, failure, backoff) are logged through
sutureslog so they share the application's slog handler.
*/
package supervisor

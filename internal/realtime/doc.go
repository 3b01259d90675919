// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

/*
Package realtime pushes tenant-scoped events to connected WebSocket clients.

The Hub groups sockets by the tenant of the session that opened them.
EmitToTenant enqueues one envelope for every socket of that tenant and
returns without waiting for clients:

	hub.EmitToTenant("trattoria", "sound:play", map[string]any{"sound": "new-order"}, correlationID)

Delivery is best-effort and at most once per socket. A disconnected socket
misses events; a socket whose outbound queue is full is disconnected. This
channel is separate from the event bus, which carries server-side module
integration.

Wire format (server to client):

	{"tenantId":"trattoria","event":"sound:play","payload":{...},"correlationId":"...","timestamp":"..."}

Clients may send {"type":"ping"} and receive {"event":"pong"}. Inbound
messages are rate limited per socket.

# Cross-process delivery

The socket set is process-local. When the NATS bridge is enabled, each
EmitToTenant is also published to <prefix>.<tenant>; every process
subscribes to <prefix>.> and delivers remote envelopes to its own sockets,
skipping messages that carry its own node ID.
*/
package realtime

// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

/*
Package eventbus provides the in-process publish/subscribe channel modules
use to integrate with each other.

Delivery contract:

  - Handlers subscribed to one event type run in subscription order, one at
    a time. A handler finishes before the next one starts.
  - A handler error, panic or timeout is logged and counted, then delivery
    continues with the next handler. The publisher never sees it.
  - Publish returns after every handler has settled.
  - Nothing is persisted or retried. Events lost in a crash stay lost.

Wildcard handlers registered with SubscribeAll run after the typed handlers.
The Forwarder is one such handler: it republishes every event to a
watermill publisher (NATS JetStream in production) on "<prefix>.<type>".

Subscriptions are expected during module registration only. The runtime
calls Seal once boot completes, after which Subscribe fails with ErrSealed.
*/
package eventbus

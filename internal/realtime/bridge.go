// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package realtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/metrics"
)

// DefaultSubjectPrefix is the NATS subject prefix for realtime envelopes.
const DefaultSubjectPrefix = "tavola.realtime"

// bridgeMessage is the NATS payload. Origin identifies the publishing
// process so it can skip its own messages.
type bridgeMessage struct {
	Origin   string   `json:"origin"`
	Envelope Envelope `json:"envelope"`
}

// Bridge fans realtime envelopes out across processes over NATS. Every
// process publishes to <prefix>.<tenant> and subscribes to <prefix>.>,
// delivering remote envelopes to its local sockets. Local sockets are
// served directly by EmitToTenant, so each socket sees an envelope once.
type Bridge struct {
	conn   *nats.Conn
	hub    *Hub
	prefix string
	nodeID string
}

// NewBridge creates a bridge and installs it as hub's remote publisher.
func NewBridge(conn *nats.Conn, hub *Hub, prefix string) *Bridge {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	b := &Bridge{
		conn:   conn,
		hub:    hub,
		prefix: strings.TrimSuffix(prefix, "."),
		nodeID: uuid.New().String(),
	}
	hub.SetRemote(b)
	return b
}

// NodeID returns this process's bridge identity.
func (b *Bridge) NodeID() string {
	return b.nodeID
}

// Subject returns the subject envelopes for tenantID are published on.
func (b *Bridge) Subject(tenantID string) string {
	return b.prefix + "." + subjectToken(tenantID)
}

// Publish sends env to other processes.
func (b *Bridge) Publish(env Envelope) error {
	data, err := json.Marshal(bridgeMessage{Origin: b.nodeID, Envelope: env})
	if err != nil {
		return fmt.Errorf("marshal realtime envelope: %w", err)
	}
	if err := b.conn.Publish(b.Subject(env.TenantID), data); err != nil {
		return fmt.Errorf("publish realtime envelope: %w", err)
	}
	metrics.NATSMessagesPublished.Inc()
	return nil
}

// Serve implements suture.Service. It subscribes until ctx is canceled.
func (b *Bridge) Serve(ctx context.Context) error {
	sub, err := b.conn.Subscribe(b.prefix+".>", b.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s.>: %w", b.prefix, err)
	}
	if err := b.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("flush subscription: %w", err)
	}

	logging.Info().
		Str("component", "realtime-bridge").
		Str("node_id", b.nodeID).
		Str("subject", b.prefix+".>").
		Msg("realtime bridge subscribed")

	<-ctx.Done()

	if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		logging.Warn().Err(err).Msg("realtime bridge unsubscribe failed")
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture logging.
func (b *Bridge) String() string {
	return "realtime-bridge"
}

func (b *Bridge) handle(msg *nats.Msg) {
	var bm bridgeMessage
	if err := json.Unmarshal(msg.Data, &bm); err != nil {
		metrics.NATSMessagesParseFailed.Inc()
		logging.Warn().Err(err).Str("subject", msg.Subject).Msg("failed to decode realtime bridge message")
		return
	}
	if bm.Origin == b.nodeID {
		metrics.NATSMessagesDeduplicated.Inc()
		return
	}
	if bm.Envelope.TenantID == "" {
		metrics.NATSMessagesParseFailed.Inc()
		return
	}

	metrics.NATSMessagesConsumed.Inc()
	b.hub.Deliver(bm.Envelope)
}

// subjectToken maps a tenant ID to a single NATS subject token. The real
// tenant ID travels in the envelope, so the mapping need not be reversible.
func subjectToken(tenantID string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, tenantID)
}

// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package realtime

import (
	"time"

	"github.com/goccy/go-json"
)

// Message types sent by clients.
const (
	MessageTypePing = "ping"
	MessageTypePong = "pong"
)

// Envelope is a tenant-scoped event pushed to connected sockets. It exists
// only in transit; there is no persistence or replay.
type Envelope struct {
	TenantID      string    `json:"tenantId"`
	Event         string    `json:"event"`
	Payload       any       `json:"payload,omitempty"`
	CorrelationID string    `json:"correlationId,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// inbound is a message received from a client.
type inbound struct {
	Type string `json:"type"`
}

// pongFrame is the pre-encoded reply to a client ping.
var pongFrame = mustMarshal(map[string]string{"event": MessageTypePong})

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

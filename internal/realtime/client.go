// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package realtime

import (
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// clientIDCounter gives clients monotonically increasing IDs so fan-out
// order is stable.
var clientIDCounter atomic.Uint64

// Client is one socket bound to a tenant.
type Client struct {
	id       uint64
	hub      *Hub
	conn     *websocket.Conn
	tenantID string
	userID   string
	send     chan []byte
	limiter  *rate.Limiter
}

// NewClient creates a client for conn, bound to tenantID.
func NewClient(hub *Hub, conn *websocket.Conn, tenantID, userID string) *Client {
	return &Client{
		id:       clientIDCounter.Add(1),
		hub:      hub,
		conn:     conn,
		tenantID: tenantID,
		userID:   userID,
		send:     make(chan []byte, hub.config.ClientBuffer),
		limiter:  rate.NewLimiter(rate.Limit(hub.config.InboundRate), hub.config.InboundBurst),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// TenantID returns the tenant the socket is bound to.
func (c *Client) TenantID() string {
	return c.tenantID
}

// Start registers the client and begins reading and writing.
func (c *Client) Start() {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump()
}

// readPump reads client messages until the connection fails.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				metrics.WSErrors.WithLabelValues("read").Inc()
				logging.Warn().Err(err).Str("tenant_id", c.tenantID).Msg("unexpected websocket close error")
			}
			return
		}
		metrics.WSMessagesReceived.Inc()
		c.handleInbound(data)
	}
}

// handleInbound processes one client message. Messages over the rate limit
// and unknown message types are ignored.
func (c *Client) handleInbound(data []byte) {
	if !c.limiter.Allow() {
		metrics.WSErrors.WithLabelValues("rate_limited").Inc()
		logging.Debug().Str("tenant_id", c.tenantID).Uint64("client_id", c.id).Msg("realtime inbound message rate limited")
		return
	}

	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		metrics.WSErrors.WithLabelValues("bad_message").Inc()
		return
	}

	if msg.Type == MessageTypePing {
		c.hub.reply(c, pongFrame)
	}
}

// writePump writes queued frames and keepalive pings to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

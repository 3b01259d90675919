// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package realtime

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Config holds hub settings.
type Config struct {
	// ClientBuffer is each socket's outbound queue length. A socket whose
	// queue is full when an envelope arrives is disconnected.
	ClientBuffer int

	// BroadcastBuffer is the hub's inbound envelope queue length. Envelopes
	// are dropped when it is full.
	BroadcastBuffer int

	// InboundRate and InboundBurst limit messages read from each socket.
	InboundRate  float64
	InboundBurst int
}

// DefaultConfig returns default hub settings.
func DefaultConfig() Config {
	return Config{
		ClientBuffer:    256,
		BroadcastBuffer: 1024,
		InboundRate:     10,
		InboundBurst:    20,
	}
}

// RemotePublisher forwards envelopes to other processes.
type RemotePublisher interface {
	Publish(env Envelope) error
}

// frame is an encoded envelope addressed to one tenant.
type frame struct {
	tenantID string
	data     []byte
}

// Hub maintains the set of live sockets grouped by tenant and fans envelopes
// out to the sockets of exactly one tenant.
type Hub struct {
	config    Config
	tenants   map[string]map[*Client]struct{}
	clients   int
	broadcast chan frame
	mu        sync.RWMutex

	remoteMu sync.RWMutex
	remote   RemotePublisher
}

// NewHub creates a new Hub.
func NewHub(cfg Config) *Hub {
	def := DefaultConfig()
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = def.ClientBuffer
	}
	if cfg.BroadcastBuffer <= 0 {
		cfg.BroadcastBuffer = def.BroadcastBuffer
	}
	if cfg.InboundRate <= 0 {
		cfg.InboundRate = def.InboundRate
	}
	if cfg.InboundBurst <= 0 {
		cfg.InboundBurst = def.InboundBurst
	}
	return &Hub{
		config:    cfg,
		tenants:   make(map[string]map[*Client]struct{}),
		broadcast: make(chan frame, cfg.BroadcastBuffer),
	}
}

// SetRemote installs a publisher for cross-process delivery. Pass nil to
// return to process-local delivery.
func (h *Hub) SetRemote(p RemotePublisher) {
	h.remoteMu.Lock()
	h.remote = p
	h.remoteMu.Unlock()
}

// EmitToTenant enqueues an event for every socket currently associated with
// tenantID. It never blocks on clients and does not await acknowledgment.
// Delivery is best-effort and at most once per socket.
func (h *Hub) EmitToTenant(tenantID, eventName string, payload any, correlationID string) {
	if tenantID == "" || eventName == "" {
		logging.Warn().Str("event", eventName).Msg("realtime emit without tenant or event name dropped")
		return
	}
	env := Envelope{
		TenantID:      tenantID,
		Event:         eventName,
		Payload:       payload,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
	}

	h.Deliver(env)

	h.remoteMu.RLock()
	remote := h.remote
	h.remoteMu.RUnlock()
	if remote != nil {
		if err := remote.Publish(env); err != nil {
			metrics.WSErrors.WithLabelValues("remote_publish").Inc()
			logging.Warn().Err(err).
				Str("tenant_id", tenantID).
				Str("event", eventName).
				Msg("realtime remote publish failed")
		}
	}
}

// Deliver enqueues env for local sockets only.
func (h *Hub) Deliver(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		metrics.WSErrors.WithLabelValues("marshal").Inc()
		logging.Error().Err(err).Str("event", env.Event).Msg("failed to marshal realtime envelope")
		return
	}

	select {
	case h.broadcast <- frame{tenantID: env.TenantID, data: data}:
	default:
		metrics.WSMessagesDropped.Inc()
		logging.Warn().
			Str("tenant_id", env.TenantID).
			Str("event", env.Event).
			Msg("broadcast channel full, dropping realtime event")
	}
}

// Serve implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	return h.RunWithContext(ctx)
}

// String implements fmt.Stringer for suture logging.
func (h *Hub) String() string {
	return "realtime-hub"
}

// RunWithContext runs the hub until ctx is canceled, then closes every socket.
// Shutdown takes priority over pending broadcasts.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case f := <-h.broadcast:
			h.broadcastToTenant(f)
		}
	}
}

// Register adds c to its tenant's socket set. Registration is synchronous,
// so an emit made after Register returns reaches c.
func (h *Hub) Register(c *Client) {
	h.addClient(c)
}

// Unregister removes c and closes its outbound queue. It is safe to call
// more than once.
func (h *Hub) Unregister(c *Client) {
	h.removeClient(c)
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	set, ok := h.tenants[c.tenantID]
	if !ok {
		set = make(map[*Client]struct{})
		h.tenants[c.tenantID] = set
	}
	set[c] = struct{}{}
	h.clients++
	total, tenants := h.clients, len(h.tenants)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	metrics.WSTenants.Set(float64(tenants))
	logging.Debug().
		Str("tenant_id", c.tenantID).
		Str("user_id", c.userID).
		Int("total_clients", total).
		Msg("realtime client connected")
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	removed := h.dropLocked(c)
	total, tenants := h.clients, len(h.tenants)
	h.mu.Unlock()

	if removed {
		metrics.WSConnections.Set(float64(total))
		metrics.WSTenants.Set(float64(tenants))
		logging.Debug().
			Str("tenant_id", c.tenantID).
			Int("total_clients", total).
			Msg("realtime client disconnected")
	}
}

// dropLocked removes c and closes its queue. Must be called with mu held.
func (h *Hub) dropLocked(c *Client) bool {
	set, ok := h.tenants[c.tenantID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.tenants, c.tenantID)
	}
	h.clients--
	close(c.send)
	return true
}

// broadcastToTenant queues f on every socket of f's tenant in client ID
// order. Sockets whose queue is full are disconnected.
func (h *Hub) broadcastToTenant(f frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.tenants[f.tenantID]
	if len(set) == 0 {
		return
	}

	clients := make([]*Client, 0, len(set))
	for c := range set {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, c := range clients {
		select {
		case c.send <- f.data:
			metrics.WSMessagesSent.Inc()
		default:
			metrics.WSMessagesDropped.Inc()
			logging.Warn().
				Str("tenant_id", f.tenantID).
				Uint64("client_id", c.id).
				Msg("realtime client too slow, disconnecting")
			h.dropLocked(c)
		}
	}

	metrics.WSConnections.Set(float64(h.clients))
	metrics.WSTenants.Set(float64(len(h.tenants)))
}

// reply queues data for c alone if c is still registered.
func (h *Hub) reply(c *Client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, live := h.tenants[c.tenantID][c]; !live {
		return
	}
	select {
	case c.send <- data:
		metrics.WSMessagesSent.Inc()
	default:
		metrics.WSMessagesDropped.Inc()
	}
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.ClientCount()
	h.closeAllClients()

	reason := ShutdownReasonContextCanceled
	if ctx.Err() == context.DeadlineExceeded {
		reason = ShutdownReasonContextDeadline
	}

	logging.Info().
		Str("component", "realtime-hub").
		Str("reason", string(reason)).
		Int("clients_closed", clientCount).
		Msg("realtime hub stopped")
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, set := range h.tenants {
		for c := range set {
			close(c.send)
		}
	}
	h.tenants = make(map[string]map[*Client]struct{})
	h.clients = 0
	metrics.WSConnections.Set(0)
	metrics.WSTenants.Set(0)
}

// ClientCount returns the number of connected sockets.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients
}

// TenantClientCount returns the number of sockets connected for tenantID.
func (h *Hub) TenantClientCount(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tenants[tenantID])
}

// Tenants returns the tenants with at least one connected socket, sorted.
func (h *Hub) Tenants() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.tenants))
	for t := range h.tenants {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

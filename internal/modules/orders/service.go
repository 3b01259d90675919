// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tomtom215/tavola/internal/eventbus"
	"github.com/tomtom215/tavola/internal/logging"
)

var (
	// ErrOrderNotFound is returned for unknown order IDs within a tenant.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Status is an order's lifecycle state.
type Status string

// Order statuses.
const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusServed    Status = "served"
	StatusCancelled Status = "cancelled"
)

// transitions lists the statuses reachable from each status.
var transitions = map[Status][]Status{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusServed, StatusCancelled},
}

// CanTransition reports whether an order may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// MaxUnitPriceCents caps a line's unit price so order totals stay well inside
// int64 at the maximum quantity and line count.
const MaxUnitPriceCents = 100_000_000

// Item is one order line.
type Item struct {
	Name           string `json:"name" validate:"required,max=120"`
	Quantity       int    `json:"quantity" validate:"required,min=1,max=999"`
	UnitPriceCents int64  `json:"unitPriceCents" validate:"min=0,max=100000000"`
}

// Order is a tenant's order.
type Order struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	Table      string    `json:"table,omitempty"`
	Items      []Item    `json:"items"`
	Notes      string    `json:"notes,omitempty"`
	Status     Status    `json:"status"`
	TotalCents int64     `json:"totalCents"`
	CreatedBy  string    `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// CreateRequest is the body of POST /orders.
type CreateRequest struct {
	Table string `json:"table" validate:"max=32"`
	Items []Item `json:"items" validate:"required,min=1,max=100,dive"`
	Notes string `json:"notes" validate:"max=500"`
}

// StatusRequest is the body of PATCH /orders/{id}/status.
type StatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=pending preparing ready served cancelled"`
}

// Emitter pushes realtime events to a tenant's connected clients.
type Emitter interface {
	EmitToTenant(tenantID, eventName string, payload any, correlationID string)
}

// Service stores orders in memory, partitioned by tenant. It publishes a
// domain event and a realtime event after every state change.
type Service struct {
	bus      *eventbus.Bus
	realtime Emitter
	validate *validator.Validate
	now      func() time.Time

	mu     sync.RWMutex
	orders map[string]map[string]*Order
}

// NewService creates an order service. realtime may be nil.
func NewService(bus *eventbus.Bus, realtime Emitter) *Service {
	return &Service{
		bus:      bus,
		realtime: realtime,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      func() time.Time { return time.Now().UTC() },
		orders:   make(map[string]map[string]*Order),
	}
}

// Validate checks a request struct against its validate tags.
func (s *Service) Validate(v any) error {
	return s.validate.Struct(v)
}

// Create stores a new pending order and announces it.
func (s *Service) Create(ctx context.Context, tenantID, userID string, req *CreateRequest) (*Order, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	var total int64
	for _, it := range req.Items {
		total += int64(it.Quantity) * it.UnitPriceCents
	}

	now := s.now()
	o := &Order{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		Table:      req.Table,
		Items:      append([]Item(nil), req.Items...),
		Notes:      req.Notes,
		Status:     StatusPending,
		TotalCents: total,
		CreatedBy:  userID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	tenantOrders, ok := s.orders[tenantID]
	if !ok {
		tenantOrders = make(map[string]*Order)
		s.orders[tenantID] = tenantOrders
	}
	tenantOrders[o.ID] = o
	snapshot := *o
	s.mu.Unlock()

	s.announce(ctx, EventCreated, RealtimeCreated, userID, &snapshot, map[string]any{
		"orderId":    snapshot.ID,
		"table":      snapshot.Table,
		"itemCount":  len(snapshot.Items),
		"totalCents": snapshot.TotalCents,
	})
	return &snapshot, nil
}

// Get returns one order of a tenant.
func (s *Service) Get(_ context.Context, tenantID, orderID string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[tenantID][orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	snapshot := *o
	return &snapshot, nil
}

// List returns a tenant's orders, oldest first. An empty status returns all.
func (s *Service) List(_ context.Context, tenantID string, status Status) []Order {
	s.mu.RLock()
	out := make([]Order, 0, len(s.orders[tenantID]))
	for _, o := range s.orders[tenantID] {
		if status == "" || o.Status == status {
			out = append(out, *o)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// UpdateStatus moves an order to a new status and announces the change.
func (s *Service) UpdateStatus(ctx context.Context, tenantID, userID, orderID string, next Status) (*Order, error) {
	if err := s.validate.Struct(&StatusRequest{Status: next}); err != nil {
		return nil, err
	}

	s.mu.Lock()
	o, ok := s.orders[tenantID][orderID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	previous := o.Status
	if !previous.CanTransition(next) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, previous, next)
	}
	o.Status = next
	o.UpdatedAt = s.now()
	snapshot := *o
	s.mu.Unlock()

	s.announce(ctx, EventStatusChanged, RealtimeStatusChanged, userID, &snapshot, map[string]any{
		"orderId":    snapshot.ID,
		"from":       string(previous),
		"to":         string(next),
		"totalCents": snapshot.TotalCents,
	})
	return &snapshot, nil
}

// announce publishes the domain event, then pushes the realtime event. The
// event ID doubles as the realtime correlation ID.
func (s *Service) announce(ctx context.Context, eventType, realtimeName, userID string, o *Order, data map[string]any) {
	ev := eventbus.NewEvent(eventType, o.TenantID, userID, data).From(ModuleID)
	if s.bus != nil {
		if err := s.bus.Publish(ctx, ev); err != nil {
			logging.Ctx(ctx).Error().Err(err).
				Str("event_type", eventType).
				Str("order_id", o.ID).
				Msg("Failed to publish order event")
		}
	}
	if s.realtime != nil {
		s.realtime.EmitToTenant(o.TenantID, realtimeName, o, ev.ID)
	}
}

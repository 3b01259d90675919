// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

// Package orders is the order-taking module. It owns the order service, the
// orders.* permissions and the orders.* domain events other modules react to.
package orders

import (
	"context"

	"github.com/tomtom215/tavola/internal/manifest"
	"github.com/tomtom215/tavola/internal/module"
	"github.com/tomtom215/tavola/internal/registry"
)

// ModuleID is the orders module ID.
const ModuleID = "orders-module"

// Permission IDs.
const (
	PermCreate       = "orders.create"
	PermRead         = "orders.read"
	PermUpdateStatus = "orders.update_status"
)

// Domain event types.
const (
	EventCreated       = "orders.created"
	EventStatusChanged = "orders.status_changed"
)

// Realtime event names pushed to dashboards and kitchen displays.
const (
	RealtimeCreated       = "orders:created"
	RealtimeStatusChanged = "orders:status_changed"
)

// ServiceKey resolves the order service from the registry.
var ServiceKey = registry.NewKey[*Service](ModuleID, "orders")

// Manifest returns the orders module manifest.
func Manifest() *manifest.ModuleManifest {
	return &manifest.ModuleManifest{
		ID:      ModuleID,
		Name:    "Orders",
		Version: "1.0.0",
		Permissions: []manifest.PermissionDescriptor{
			{ID: PermCreate, Name: "Create orders", Description: "Take new orders"},
			{ID: PermRead, Name: "View orders"},
			{ID: PermUpdateStatus, Name: "Update order status", Description: "Move orders through the kitchen workflow"},
		},
		EventTypes: []manifest.EventTypeDescriptor{
			{ID: EventCreated, Name: "Order created"},
			{ID: EventStatusChanged, Name: "Order status changed"},
		},
		UIEntry:    &manifest.UIEntry{Path: "/orders", Label: "Orders", Icon: "receipt", Order: 10},
		Scope:      manifest.ScopeTenant,
		CanDisable: true,
	}
}

// Module is the orders module.
type Module struct {
	manifest *manifest.ModuleManifest
}

// New creates the orders module.
func New() *Module {
	return &Module{manifest: Manifest()}
}

// Manifest implements module.Module.
func (m *Module) Manifest() *manifest.ModuleManifest {
	return m.manifest
}

// Register publishes the order service.
func (m *Module) Register(_ context.Context, mc *module.Context) error {
	svc := NewService(mc.Bus, mc.Realtime)
	return mc.RegisterService(ServiceKey.Module, ServiceKey.Name, svc)
}

// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

// Package soundnotifications plays a sound on the tenant's kitchen and floor
// displays when orders arrive or become ready. It has no routes; it only
// listens to order events and pushes realtime events.
package soundnotifications

import (
	"context"
	"fmt"

	"github.com/tomtom215/tavola/internal/eventbus"
	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/manifest"
	"github.com/tomtom215/tavola/internal/module"
	"github.com/tomtom215/tavola/internal/modules/orders"
	"github.com/tomtom215/tavola/internal/modules/platform"
)

// ModuleID is the sound notifications module ID.
const ModuleID = "sound-notifications"

// RealtimeSoundPlay is the realtime event clients turn into audio.
const RealtimeSoundPlay = "sound:play"

// Sound names understood by the clients.
const (
	SoundNewOrder   = "new-order"
	SoundOrderReady = "order-ready"
)

// Manifest returns the sound notifications module manifest.
func Manifest() *manifest.ModuleManifest {
	return &manifest.ModuleManifest{
		ID:         ModuleID,
		Name:       "Sound Notifications",
		Version:    "1.0.0",
		Scope:      manifest.ScopeTenant,
		CanDisable: true,
		DependsOn:  []string{orders.ModuleID, platform.ModuleID},
	}
}

// Activation reports whether a module is active for a tenant.
type Activation interface {
	IsActive(ctx context.Context, tenantID, moduleID string) (bool, error)
}

// SoundPlay is the realtime payload.
type SoundPlay struct {
	Sound   string `json:"sound"`
	OrderID string `json:"orderId"`
	Table   string `json:"table,omitempty"`
}

// Module is the sound notifications module.
type Module struct {
	manifest   *manifest.ModuleManifest
	activation Activation
	emitter    module.Emitter
}

// New creates the sound notifications module.
func New() *Module {
	return &Module{manifest: Manifest()}
}

// Manifest implements module.Module.
func (m *Module) Manifest() *manifest.ModuleManifest {
	return m.manifest
}

// Register subscribes to order events. The tenancy service comes from the
// platform module, which is guaranteed to have registered first.
func (m *Module) Register(_ context.Context, mc *module.Context) error {
	svc, err := platform.TenancyKey.Get(mc.Services())
	if err != nil {
		return fmt.Errorf("resolve tenancy: %w", err)
	}
	m.activation = svc
	m.emitter = mc.Realtime

	if err := mc.Bus.SubscribeFunc(orders.EventCreated, ModuleID+".new-order", m.onOrderCreated); err != nil {
		return err
	}
	return mc.Bus.SubscribeFunc(orders.EventStatusChanged, ModuleID+".order-ready", m.onStatusChanged)
}

func (m *Module) onOrderCreated(ctx context.Context, ev eventbus.Event) error {
	return m.play(ctx, ev, SoundNewOrder)
}

func (m *Module) onStatusChanged(ctx context.Context, ev eventbus.Event) error {
	if ev.DataString("to") != "ready" {
		return nil
	}
	return m.play(ctx, ev, SoundOrderReady)
}

// play emits the sound when this module is active for the event's tenant.
// The event ID is the correlation ID so clients can dedupe.
func (m *Module) play(ctx context.Context, ev eventbus.Event, sound string) error {
	active, err := m.activation.IsActive(ctx, ev.TenantID, ModuleID)
	if err != nil {
		return fmt.Errorf("check activation: %w", err)
	}
	if !active {
		logging.Ctx(ctx).Debug().
			Str("tenant_id", ev.TenantID).
			Str("event_id", ev.ID).
			Msg("Sound notifications inactive for tenant, skipping")
		return nil
	}
	if m.emitter == nil {
		return nil
	}
	m.emitter.EmitToTenant(ev.TenantID, RealtimeSoundPlay, SoundPlay{
		Sound:   sound,
		OrderID: ev.DataString("orderId"),
		Table:   ev.DataString("table"),
	}, ev.ID)
	return nil
}

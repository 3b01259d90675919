// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package module

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/tavola/internal/eventbus"
	"github.com/tomtom215/tavola/internal/manifest"
	"github.com/tomtom215/tavola/internal/rbac"
	"github.com/tomtom215/tavola/internal/registry"
)

// Module is a self-contained feature unit. Register is the only entry point
// the runtime calls; it publishes services and subscribes event handlers
// through the shared Context.
type Module interface {
	Manifest() *manifest.ModuleManifest
	Register(ctx context.Context, mc *Context) error
}

// RouteMounter is implemented by modules that serve HTTP routes. Routes are
// mounted only after every module has registered.
type RouteMounter interface {
	MountRoutes(r chi.Router, env RouteEnv)
}

// RouteEnv is what a module's routes may use at request time.
type RouteEnv struct {
	// Services resolves module services. A miss is a deployment error and
	// should be answered with SERVICE_NOT_REGISTERED.
	Services *registry.Registry

	// Flags backs rbac.RequireFeatureFlag.
	Flags rbac.FlagProvider

	// Bus lets handlers publish domain events.
	Bus *eventbus.Bus

	// Realtime pushes UI events to a tenant's connected clients.
	Realtime Emitter
}

// Emitter pushes named events to every live connection of one tenant.
type Emitter interface {
	EmitToTenant(tenantID, eventName string, payload any, correlationID string)
}

// Context is the capability bundle every module receives at registration.
// There is exactly one per runtime and all modules share it, so a service
// registered by one module is visible to every module registered after it.
type Context struct {
	// Bus is the process event bus.
	Bus *eventbus.Bus

	// Realtime is the tenant realtime emitter. May be nil in tests.
	Realtime Emitter

	services *registry.Registry

	mu     sync.Mutex
	failed []error
}

func newContext(bus *eventbus.Bus, services *registry.Registry, emitter Emitter) *Context {
	return &Context{
		Bus:      bus,
		Realtime: emitter,
		services: services,
	}
}

// RegisterService publishes instance under (moduleID, name). Any failure,
// including replacing an existing registration, is remembered and aborts
// boot once the current module's Register returns.
func (c *Context) RegisterService(moduleID, name string, instance any) error {
	err := c.services.Register(moduleID, name, instance)
	if err != nil {
		c.mu.Lock()
		c.failed = append(c.failed, err)
		c.mu.Unlock()
	}
	return err
}

// Lookup resolves a service registered by an earlier module.
func (c *Context) Lookup(moduleID, name string) (any, bool) {
	return c.services.Lookup(moduleID, name)
}

// Services returns the registry for typed lookups with registry.Get.
func (c *Context) Services() *registry.Registry {
	return c.services
}

// Emit forwards to the realtime emitter when one is configured.
func (c *Context) Emit(tenantID, eventName string, payload any, correlationID string) {
	if c.Realtime != nil {
		c.Realtime.EmitToTenant(tenantID, eventName, payload, correlationID)
	}
}

func (c *Context) takeFailure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.failed) == 0 {
		return nil
	}
	err := c.failed[0]
	c.failed = nil
	return fmt.Errorf("service registration: %w", err)
}

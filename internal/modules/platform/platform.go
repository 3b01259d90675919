// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

// Package platform is the always-on module that lets a tenant owner enable
// and disable the other modules. It also publishes the tenancy service so
// tenant-scoped modules can check their own activation at event time.
package platform

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/tavola/internal/api/response"
	"github.com/tomtom215/tavola/internal/eventbus"
	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/manifest"
	"github.com/tomtom215/tavola/internal/module"
	"github.com/tomtom215/tavola/internal/rbac"
	"github.com/tomtom215/tavola/internal/registry"
	"github.com/tomtom215/tavola/internal/tenancy"
)

// ModuleID is the platform module ID.
const ModuleID = "platform"

// PermManageModules allows enabling and disabling modules for a tenant.
const PermManageModules = "platform.modules.manage"

// Domain event types.
const (
	EventModuleActivated   = "platform.module_activated"
	EventModuleDeactivated = "platform.module_deactivated"
)

// RealtimeModulesChanged tells connected clients to refresh their session.
const RealtimeModulesChanged = "modules:changed"

// TenancyKey resolves the tenancy service.
var TenancyKey = registry.NewKey[*tenancy.Service](ModuleID, "tenancy")

// Manifest returns the platform module manifest.
func Manifest() *manifest.ModuleManifest {
	return &manifest.ModuleManifest{
		ID:      ModuleID,
		Name:    "Platform",
		Version: "1.0.0",
		Permissions: []manifest.PermissionDescriptor{
			{ID: PermManageModules, Name: "Manage modules", Description: "Enable and disable modules for the tenant"},
		},
		EventTypes: []manifest.EventTypeDescriptor{
			{ID: EventModuleActivated, Name: "Module activated"},
			{ID: EventModuleDeactivated, Name: "Module deactivated"},
		},
		UIEntry:    &manifest.UIEntry{Path: "/settings/modules", Label: "Modules", Icon: "puzzle", Order: 90},
		Scope:      manifest.ScopeGlobal,
		CanDisable: false,
	}
}

// Module is the platform module.
type Module struct {
	manifest *manifest.ModuleManifest
	tenancy  *tenancy.Service
}

// New creates the platform module around the process tenancy service.
func New(svc *tenancy.Service) *Module {
	return &Module{manifest: Manifest(), tenancy: svc}
}

// Manifest implements module.Module.
func (m *Module) Manifest() *manifest.ModuleManifest {
	return m.manifest
}

// Register publishes the tenancy service.
func (m *Module) Register(_ context.Context, mc *module.Context) error {
	if m.tenancy == nil {
		return errors.New("platform: tenancy service is required")
	}
	return mc.RegisterService(TenancyKey.Module, TenancyKey.Name, m.tenancy)
}

// MountRoutes implements module.RouteMounter.
func (m *Module) MountRoutes(r chi.Router, env module.RouteEnv) {
	h := &handlers{services: env.Services, bus: env.Bus, realtime: env.Realtime}

	r.Route("/tenant/modules", func(r chi.Router) {
		r.Use(rbac.RequireModuleAndPermission(ModuleID, PermManageModules))
		r.Get("/", h.list)
		r.Post("/{moduleID}", h.activate)
		r.Delete("/{moduleID}", h.deactivate)
	})
}

type handlers struct {
	services *registry.Registry
	bus      *eventbus.Bus
	realtime module.Emitter
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	rw := response.NewResponseWriter(w, r)
	svc, err := TenancyKey.Get(h.services)
	if err != nil {
		rw.ServiceNotRegistered(err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())

	states, err := svc.Modules(r.Context(), p.TenantID)
	if err != nil {
		writeTenancyError(rw, r, err)
		return
	}
	rw.List(states, len(states))
}

func (h *handlers) activate(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, true)
}

func (h *handlers) deactivate(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, false)
}

// change applies an activation change, then announces it on the bus and to
// the tenant's connected clients. Sessions keep their old snapshot until
// refreshed; the realtime event prompts clients to refresh.
func (h *handlers) change(w http.ResponseWriter, r *http.Request, activate bool) {
	rw := response.NewResponseWriter(w, r)
	svc, err := TenancyKey.Get(h.services)
	if err != nil {
		rw.ServiceNotRegistered(err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	moduleID := chi.URLParam(r, "moduleID")

	var a *tenancy.Activation
	eventType := EventModuleActivated
	if activate {
		a, err = svc.Activate(r.Context(), p.TenantID, moduleID)
	} else {
		eventType = EventModuleDeactivated
		a, err = svc.Deactivate(r.Context(), p.TenantID, moduleID)
	}
	if err != nil {
		writeTenancyError(rw, r, err)
		return
	}

	ev := eventbus.NewEvent(eventType, p.TenantID, p.UserID, map[string]any{
		"moduleId": moduleID,
		"status":   string(a.Status),
	}).From(ModuleID)
	if h.bus != nil {
		if err := h.bus.Publish(r.Context(), ev); err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Str("event_type", eventType).Msg("Failed to publish module change")
		}
	}
	if h.realtime != nil {
		h.realtime.EmitToTenant(p.TenantID, RealtimeModulesChanged, map[string]any{
			"moduleId": moduleID,
			"active":   a.Active(),
		}, ev.ID)
	}
	rw.Success(a)
}

func writeTenancyError(rw *response.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tenancy.ErrUnknownModule):
		rw.NotFound("Unknown module")
	case errors.Is(err, tenancy.ErrTenantNotFound):
		rw.NotFound("Tenant not found")
	case errors.Is(err, tenancy.ErrModuleNotDisableable):
		rw.Conflict("Module cannot be disabled")
	case errors.Is(err, tenancy.ErrPlanRequired):
		rw.Error(http.StatusForbidden, response.ErrCodePlanRequired, "The tenant plan does not include this module")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Tenant module change failed")
		rw.InternalError("Tenant module change failed")
	}
}

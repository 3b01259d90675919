// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

// Package financial is the revenue dashboard module. It builds a per-tenant
// ledger from order events and serves a summary behind the
// financial-dashboard feature flag. It requires the pro plan.
package financial

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/tavola/internal/api/response"
	"github.com/tomtom215/tavola/internal/manifest"
	"github.com/tomtom215/tavola/internal/module"
	"github.com/tomtom215/tavola/internal/modules/orders"
	"github.com/tomtom215/tavola/internal/rbac"
	"github.com/tomtom215/tavola/internal/registry"
)

// ModuleID is the financial module ID.
const ModuleID = "financial"

// PermReadSummary allows reading the revenue summary.
const PermReadSummary = "financial.summary.read"

// FlagDashboard gates the summary endpoint.
const FlagDashboard = "financial-dashboard"

// LedgerKey resolves the ledger.
var LedgerKey = registry.NewKey[*Ledger](ModuleID, "ledger")

// Manifest returns the financial module manifest.
func Manifest() *manifest.ModuleManifest {
	return &manifest.ModuleManifest{
		ID:      ModuleID,
		Name:    "Financial",
		Version: "1.0.0",
		Permissions: []manifest.PermissionDescriptor{
			{ID: PermReadSummary, Name: "View revenue summary"},
		},
		RequiredPlan: manifest.Plan(manifest.PlanPro),
		UIEntry:      &manifest.UIEntry{Path: "/financial", Label: "Financial", Icon: "chart", Order: 50},
		Scope:        manifest.ScopeTenant,
		CanDisable:   true,
		DependsOn:    []string{orders.ModuleID},
	}
}

// Module is the financial module.
type Module struct {
	manifest *manifest.ModuleManifest
}

// New creates the financial module.
func New() *Module {
	return &Module{manifest: Manifest()}
}

// Manifest implements module.Module.
func (m *Module) Manifest() *manifest.ModuleManifest {
	return m.manifest
}

// Register publishes the ledger and feeds it from order events.
func (m *Module) Register(_ context.Context, mc *module.Context) error {
	ledger := NewLedger()
	if err := mc.RegisterService(LedgerKey.Module, LedgerKey.Name, ledger); err != nil {
		return err
	}
	if err := mc.Bus.SubscribeFunc(orders.EventCreated, ModuleID+".ledger", ledger.RecordOrder); err != nil {
		return err
	}
	return mc.Bus.SubscribeFunc(orders.EventStatusChanged, ModuleID+".ledger", ledger.RecordStatusChange)
}

// MountRoutes implements module.RouteMounter.
func (m *Module) MountRoutes(r chi.Router, env module.RouteEnv) {
	guard := rbac.Chain(
		rbac.RequireModuleAndPermission(ModuleID, PermReadSummary),
		rbac.RequireFeatureFlag(env.Flags, FlagDashboard),
	)
	r.With(guard).Get("/financial/summary", func(w http.ResponseWriter, r *http.Request) {
		rw := response.NewResponseWriter(w, r)
		ledger, err := LedgerKey.Get(env.Services)
		if err != nil {
			rw.ServiceNotRegistered(err)
			return
		}
		p, _ := rbac.PrincipalFromContext(r.Context())
		rw.Success(ledger.Summary(p.TenantID))
	})
}

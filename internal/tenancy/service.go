// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

// Package tenancy is the system of record for which modules each tenant has
// enabled. Session issuance reads it to build the activation snapshot; request
// guards never read it directly.
package tenancy

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/manifest"
	"github.com/tomtom215/tavola/internal/metrics"
)

var (
	// ErrUnknownModule is returned for a module ID missing from the catalog.
	ErrUnknownModule = errors.New("unknown module")

	// ErrModuleNotDisableable is returned when deactivating a module whose
	// manifest sets canDisable=false.
	ErrModuleNotDisableable = errors.New("module cannot be disabled")

	// ErrPlanRequired is returned when the tenant's plan is below the
	// module's required plan.
	ErrPlanRequired = errors.New("tenant plan does not include module")
)

// ModuleState is one catalog entry as seen by a tenant.
type ModuleState struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Version      string             `json:"version"`
	Scope        manifest.Scope     `json:"scope"`
	RequiredPlan *manifest.PlanTier `json:"requiredPlan"`
	CanDisable   bool               `json:"canDisable"`
	Available    bool               `json:"available"`
	Active       bool               `json:"active"`
	ActivatedAt  *time.Time         `json:"activatedAt,omitempty"`
	UIEntry      *manifest.UIEntry  `json:"uiEntry,omitempty"`
}

// Service evaluates tenant module activation against the manifest catalog.
type Service struct {
	store   Store
	catalog *manifest.Catalog
	now     func() time.Time
}

// NewService creates a tenancy service.
func NewService(store Store, catalog *manifest.Catalog) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Tenant returns a tenant.
func (s *Service) Tenant(ctx context.Context, tenantID string) (*Tenant, error) {
	return s.store.GetTenant(ctx, tenantID)
}

// EnsureTenant creates the tenant if it does not exist.
func (s *Service) EnsureTenant(ctx context.Context, tenantID, name string, plan manifest.PlanTier) (*Tenant, error) {
	t, err := s.store.GetTenant(ctx, tenantID)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrTenantNotFound) {
		return nil, err
	}
	if !plan.Valid() {
		return nil, fmt.Errorf("tenant %s: unknown plan %q", tenantID, plan)
	}
	t = &Tenant{ID: tenantID, Name: name, Plan: plan, CreatedAt: s.now()}
	if err := s.store.PutTenant(ctx, t); err != nil {
		return nil, fmt.Errorf("create tenant %s: %w", tenantID, err)
	}
	return t, nil
}

// ActiveModules returns the modules active for a tenant, in catalog order.
// Global modules are always included. A tenant-scoped module is included
// when it has an active record and the tenant's plan covers it.
func (s *Service) ActiveModules(ctx context.Context, tenantID string) ([]string, error) {
	states, err := s.Modules(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	active := make([]string, 0, len(states))
	for _, st := range states {
		if st.Active {
			active = append(active, st.ID)
		}
	}
	return active, nil
}

// IsActive reports whether moduleID is currently active for tenantID.
func (s *Service) IsActive(ctx context.Context, tenantID, moduleID string) (bool, error) {
	active, err := s.ActiveModules(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return slices.Contains(active, moduleID), nil
}

// Modules returns every catalog module with its state for the tenant.
func (s *Service) Modules(ctx context.Context, tenantID string) ([]ModuleState, error) {
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListActivations(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	byModule := make(map[string]*Activation, len(records))
	for _, a := range records {
		byModule[a.ModuleID] = a
	}

	all := s.catalog.All()
	states := make([]ModuleState, 0, len(all))
	for _, m := range all {
		st := ModuleState{
			ID:           m.ID,
			Name:         m.Name,
			Version:      m.Version,
			Scope:        m.Scope,
			RequiredPlan: m.RequiredPlan,
			CanDisable:   m.CanDisable,
			Available:    tenant.Plan.Includes(m.RequiredPlan),
			UIEntry:      m.UIEntry,
		}
		switch {
		case m.IsGlobal():
			st.Active = st.Available
		case byModule[m.ID].Active():
			st.Active = st.Available
			at := byModule[m.ID].ActivatedAt
			st.ActivatedAt = &at
		}
		states = append(states, st)
	}
	return states, nil
}

// Activate enables a module for a tenant.
func (s *Service) Activate(ctx context.Context, tenantID, moduleID string) (*Activation, error) {
	m, tenant, err := s.resolve(ctx, tenantID, moduleID)
	if err != nil {
		return nil, err
	}
	if !tenant.Plan.Includes(m.RequiredPlan) {
		return nil, fmt.Errorf("%w: %s requires %s, tenant %s is on %s",
			ErrPlanRequired, moduleID, *m.RequiredPlan, tenantID, tenant.Plan)
	}

	now := s.now()
	a := &Activation{
		TenantID:    tenantID,
		ModuleID:    moduleID,
		Status:      StatusActive,
		ActivatedAt: now,
		UpdatedAt:   now,
	}
	if existing, err := s.store.GetActivation(ctx, tenantID, moduleID); err == nil && existing.Active() {
		return existing, nil
	}
	if err := s.store.PutActivation(ctx, a); err != nil {
		return nil, fmt.Errorf("activate %s for %s: %w", moduleID, tenantID, err)
	}

	metrics.ModuleActivations.WithLabelValues(moduleID, "activate").Inc()
	logging.Ctx(ctx).Info().
		Str("tenant_id", tenantID).
		Str("module", moduleID).
		Msg("Module activated")
	return a, nil
}

// Deactivate disables a module for a tenant. The change reaches a user's
// requests at their next session refresh.
func (s *Service) Deactivate(ctx context.Context, tenantID, moduleID string) (*Activation, error) {
	m, _, err := s.resolve(ctx, tenantID, moduleID)
	if err != nil {
		return nil, err
	}
	if !m.CanDisable || m.IsGlobal() {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotDisableable, moduleID)
	}

	a, err := s.store.GetActivation(ctx, tenantID, moduleID)
	if errors.Is(err, ErrActivationNotFound) {
		a = &Activation{TenantID: tenantID, ModuleID: moduleID}
	} else if err != nil {
		return nil, err
	}
	if a.Status == StatusInactive {
		return a, nil
	}

	a.Status = StatusInactive
	a.UpdatedAt = s.now()
	if err := s.store.PutActivation(ctx, a); err != nil {
		return nil, fmt.Errorf("deactivate %s for %s: %w", moduleID, tenantID, err)
	}

	metrics.ModuleActivations.WithLabelValues(moduleID, "deactivate").Inc()
	logging.Ctx(ctx).Info().
		Str("tenant_id", tenantID).
		Str("module", moduleID).
		Msg("Module deactivated")
	return a, nil
}

func (s *Service) resolve(ctx context.Context, tenantID, moduleID string) (*manifest.ModuleManifest, *Tenant, error) {
	m, ok := s.catalog.Get(moduleID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownModule, moduleID)
	}
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	return m, tenant, nil
}

// Seed describes a tenant to create at startup.
type Seed struct {
	ID      string   `koanf:"id"`
	Name    string   `koanf:"name"`
	Plan    string   `koanf:"plan"`
	Modules []string `koanf:"modules"`
}

// ApplySeeds creates missing tenants and activates their listed modules.
func (s *Service) ApplySeeds(ctx context.Context, seeds []Seed) error {
	for _, seed := range seeds {
		if _, err := s.EnsureTenant(ctx, seed.ID, seed.Name, manifest.PlanTier(seed.Plan)); err != nil {
			return err
		}
		for _, moduleID := range seed.Modules {
			if _, err := s.Activate(ctx, seed.ID, moduleID); err != nil {
				return fmt.Errorf("seed tenant %s: %w", seed.ID, err)
			}
		}
	}
	return nil
}

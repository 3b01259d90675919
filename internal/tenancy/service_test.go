// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package tenancy

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/tomtom215/tavola/internal/manifest"
)

func testCatalog(t *testing.T) *manifest.Catalog {
	t.Helper()
	c, err := manifest.NewCatalog(
		&manifest.ModuleManifest{ID: "platform", Name: "Platform", Version: "1", Scope: manifest.ScopeGlobal},
		&manifest.ModuleManifest{ID: "orders-module", Name: "Orders", Version: "1", Scope: manifest.ScopeTenant, CanDisable: true},
		&manifest.ModuleManifest{ID: "financial", Name: "Financial", Version: "1", Scope: manifest.ScopeTenant, CanDisable: true, RequiredPlan: manifest.Plan(manifest.PlanPro)},
		&manifest.ModuleManifest{ID: "kitchen", Name: "Kitchen", Version: "1", Scope: manifest.ScopeTenant, CanDisable: false},
	)
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return c
}

// stores runs fn against every Store implementation.
func stores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
	t.Run("badger", func(t *testing.T) {
		s, err := OpenBadgerStore("")
		if err != nil {
			t.Fatalf("OpenBadgerStore() error = %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		fn(t, s)
	})
}

func TestActiveModules(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		svc := NewService(store, testCatalog(t))

		if _, err := svc.EnsureTenant(ctx, "t1", "Trattoria", manifest.PlanStarter); err != nil {
			t.Fatal(err)
		}

		active, err := svc.ActiveModules(ctx, "t1")
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(active, []string{"platform"}) {
			t.Errorf("ActiveModules() = %v, want only the global module", active)
		}

		if _, err := svc.Activate(ctx, "t1", "orders-module"); err != nil {
			t.Fatalf("Activate() error = %v", err)
		}
		active, _ = svc.ActiveModules(ctx, "t1")
		if !slices.Equal(active, []string{"platform", "orders-module"}) {
			t.Errorf("ActiveModules() = %v", active)
		}

		if _, err := svc.Deactivate(ctx, "t1", "orders-module"); err != nil {
			t.Fatalf("Deactivate() error = %v", err)
		}
		active, _ = svc.ActiveModules(ctx, "t1")
		if slices.Contains(active, "orders-module") {
			t.Errorf("ActiveModules() = %v after deactivate", active)
		}
	})
}

func TestActivate_PlanGating(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		svc := NewService(store, testCatalog(t))
		_, _ = svc.EnsureTenant(ctx, "small", "Small", manifest.PlanStarter)
		_, _ = svc.EnsureTenant(ctx, "big", "Big", manifest.PlanEnterprise)

		if _, err := svc.Activate(ctx, "small", "financial"); !errors.Is(err, ErrPlanRequired) {
			t.Errorf("Activate(small, financial) error = %v, want ErrPlanRequired", err)
		}
		if _, err := svc.Activate(ctx, "big", "financial"); err != nil {
			t.Errorf("Activate(big, financial) error = %v", err)
		}
	})
}

func TestActiveModules_DowngradeHidesModule(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, testCatalog(t))
	_, _ = svc.EnsureTenant(ctx, "t1", "T", manifest.PlanPro)
	if _, err := svc.Activate(ctx, "t1", "financial"); err != nil {
		t.Fatal(err)
	}

	_ = store.PutTenant(ctx, &Tenant{ID: "t1", Name: "T", Plan: manifest.PlanFree})

	active, _ := svc.ActiveModules(ctx, "t1")
	if slices.Contains(active, "financial") {
		t.Errorf("ActiveModules() = %v, plan no longer covers financial", active)
	}
}

func TestDeactivate_Rules(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		svc := NewService(store, testCatalog(t))
		_, _ = svc.EnsureTenant(ctx, "t1", "T", manifest.PlanFree)

		if _, err := svc.Deactivate(ctx, "t1", "platform"); !errors.Is(err, ErrModuleNotDisableable) {
			t.Errorf("Deactivate(platform) error = %v", err)
		}
		if _, err := svc.Deactivate(ctx, "t1", "kitchen"); !errors.Is(err, ErrModuleNotDisableable) {
			t.Errorf("Deactivate(kitchen) error = %v", err)
		}
		if _, err := svc.Deactivate(ctx, "t1", "nope"); !errors.Is(err, ErrUnknownModule) {
			t.Errorf("Deactivate(nope) error = %v", err)
		}
		if _, err := svc.Activate(ctx, "ghost", "orders-module"); !errors.Is(err, ErrTenantNotFound) {
			t.Errorf("Activate(ghost) error = %v", err)
		}
	})
}

func TestModules_States(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(), testCatalog(t))
	_, _ = svc.EnsureTenant(ctx, "t1", "T", manifest.PlanStarter)
	_, _ = svc.Activate(ctx, "t1", "orders-module")

	states, err := svc.Modules(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 4 {
		t.Fatalf("len(states) = %d", len(states))
	}
	byID := map[string]ModuleState{}
	for _, s := range states {
		byID[s.ID] = s
	}
	if !byID["orders-module"].Active || byID["orders-module"].ActivatedAt == nil {
		t.Errorf("orders-module state = %+v", byID["orders-module"])
	}
	if byID["financial"].Available {
		t.Error("financial reported available on starter plan")
	}
}

func TestApplySeeds(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		svc := NewService(store, testCatalog(t))

		seeds := []Seed{{ID: "demo", Name: "Demo", Plan: "pro", Modules: []string{"orders-module", "financial"}}}
		if err := svc.ApplySeeds(ctx, seeds); err != nil {
			t.Fatalf("ApplySeeds() error = %v", err)
		}
		// Applying twice is a no-op.
		if err := svc.ApplySeeds(ctx, seeds); err != nil {
			t.Fatalf("ApplySeeds() second run error = %v", err)
		}

		active, _ := svc.ActiveModules(ctx, "demo")
		if !slices.Equal(active, []string{"platform", "orders-module", "financial"}) {
			t.Errorf("ActiveModules() = %v", active)
		}

		tenants, _ := store.ListTenants(ctx)
		if len(tenants) != 1 || tenants[0].Plan != manifest.PlanPro {
			t.Errorf("ListTenants() = %+v", tenants)
		}
	})
}

func TestApplySeeds_BadPlan(t *testing.T) {
	svc := NewService(NewMemoryStore(), testCatalog(t))
	err := svc.ApplySeeds(context.Background(), []Seed{{ID: "x", Plan: "platinum"}})
	if err == nil {
		t.Error("ApplySeeds() expected error for unknown plan")
	}
}

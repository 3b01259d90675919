// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package platform

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/tavola/internal/api/response"
	"github.com/tomtom215/tavola/internal/eventbus"
	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/manifest"
	"github.com/tomtom215/tavola/internal/module"
	"github.com/tomtom215/tavola/internal/rbac"
	"github.com/tomtom215/tavola/internal/registry"
	"github.com/tomtom215/tavola/internal/tenancy"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "json", Output: io.Discard})
}

func kitchenManifest() *manifest.ModuleManifest {
	return &manifest.ModuleManifest{ID: "kitchen", Name: "Kitchen", Version: "1.0.0", Scope: manifest.ScopeTenant, CanDisable: true}
}

func analyticsManifest() *manifest.ModuleManifest {
	return &manifest.ModuleManifest{
		ID: "analytics", Name: "Analytics", Version: "1.0.0",
		Scope: manifest.ScopeTenant, CanDisable: true, RequiredPlan: manifest.Plan(manifest.PlanPro),
	}
}

func lockedManifest() *manifest.ModuleManifest {
	return &manifest.ModuleManifest{ID: "billing", Name: "Billing", Version: "1.0.0", Scope: manifest.ScopeTenant}
}

type emitted struct {
	tenantID string
	event    string
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (e *recordingEmitter) EmitToTenant(tenantID, eventName string, _ any, _ string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, emitted{tenantID, eventName})
}

type fixture struct {
	handler  http.Handler
	tenancy  *tenancy.Service
	realtime *recordingEmitter
	events   *[]eventbus.Event
}

func newFixture(t *testing.T, p *rbac.Principal) *fixture {
	t.Helper()
	catalog, err := manifest.NewCatalog(Manifest(), kitchenManifest(), analyticsManifest(), lockedManifest())
	if err != nil {
		t.Fatal(err)
	}
	svc := tenancy.NewService(tenancy.NewMemoryStore(), catalog)
	if _, err := svc.EnsureTenant(context.Background(), "tenant-a", "Trattoria", manifest.PlanStarter); err != nil {
		t.Fatal(err)
	}

	services := registry.New()
	bus := eventbus.New(eventbus.DefaultConfig())
	var got []eventbus.Event
	bus.SubscribeAll(eventbus.HandlerFunc(func(_ context.Context, ev eventbus.Event) error {
		got = append(got, ev)
		return nil
	}))
	rt := &recordingEmitter{}

	runtime := module.New(module.DefaultConfig(), services, bus, rt)
	if err := runtime.Add(New(svc)); err != nil {
		t.Fatal(err)
	}
	if err := runtime.Boot(context.Background()); err != nil {
		t.Fatalf("Boot: %v", err)
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if p != nil {
				req = req.WithContext(rbac.WithPrincipal(req.Context(), p))
			}
			next.ServeHTTP(w, req)
		})
	})
	if err := runtime.MountRoutes(r, module.RouteEnv{Services: services, Bus: bus, Realtime: rt}); err != nil {
		t.Fatal(err)
	}
	return &fixture{handler: r, tenancy: svc, realtime: rt, events: &got}
}

func owner() *rbac.Principal {
	return &rbac.Principal{
		UserID:        "owner-1",
		TenantID:      "tenant-a",
		Role:          "owner",
		Permissions:   []string{PermManageModules},
		ActiveModules: []string{ModuleID},
	}
}

func (f *fixture) do(t *testing.T, method, path string) (int, response.APIResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	var resp response.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return rec.Code, resp
}

func TestManifestValid(t *testing.T) {
	if err := manifest.Validate(Manifest()); err != nil {
		t.Fatalf("manifest invalid: %v", err)
	}
	if !Manifest().IsGlobal() || Manifest().CanDisable {
		t.Error("platform must be global and not disableable")
	}
}

func TestRegister_RequiresTenancy(t *testing.T) {
	rt := module.New(module.DefaultConfig(), registry.New(), eventbus.New(eventbus.DefaultConfig()), nil)
	rt.Add(New(nil))
	if err := rt.Boot(context.Background()); err == nil {
		t.Fatal("Boot succeeded without a tenancy service")
	}
}

func TestActivateAndDeactivate(t *testing.T) {
	f := newFixture(t, owner())
	ctx := context.Background()

	code, _ := f.do(t, http.MethodPost, "/tenant/modules/kitchen")
	if code != http.StatusOK {
		t.Fatalf("activate status = %d", code)
	}
	if ok, _ := f.tenancy.IsActive(ctx, "tenant-a", "kitchen"); !ok {
		t.Error("kitchen not active after POST")
	}

	code, _ = f.do(t, http.MethodDelete, "/tenant/modules/kitchen")
	if code != http.StatusOK {
		t.Fatalf("deactivate status = %d", code)
	}
	if ok, _ := f.tenancy.IsActive(ctx, "tenant-a", "kitchen"); ok {
		t.Error("kitchen still active after DELETE")
	}

	if len(*f.events) != 2 ||
		(*f.events)[0].Type != EventModuleActivated ||
		(*f.events)[1].Type != EventModuleDeactivated ||
		(*f.events)[0].DataString("moduleId") != "kitchen" {
		t.Errorf("unexpected events %+v", *f.events)
	}
	if len(f.realtime.events) != 2 || f.realtime.events[0] != (emitted{"tenant-a", RealtimeModulesChanged}) {
		t.Errorf("unexpected realtime events %+v", f.realtime.events)
	}
}

func TestChangeErrors(t *testing.T) {
	f := newFixture(t, owner())

	tests := []struct {
		name     string
		method   string
		path     string
		wantCode int
		wantErr  string
	}{
		{"unknown module", http.MethodPost, "/tenant/modules/nope", http.StatusNotFound, response.ErrCodeNotFound},
		{"plan required", http.MethodPost, "/tenant/modules/analytics", http.StatusForbidden, response.ErrCodePlanRequired},
		{"cannot disable", http.MethodDelete, "/tenant/modules/billing", http.StatusConflict, response.ErrCodeConflict},
		{"cannot disable global", http.MethodDelete, "/tenant/modules/platform", http.StatusConflict, response.ErrCodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := f.do(t, tt.method, tt.path)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d", code, tt.wantCode)
			}
			if resp.Error == nil || resp.Error.Code != tt.wantErr {
				t.Errorf("error = %+v, want %s", resp.Error, tt.wantErr)
			}
		})
	}
	if len(*f.events) != 0 {
		t.Errorf("failed changes published %d events", len(*f.events))
	}
}

func TestList(t *testing.T) {
	f := newFixture(t, owner())
	code, resp := f.do(t, http.MethodGet, "/tenant/modules")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp.Meta == nil || resp.Meta.Count == nil || *resp.Meta.Count != 4 {
		t.Errorf("meta = %+v", resp.Meta)
	}
}

func TestRequiresManagePermission(t *testing.T) {
	p := owner()
	p.Role = "staff"
	p.Permissions = []string{"orders.create"}
	f := newFixture(t, p)

	code, resp := f.do(t, http.MethodPost, "/tenant/modules/kitchen")
	if code != http.StatusForbidden || resp.Error.Code != response.ErrCodeInsufficientPerms {
		t.Errorf("status = %d error %+v", code, resp.Error)
	}
}

// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package module

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/tavola/internal/eventbus"
	"github.com/tomtom215/tavola/internal/manifest"
	"github.com/tomtom215/tavola/internal/registry"
)

// fakeModule is a configurable module for runtime tests.
type fakeModule struct {
	mf       *manifest.ModuleManifest
	register func(ctx context.Context, mc *Context) error
	trace    *[]string
	routes   bool
}

func (f *fakeModule) Manifest() *manifest.ModuleManifest { return f.mf }

func (f *fakeModule) Register(ctx context.Context, mc *Context) error {
	if f.trace != nil {
		*f.trace = append(*f.trace, f.mf.ID)
	}
	if f.register != nil {
		return f.register(ctx, mc)
	}
	return nil
}

type mountingModule struct {
	*fakeModule
}

func (m *mountingModule) MountRoutes(r chi.Router, env RouteEnv) {
	r.Get("/"+m.mf.ID, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

func newFake(id string, trace *[]string, deps ...string) *fakeModule {
	return &fakeModule{
		mf: &manifest.ModuleManifest{
			ID:         id,
			Name:       id,
			Version:    "1.0.0",
			Scope:      manifest.ScopeTenant,
			CanDisable: true,
			DependsOn:  deps,
		},
		trace: trace,
	}
}

func newRuntime(cfg Config) (*Runtime, *registry.Registry, *eventbus.Bus) {
	reg := registry.New()
	bus := eventbus.New(eventbus.DefaultConfig())
	return New(cfg, reg, bus, nil), reg, bus
}

func TestBoot_DeclarationOrder(t *testing.T) {
	var trace []string
	rt, _, _ := newRuntime(DefaultConfig())
	if err := rt.Add(newFake("alpha", &trace), newFake("beta", &trace), newFake("gamma", &trace)); err != nil {
		t.Fatal(err)
	}

	if err := rt.Boot(context.Background()); err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	if got := strings.Join(trace, ","); got != "alpha,beta,gamma" {
		t.Errorf("order = %s", got)
	}
	st := rt.Status()
	if !st.Booted || strings.Join(st.Order, ",") != "alpha,beta,gamma" {
		t.Errorf("Status() = %+v", st)
	}
}

func TestBoot_DependencyOrder(t *testing.T) {
	var trace []string
	rt, _, _ := newRuntime(DefaultConfig())
	_ = rt.Add(
		newFake("sound", &trace, "orders"),
		newFake("reports", &trace, "orders", "sound"),
		newFake("orders", &trace),
		newFake("platform", &trace),
	)

	if err := rt.Boot(context.Background()); err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	if got := strings.Join(trace, ","); got != "orders,sound,reports,platform" {
		t.Errorf("order = %s", got)
	}
}

func TestBoot_DependencyErrors(t *testing.T) {
	t.Run("unknown", func(t *testing.T) {
		rt, _, _ := newRuntime(DefaultConfig())
		_ = rt.Add(newFake("sound", nil, "orders"))
		if err := rt.Boot(context.Background()); !errors.Is(err, ErrUnknownDependency) {
			t.Errorf("error = %v, want ErrUnknownDependency", err)
		}
	})

	t.Run("cycle", func(t *testing.T) {
		var trace []string
		rt, _, _ := newRuntime(DefaultConfig())
		_ = rt.Add(newFake("a", &trace, "b"), newFake("b", &trace, "a"))
		if err := rt.Boot(context.Background()); !errors.Is(err, ErrDependencyCycle) {
			t.Errorf("error = %v, want ErrDependencyCycle", err)
		}
		if len(trace) != 0 {
			t.Errorf("modules registered despite cycle: %v", trace)
		}
	})
}

func TestBoot_RegisterFailureAborts(t *testing.T) {
	var trace []string
	failing := newFake("broken", &trace)
	failing.register = func(ctx context.Context, mc *Context) error {
		return errors.New("cannot reach store")
	}

	rt, reg, _ := newRuntime(DefaultConfig())
	_ = rt.Add(newFake("first", &trace), failing, newFake("never", &trace))

	err := rt.Boot(context.Background())
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Fatalf("Boot() error = %v, want failure naming module", err)
	}
	if got := strings.Join(trace, ","); got != "first,broken" {
		t.Errorf("trace = %s, later modules must not register", got)
	}
	if reg.Sealed() {
		t.Error("registry sealed after failed boot")
	}
	st := rt.Status()
	if st.Booted || st.Error == "" {
		t.Errorf("Status() = %+v", st)
	}
	if err := rt.MountRoutes(chi.NewRouter(), RouteEnv{}); !errors.Is(err, ErrNotBooted) {
		t.Errorf("MountRoutes() error = %v, want ErrNotBooted", err)
	}
}

func TestBoot_RegisterPanicAborts(t *testing.T) {
	m := newFake("panicky", nil)
	m.register = func(ctx context.Context, mc *Context) error {
		panic("nil map")
	}
	rt, _, _ := newRuntime(DefaultConfig())
	_ = rt.Add(m)

	if err := rt.Boot(context.Background()); err == nil || !strings.Contains(err.Error(), "panic") {
		t.Errorf("Boot() error = %v, want panic error", err)
	}
}

func TestBoot_RegisterTimeout(t *testing.T) {
	m := newFake("hung", nil)
	m.register = func(ctx context.Context, mc *Context) error {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return nil
	}
	rt, _, _ := newRuntime(Config{RegisterTimeout: 20 * time.Millisecond})
	_ = rt.Add(m)

	if err := rt.Boot(context.Background()); !errors.Is(err, ErrRegisterTimeout) {
		t.Errorf("Boot() error = %v, want ErrRegisterTimeout", err)
	}
}

func TestBoot_ServiceReplacedAborts(t *testing.T) {
	first := newFake("first", nil)
	first.register = func(ctx context.Context, mc *Context) error {
		return mc.RegisterService("shared", "Svc", 1)
	}
	second := newFake("second", nil)
	second.register = func(ctx context.Context, mc *Context) error {
		// Ignoring the error does not hide it from the runtime.
		_ = mc.RegisterService("shared", "Svc", 2)
		return nil
	}

	rt, _, _ := newRuntime(DefaultConfig())
	_ = rt.Add(first, second)

	if err := rt.Boot(context.Background()); !errors.Is(err, registry.ErrServiceReplaced) {
		t.Errorf("Boot() error = %v, want ErrServiceReplaced", err)
	}
}

func TestBoot_SharedContext(t *testing.T) {
	var seen *Context
	producer := newFake("producer", nil)
	producer.register = func(ctx context.Context, mc *Context) error {
		seen = mc
		return mc.RegisterService("producer", "Clock", "tick")
	}

	var got any
	consumer := newFake("consumer", nil, "producer")
	consumer.register = func(ctx context.Context, mc *Context) error {
		if mc != seen {
			t.Error("consumer received a different Context")
		}
		got, _ = mc.Lookup("producer", "Clock")
		return nil
	}

	rt, reg, _ := newRuntime(DefaultConfig())
	_ = rt.Add(consumer, producer)
	if err := rt.Boot(context.Background()); err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	if got != "tick" {
		t.Errorf("consumer saw %v, want producer's service", got)
	}
	if rt.Context() != seen {
		t.Error("Runtime.Context() differs from the one passed to modules")
	}
	if !reg.Sealed() {
		t.Error("registry not sealed after boot")
	}
}

func TestBoot_SubscriptionsShareBus(t *testing.T) {
	received := 0
	listener := newFake("listener", nil)
	listener.register = func(ctx context.Context, mc *Context) error {
		return mc.Bus.SubscribeFunc("pub.happened", "count", func(ctx context.Context, e eventbus.Event) error {
			received++
			return nil
		})
	}
	publisher := newFake("pub", nil)
	publisher.mf.EventTypes = []manifest.EventTypeDescriptor{{ID: "pub.happened", Name: "Happened"}}

	rt, _, bus := newRuntime(DefaultConfig())
	_ = rt.Add(publisher, listener)
	if err := rt.Boot(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := bus.Publish(context.Background(), eventbus.NewEvent("pub.happened", "t1", "", nil).From("pub")); err != nil {
		t.Fatal(err)
	}
	if received != 1 {
		t.Errorf("received = %d, want 1", received)
	}
	if err := bus.SubscribeFunc("late", "x", func(context.Context, eventbus.Event) error { return nil }); !errors.Is(err, eventbus.ErrSealed) {
		t.Errorf("Subscribe after boot error = %v, want ErrSealed", err)
	}
}

func TestBoot_InvalidManifests(t *testing.T) {
	t.Run("invalid", func(t *testing.T) {
		m := newFake("ok", nil)
		m.mf.Version = ""
		rt, _, _ := newRuntime(DefaultConfig())
		_ = rt.Add(m)
		var verr *manifest.ValidationError
		if err := rt.Boot(context.Background()); !errors.As(err, &verr) {
			t.Errorf("Boot() error = %v, want ValidationError", err)
		}
	})

	t.Run("duplicate permission", func(t *testing.T) {
		a, b := newFake("a", nil), newFake("b", nil)
		a.mf.Permissions = []manifest.PermissionDescriptor{{ID: "x.read", Name: "Read"}}
		b.mf.Permissions = []manifest.PermissionDescriptor{{ID: "x.read", Name: "Read"}}
		rt, _, _ := newRuntime(DefaultConfig())
		_ = rt.Add(a, b)
		if err := rt.Boot(context.Background()); !errors.Is(err, manifest.ErrDuplicatePermission) {
			t.Errorf("Boot() error = %v, want ErrDuplicatePermission", err)
		}
	})
}

func TestAdd_Duplicate(t *testing.T) {
	rt, _, _ := newRuntime(DefaultConfig())
	if err := rt.Add(newFake("x", nil), newFake("x", nil)); !errors.Is(err, ErrDuplicateModule) {
		t.Errorf("Add() error = %v, want ErrDuplicateModule", err)
	}
}

func TestBoot_Twice(t *testing.T) {
	rt, _, _ := newRuntime(DefaultConfig())
	_ = rt.Add(newFake("x", nil))
	if err := rt.Boot(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := rt.Boot(context.Background()); !errors.Is(err, ErrAlreadyBooted) {
		t.Errorf("second Boot() error = %v", err)
	}
	if err := rt.Add(newFake("y", nil)); !errors.Is(err, ErrAlreadyBooted) {
		t.Errorf("Add() after boot error = %v", err)
	}
}

func TestMountRoutes(t *testing.T) {
	rt, _, _ := newRuntime(DefaultConfig())
	_ = rt.Add(&mountingModule{newFake("kitchen", nil)}, newFake("plain", nil))
	if err := rt.Boot(context.Background()); err != nil {
		t.Fatal(err)
	}

	r := chi.NewRouter()
	if err := rt.MountRoutes(r, RouteEnv{}); err != nil {
		t.Fatalf("MountRoutes() error = %v", err)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/kitchen", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want mounted route", rec.Code)
	}
}

// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package soundnotifications

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/tomtom215/tavola/internal/eventbus"
	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/manifest"
	"github.com/tomtom215/tavola/internal/module"
	"github.com/tomtom215/tavola/internal/modules/orders"
	"github.com/tomtom215/tavola/internal/modules/platform"
	"github.com/tomtom215/tavola/internal/registry"
	"github.com/tomtom215/tavola/internal/tenancy"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "json", Output: io.Discard})
}

type emitted struct {
	tenantID      string
	event         string
	payload       any
	correlationID string
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (e *recordingEmitter) EmitToTenant(tenantID, eventName string, payload any, correlationID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, emitted{tenantID, eventName, payload, correlationID})
}

// sounds returns the sound:play events sent to tenantID.
func (e *recordingEmitter) sounds(tenantID string) []emitted {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []emitted
	for _, ev := range e.events {
		if ev.tenantID == tenantID && ev.event == RealtimeSoundPlay {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	orders   *orders.Service
	realtime *recordingEmitter
	runtime  *module.Runtime
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	catalog, err := manifest.NewCatalog(platform.Manifest(), orders.Manifest(), Manifest())
	if err != nil {
		t.Fatal(err)
	}
	svc := tenancy.NewService(tenancy.NewMemoryStore(), catalog)
	if err := svc.ApplySeeds(ctx, []tenancy.Seed{
		{ID: "tenant-a", Name: "A", Plan: "starter", Modules: []string{orders.ModuleID, ModuleID}},
		{ID: "tenant-b", Name: "B", Plan: "starter", Modules: []string{orders.ModuleID}},
	}); err != nil {
		t.Fatal(err)
	}

	services := registry.New()
	rt := &recordingEmitter{}
	runtime := module.New(module.DefaultConfig(), services, eventbus.New(eventbus.DefaultConfig()), rt)
	// Declared out of dependency order on purpose.
	if err := runtime.Add(New(), orders.New(), platform.New(svc)); err != nil {
		t.Fatal(err)
	}
	if err := runtime.Boot(ctx); err != nil {
		t.Fatalf("Boot: %v", err)
	}
	ordersSvc, err := orders.ServiceKey.Get(services)
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{orders: ordersSvc, realtime: rt, runtime: runtime}
}

func newOrder(t *testing.T, svc *orders.Service, tenantID string) *orders.Order {
	t.Helper()
	o, err := svc.Create(context.Background(), tenantID, "user-1", &orders.CreateRequest{
		Table: "4",
		Items: []orders.Item{{Name: "Tagliatelle", Quantity: 1, UnitPriceCents: 1400}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return o
}

func TestBootOrderFollowsDependencies(t *testing.T) {
	f := newFixture(t)
	order := f.runtime.Status().Order
	if len(order) != 3 || order[2] != ModuleID {
		t.Errorf("boot order = %v, want %s last", order, ModuleID)
	}
}

func TestNewOrderPlaysSoundOnce(t *testing.T) {
	f := newFixture(t)
	o := newOrder(t, f.orders, "tenant-a")

	got := f.realtime.sounds("tenant-a")
	if len(got) != 1 {
		t.Fatalf("sound events = %d, want 1", len(got))
	}
	play, ok := got[0].payload.(SoundPlay)
	if !ok {
		t.Fatalf("payload type %T", got[0].payload)
	}
	if play.Sound != SoundNewOrder || play.OrderID != o.ID || play.Table != "4" {
		t.Errorf("payload = %+v", play)
	}
	if got[0].correlationID == "" {
		t.Error("missing correlation id")
	}
}

func TestInactiveTenantGetsNoSound(t *testing.T) {
	f := newFixture(t)
	newOrder(t, f.orders, "tenant-b")

	if got := f.realtime.sounds("tenant-b"); len(got) != 0 {
		t.Errorf("inactive tenant received %d sound events", len(got))
	}
	if got := f.realtime.sounds("tenant-a"); len(got) != 0 {
		t.Errorf("other tenant received %d sound events", len(got))
	}
}

func TestReadyPlaysSound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := newOrder(t, f.orders, "tenant-a")

	for _, s := range []orders.Status{orders.StatusPreparing, orders.StatusReady} {
		if _, err := f.orders.UpdateStatus(ctx, "tenant-a", "user-1", o.ID, s); err != nil {
			t.Fatal(err)
		}
	}

	got := f.realtime.sounds("tenant-a")
	if len(got) != 2 {
		t.Fatalf("sound events = %d, want 2", len(got))
	}
	if play := got[1].payload.(SoundPlay); play.Sound != SoundOrderReady || play.OrderID != o.ID {
		t.Errorf("payload = %+v", play)
	}
}

func TestRegister_RequiresPlatform(t *testing.T) {
	services := registry.New()
	mc := module.New(module.DefaultConfig(), services, eventbus.New(eventbus.DefaultConfig()), nil).Context()
	if err := New().Register(context.Background(), mc); err == nil {
		t.Fatal("Register succeeded without the tenancy service")
	}
}

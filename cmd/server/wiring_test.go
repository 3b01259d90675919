// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package main

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/tavola/internal/config"
	"github.com/tomtom215/tavola/internal/eventbus"
	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/realtime"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "json", Output: io.Discard})
}

func TestOpenTenancyStore(t *testing.T) {
	t.Run("memory has no gc", func(t *testing.T) {
		store, gc, err := openTenancyStore(config.TenancyConfig{Store: "memory"})
		if err != nil {
			t.Fatal(err)
		}
		defer store.Close()
		if gc != nil {
			t.Error("memory store should not schedule GC")
		}
	})

	t.Run("badger schedules gc", func(t *testing.T) {
		store, gc, err := openTenancyStore(config.TenancyConfig{
			Store:      "badger",
			BadgerPath: filepath.Join(t.TempDir(), "tenancy"),
		})
		if err != nil {
			t.Fatal(err)
		}
		defer store.Close()
		if gc == nil {
			t.Fatal("badger store should schedule GC")
		}
		if err := gc(context.Background()); err != nil {
			t.Errorf("gc on empty store: %v", err)
		}
	})

	t.Run("unknown store", func(t *testing.T) {
		if _, _, err := openTenancyStore(config.TenancyConfig{Store: "postgres"}); err == nil {
			t.Error("expected error for unknown store")
		}
	})
}

func TestTenantSeeds(t *testing.T) {
	seeds := tenantSeeds([]config.TenantSeed{
		{ID: "trattoria", Name: "Trattoria", Plan: "starter", Modules: []string{"orders-module"}},
	})
	if len(seeds) != 1 || seeds[0].ID != "trattoria" || seeds[0].Plan != "starter" || seeds[0].Modules[0] != "orders-module" {
		t.Errorf("tenantSeeds = %+v", seeds)
	}
}

func TestStartMessaging_Disabled(t *testing.T) {
	cfg := &config.Config{}
	m, err := startMessaging(context.Background(), cfg, eventbus.New(eventbus.DefaultConfig()), realtime.NewHub(realtime.DefaultConfig()))
	if err != nil {
		t.Fatal(err)
	}
	if m.server != nil || m.bridge != nil || m.forwarder != nil {
		t.Error("nothing should start when NATS is disabled")
	}
	m.Close()
}

func TestStartMessaging_ForwardsEvents(t *testing.T) {
	cfg := &config.Config{
		Realtime: config.RealtimeConfig{NATS: config.RealtimeNATSConfig{
			Enabled:       true,
			Embedded:      true,
			StoreDir:      t.TempDir(),
			SubjectPrefix: "tavola.realtime",
		}},
		Events: config.EventsConfig{
			ForwardEnabled:     true,
			ForwardTopicPrefix: "tavola.events",
			StreamName:         "TAVOLA_EVENTS",
			BreakerFailures:    5,
			BreakerTimeout:     time.Second,
		},
	}
	bus := eventbus.New(eventbus.DefaultConfig())
	hub := realtime.NewHub(realtime.DefaultConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	m, err := startMessaging(ctx, cfg, bus, hub)
	if err != nil {
		t.Fatalf("startMessaging: %v", err)
	}
	t.Cleanup(m.abort)

	if m.bridge == nil || m.forwarder == nil {
		t.Fatal("bridge and forwarder should be running")
	}

	event := eventbus.NewEvent("orders.created", "trattoria", "u-1", map[string]any{"orderId": "o-1"}).From("orders-module")
	if err := bus.Publish(ctx, event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	js, err := jetstream.New(m.streamConn)
	if err != nil {
		t.Fatal(err)
	}
	stream, err := js.Stream(ctx, "TAVOLA_EVENTS")
	if err != nil {
		t.Fatal(err)
	}
	info, err := stream.Info(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info.State.Msgs != 1 {
		t.Errorf("stream holds %d messages, want 1", info.State.Msgs)
	}
}

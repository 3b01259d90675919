// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"

	"github.com/tomtom215/tavola/internal/broker"
	"github.com/tomtom215/tavola/internal/config"
	"github.com/tomtom215/tavola/internal/eventbus"
	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/realtime"
	"github.com/tomtom215/tavola/internal/supervisor"
	"github.com/tomtom215/tavola/internal/supervisor/services"
	"github.com/tomtom215/tavola/internal/tenancy"
)

// openTenancyStore opens the configured activation store. The returned
// PeriodicFunc is non-nil only for stores that need value-log GC.
func openTenancyStore(cfg config.TenancyConfig) (tenancy.Store, services.PeriodicFunc, error) {
	switch cfg.Store {
	case "", "memory":
		logging.Warn().Msg("Tenancy store is in memory; activations are lost on restart")
		return tenancy.NewMemoryStore(), nil, nil
	case "badger":
		store, err := tenancy.OpenBadgerStore(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		logging.Info().Str("path", cfg.BadgerPath).Msg("Tenancy store opened")
		return store, store.RunValueLogGC, nil
	default:
		return nil, nil, fmt.Errorf("unknown tenancy store %q", cfg.Store)
	}
}

func tenantSeeds(seeds []config.TenantSeed) []tenancy.Seed {
	out := make([]tenancy.Seed, 0, len(seeds))
	for _, s := range seeds {
		out = append(out, tenancy.Seed{ID: s.ID, Name: s.Name, Plan: s.Plan, Modules: s.Modules})
	}
	return out
}

// messaging holds the optional NATS pieces: the embedded server, the
// realtime bridge and the domain event forwarder.
type messaging struct {
	server     *broker.EmbeddedServer
	bridgeConn *nats.Conn
	bridge     *realtime.Bridge
	streamConn *nats.Conn
	publisher  message.Publisher
	forwarder  *eventbus.Forwarder
}

// startMessaging connects the realtime bridge and the event forwarder when
// enabled. The forwarder is subscribed to every event type on bus, so this
// must run before the runtime boots and seals the bus.
func startMessaging(ctx context.Context, cfg *config.Config, bus *eventbus.Bus, hub *realtime.Hub) (*messaging, error) {
	m := &messaging{}
	natsCfg := cfg.Realtime.NATS
	if !natsCfg.Enabled && !cfg.Events.ForwardEnabled {
		return m, nil
	}

	url := natsCfg.URL
	if natsCfg.Embedded {
		srv, err := broker.NewEmbeddedServer(broker.ServerConfig{
			Port:      natsCfg.EmbeddedPort,
			JetStream: cfg.Events.ForwardEnabled,
			StoreDir:  natsCfg.StoreDir,
		})
		if err != nil {
			return nil, err
		}
		m.server = srv
		url = srv.ClientURL()
	}

	if natsCfg.Enabled {
		conn, err := broker.Connect(url, "tavola-realtime")
		if err != nil {
			m.abort()
			return nil, err
		}
		m.bridgeConn = conn
		m.bridge = realtime.NewBridge(conn, hub, natsCfg.SubjectPrefix)
		logging.Info().Str("node", m.bridge.NodeID()).Msg("Realtime NATS bridge enabled")
	}

	if cfg.Events.ForwardEnabled {
		if err := m.startForwarder(ctx, url, cfg.Events, bus); err != nil {
			m.abort()
			return nil, err
		}
	}
	return m, nil
}

func (m *messaging) startForwarder(ctx context.Context, url string, cfg config.EventsConfig, bus *eventbus.Bus) error {
	conn, err := broker.Connect(url, "tavola-streams")
	if err != nil {
		return err
	}
	m.streamConn = conn

	streamCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := broker.EnsureStream(streamCtx, conn, broker.StreamConfig{
		Name:            cfg.StreamName,
		Subjects:        []string{cfg.ForwardTopicPrefix + ".>"},
		MaxAge:          7 * 24 * time.Hour,
		DuplicateWindow: 2 * time.Minute,
	}); err != nil {
		return err
	}

	pub, err := broker.NewEventPublisher(url, logging.NewWatermillLogger())
	if err != nil {
		return err
	}
	m.publisher = pub

	fwd, err := eventbus.NewForwarder(pub, eventbus.ForwarderConfig{
		TopicPrefix:     cfg.ForwardTopicPrefix,
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  cfg.BreakerTimeout,
	})
	if err != nil {
		return err
	}
	if err := bus.SubscribeAll(eventbus.Named("event-forwarder", fwd)); err != nil {
		return err
	}
	m.forwarder = fwd
	logging.Info().Str("stream", cfg.StreamName).Str("prefix", cfg.ForwardTopicPrefix).Msg("Event forwarding enabled")
	return nil
}

// supervise adds the long-running messaging services to the tree.
func (m *messaging) supervise(tree *supervisor.SupervisorTree) {
	if m.bridge != nil {
		tree.AddMessagingService(m.bridge)
	}
	if m.server != nil {
		tree.AddMessagingService(services.NewBrokerService(m.server, 10*time.Second))
	}
}

// Close releases client connections. The embedded server is stopped by
// its supervised service.
func (m *messaging) Close() {
	if m.publisher != nil {
		if err := m.publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing event publisher")
		}
	}
	if m.streamConn != nil {
		m.streamConn.Close()
	}
	if m.bridgeConn != nil {
		m.bridgeConn.Close()
	}
}

func (m *messaging) abort() {
	m.Close()
	if m.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.server.Shutdown(ctx)
	}
}

// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// Supervisor names as they appear in suture events and unstopped-service
// reports.
const (
	rootName      = "tavola"
	dataName      = "data-layer"
	messagingName = "messaging-layer"
	apiName       = "api-layer"
)

// TreeConfig sets the restart policy shared by every layer. It maps onto the
// supervisor section of the server config.
type TreeConfig struct {
	// FailureThreshold is how many failures a layer absorbs before backing off.
	FailureThreshold float64
	// FailureDecay is the failure decay rate in seconds.
	FailureDecay float64
	// FailureBackoff pauses restarts once the threshold is crossed.
	FailureBackoff time.Duration
	// ShutdownTimeout bounds how long each service gets to return from Serve.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's documented defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

func (c TreeConfig) withDefaults() TreeConfig {
	d := DefaultTreeConfig()
	if c.FailureThreshold == 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.FailureDecay == 0 {
		c.FailureDecay = d.FailureDecay
	}
	if c.FailureBackoff == 0 {
		c.FailureBackoff = d.FailureBackoff
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	return c
}

func (c TreeConfig) spec(hook suture.EventHook) suture.Spec {
	return suture.Spec{
		EventHook:        hook,
		FailureThreshold: c.FailureThreshold,
		FailureDecay:     c.FailureDecay,
		FailureBackoff:   c.FailureBackoff,
		Timeout:          c.ShutdownTimeout,
	}
}

// SupervisorTree supervises the server's long-running services in three
// independent layers:
//
//   - data: tenancy store maintenance such as the badger value-log GC.
//   - messaging: the realtime hub, the NATS realtime bridge and the embedded
//     NATS server.
//   - api: the HTTP server.
//
// A layer that exhausts its restart budget backs off on its own; the others
// keep serving. Module boot happens before the tree starts and is not part
// of it.
type SupervisorTree struct {
	root      *suture.Supervisor
	data      *suture.Supervisor
	messaging *suture.Supervisor
	api       *suture.Supervisor
	config    TreeConfig
}

// NewSupervisorTree builds the tree and routes suture events to logger.
// Zero config values take defaults.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	config = config.withDefaults()

	// Layers added to the root inherit its hook.
	hook := (&sutureslog.Handler{Logger: logger}).MustHook()
	t := &SupervisorTree{
		root:      suture.New(rootName, config.spec(hook)),
		data:      suture.New(dataName, config.spec(nil)),
		messaging: suture.New(messagingName, config.spec(nil)),
		api:       suture.New(apiName, config.spec(nil)),
		config:    config,
	}
	for _, layer := range []*suture.Supervisor{t.data, t.messaging, t.api} {
		t.root.Add(layer)
	}
	return t, nil
}

// Root returns the root supervisor.
func (t *SupervisorTree) Root() *suture.Supervisor {
	return t.root
}

// AddDataService supervises a store maintenance job, typically a
// services.PeriodicService wrapping tenancy value-log GC.
func (t *SupervisorTree) AddDataService(svc suture.Service) suture.ServiceToken {
	return t.data.Add(svc)
}

// AddMessagingService supervises realtime and broker services: the hub, the
// NATS bridge, or a services.BrokerService.
func (t *SupervisorTree) AddMessagingService(svc suture.Service) suture.ServiceToken {
	return t.messaging.Add(svc)
}

// AddAPIService supervises the HTTP listener.
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve blocks until ctx is cancelled and every layer has stopped.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the tree and returns a channel that receives its
// exit error.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services still running after their
// ShutdownTimeout; main logs them on exit.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

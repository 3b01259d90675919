// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"
)

// ErrBrokerStopped is returned when the broker stops on its own.
var ErrBrokerStopped = errors.New("embedded broker stopped")

// Broker is the lifecycle subset of *broker.EmbeddedServer.
type Broker interface {
	IsRunning() bool
	Shutdown(ctx context.Context) error
}

// BrokerService keeps an already started embedded NATS server under
// supervision and shuts it down with the tree.
//
// The server is started before the tree so the bridge can connect
// during wiring. If it stops unexpectedly Serve returns ErrBrokerStopped
// and the supervisor logs the failure; it is not restarted.
type BrokerService struct {
	broker          Broker
	pollInterval    time.Duration
	shutdownTimeout time.Duration
}

// NewBrokerService wraps b.
func NewBrokerService(b Broker, shutdownTimeout time.Duration) *BrokerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &BrokerService{
		broker:          b,
		pollInterval:    time.Second,
		shutdownTimeout: shutdownTimeout,
	}
}

// Serve implements suture.Service.
func (s *BrokerService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.broker.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("embedded broker shutdown failed: %w", err)
			}
			return ctx.Err()
		case <-ticker.C:
			if !s.broker.IsRunning() {
				return fmt.Errorf("%w: %w", ErrBrokerStopped, suture.ErrDoNotRestart)
			}
		}
	}
}

func (s *BrokerService) String() string {
	return "embedded-nats"
}

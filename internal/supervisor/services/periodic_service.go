// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package services

import (
	"context"
	"time"

	"github.com/tomtom215/tavola/internal/logging"
)

// PeriodicFunc is one unit of periodic work.
type PeriodicFunc func(ctx context.Context) error

// PeriodicService calls fn every interval until the context ends.
// Errors from fn are logged and do not stop the loop.
type PeriodicService struct {
	name     string
	interval time.Duration
	fn       PeriodicFunc
}

// NewPeriodicService creates a periodic service. A non-positive interval
// defaults to one minute.
func NewPeriodicService(name string, interval time.Duration, fn PeriodicFunc) *PeriodicService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PeriodicService{name: name, interval: interval, fn: fn}
}

// Serve implements suture.Service.
func (p *PeriodicService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.fn(ctx); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("service", p.name).Msg("Periodic task failed")
			}
		}
	}
}

func (p *PeriodicService) String() string {
	return p.name
}

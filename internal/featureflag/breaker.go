// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package featureflag

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/metrics"
)

// BreakerConfig configures the circuit breaker around a provider.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	Timeout          time.Duration
	CallTimeout      time.Duration
}

// DefaultBreakerConfig returns production defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "feature-flags",
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
		CallTimeout:      500 * time.Millisecond,
	}
}

// BreakerProvider guards a Provider with a circuit breaker and a per-call
// timeout. While the breaker is open every evaluation returns an error, which
// the feature-flag guard treats as disabled.
type BreakerProvider struct {
	next        Provider
	breaker     *gobreaker.CircuitBreaker[bool]
	callTimeout time.Duration
}

// NewBreakerProvider wraps next.
func NewBreakerProvider(next Provider, cfg BreakerConfig) *BreakerProvider {
	if cfg.Name == "" {
		cfg.Name = DefaultBreakerConfig().Name
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordCircuitBreakerState(name, to.String())
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	}

	return &BreakerProvider{
		next:        next,
		breaker:     gobreaker.NewCircuitBreaker[bool](settings),
		callTimeout: cfg.CallTimeout,
	}
}

// IsEnabled implements Provider.
func (p *BreakerProvider) IsEnabled(ctx context.Context, flagID string, subject Subject) (bool, error) {
	return p.breaker.Execute(func() (bool, error) {
		cctx := ctx
		if p.callTimeout > 0 {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(ctx, p.callTimeout)
			defer cancel()
		}
		return p.next.IsEnabled(cctx, flagID, subject)
	})
}

// State returns the breaker state name.
func (p *BreakerProvider) State() string {
	return p.breaker.State().String()
}

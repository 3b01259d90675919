// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/metrics"
)

// Metadata keys set on forwarded messages.
const (
	MetadataEventType = "event_type"
	MetadataTenantID  = "tenant_id"
	MetadataSource    = "source"
)

// ForwarderConfig configures event forwarding to a message broker.
type ForwarderConfig struct {
	// TopicPrefix is prepended to the event type: "<prefix>.<type>".
	TopicPrefix string

	// BreakerFailures is the consecutive failure count that opens the breaker.
	BreakerFailures uint32

	// BreakerTimeout is how long the breaker stays open.
	BreakerTimeout time.Duration
}

// DefaultForwarderConfig returns production defaults.
func DefaultForwarderConfig() ForwarderConfig {
	return ForwarderConfig{
		TopicPrefix:     "tavola.events",
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// Forwarder republishes domain events to a watermill publisher so other
// processes can consume them. It is subscribed as a wildcard handler;
// failures are ordinary handler failures and never reach the publisher of
// the domain event.
type Forwarder struct {
	publisher message.Publisher
	prefix    string
	breaker   *gobreaker.CircuitBreaker[any]
}

// NewForwarder creates a forwarder around publisher.
func NewForwarder(publisher message.Publisher, cfg ForwarderConfig) (*Forwarder, error) {
	if publisher == nil {
		return nil, errors.New("publisher required")
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultForwarderConfig().TopicPrefix
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = DefaultForwarderConfig().BreakerFailures
	}

	name := "event-forwarder"
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
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

	return &Forwarder{
		publisher: publisher,
		prefix:    cfg.TopicPrefix,
		breaker:   gobreaker.NewCircuitBreaker[any](settings),
	}, nil
}

// Topic returns the broker topic for an event type.
func (f *Forwarder) Topic(eventType string) string {
	return f.prefix + "." + eventType
}

// Handle implements Handler.
func (f *Forwarder) Handle(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		metrics.EventsForwarded.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(MetadataEventType, event.Type)
	msg.Metadata.Set(MetadataTenantID, event.TenantID)
	if event.Source != "" {
		msg.Metadata.Set(MetadataSource, event.Source)
	}

	_, err = f.breaker.Execute(func() (any, error) {
		return nil, f.publisher.Publish(f.Topic(event.Type), msg)
	})

	switch {
	case err == nil:
		metrics.EventsForwarded.WithLabelValues("ok").Inc()
		metrics.CircuitBreakerRequests.WithLabelValues(f.breaker.Name(), "success").Inc()
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.EventsForwarded.WithLabelValues("rejected").Inc()
		metrics.CircuitBreakerRequests.WithLabelValues(f.breaker.Name(), "rejected").Inc()
	default:
		metrics.EventsForwarded.WithLabelValues("error").Inc()
		metrics.CircuitBreakerRequests.WithLabelValues(f.breaker.Name(), "failure").Inc()
	}
	return fmt.Errorf("forward event %s: %w", event.ID, err)
}

// State returns the breaker state name.
func (f *Forwarder) State() string {
	return f.breaker.State().String()
}

// Decode parses a forwarded message back into an Event.
func Decode(msg *message.Message) (Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return Event{}, fmt.Errorf("decode event %s: %w", msg.UUID, err)
	}
	return event, nil
}

// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

// Package metrics defines the Prometheus instrumentation for Tavola. Metrics
// are package-level and registered with the default registry on import.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being processed",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	// Module Runtime Metrics
	ModulesRegistered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "runtime_modules_registered",
			Help: "Number of modules whose register hook completed",
		},
	)

	ModuleRegisterDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runtime_module_register_duration_seconds",
			Help:    "Time spent in each module's register hook",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"module"},
	)

	RegisteredServices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "runtime_registered_services",
			Help: "Number of services in the service registry",
		},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_events_published_total",
			Help: "Total number of events published on the in-process bus",
		},
		[]string{"type"},
	)

	EventHandlerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_handler_failures_total",
			Help: "Total number of event handler failures",
		},
		[]string{"type", "reason"}, // reason: "error", "panic", "timeout"
	)

	EventHandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventbus_handler_duration_seconds",
			Help:    "Duration of individual event handler invocations",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"type"},
	)

	EventsForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_events_forwarded_total",
			Help: "Total number of events forwarded to the message broker",
		},
		[]string{"result"}, // result: "ok", "error", "rejected"
	)

	// Authorization Metrics
	AccessDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbac_access_denials_total",
			Help: "Total number of requests denied by the authorization chain",
		},
		[]string{"stage", "code"},
	)

	SessionsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_tokens_issued_total",
			Help: "Total number of session tokens issued",
		},
		[]string{"role"},
	)

	// Feature Flag Metrics
	FeatureFlagEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feature_flag_evaluations_total",
			Help: "Total number of feature flag evaluations",
		},
		[]string{"flag", "result"}, // result: "enabled", "disabled", "error"
	)

	// Tenancy Metrics
	ModuleActivations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenancy_module_activation_changes_total",
			Help: "Total number of tenant module activation changes",
		},
		[]string{"module", "action"}, // action: "activate", "deactivate"
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSTenants = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_tenants",
			Help: "Current number of tenants with at least one connection",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_dropped_total",
			Help: "Total number of WebSocket messages dropped because a client buffer was full",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// NATS Metrics
	NATSMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_published_total",
			Help: "Total number of messages published to NATS",
		},
	)

	NATSMessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_consumed_total",
			Help: "Total number of messages consumed from NATS",
		},
	)

	NATSMessagesDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_deduplicated_total",
			Help: "Total number of NATS messages skipped because this node published them",
		},
	)

	NATSMessagesParseFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_parse_failed_total",
			Help: "Total number of NATS messages that failed to parse",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordModuleRegistered records a completed register hook.
func RecordModuleRegistered(moduleID string, duration time.Duration) {
	ModulesRegistered.Inc()
	ModuleRegisterDuration.WithLabelValues(moduleID).Observe(duration.Seconds())
}

// RecordEventPublished records an event published on the bus.
func RecordEventPublished(eventType string) {
	EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordHandlerResult records one handler invocation. reason is empty on success.
func RecordHandlerResult(eventType, reason string, duration time.Duration) {
	EventHandlerDuration.WithLabelValues(eventType).Observe(duration.Seconds())
	if reason != "" {
		EventHandlerFailures.WithLabelValues(eventType, reason).Inc()
	}
}

// RecordAccessDenial records a request rejected by the authorization chain.
func RecordAccessDenial(stage, code string) {
	AccessDenials.WithLabelValues(stage, code).Inc()
}

// RecordFlagEvaluation records a feature flag lookup.
func RecordFlagEvaluation(flag string, enabled bool, err error) {
	result := "disabled"
	switch {
	case err != nil:
		result = "error"
	case enabled:
		result = "enabled"
	}
	FeatureFlagEvaluations.WithLabelValues(flag, result).Inc()
}

// RecordCircuitBreakerState maps a breaker state name to the state gauge.
func RecordCircuitBreakerState(name, state string) {
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	CircuitBreakerState.WithLabelValues(name).Set(v)
}

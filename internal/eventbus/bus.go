// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/metrics"
)

var (
	// ErrUndeclaredEventType is returned by Publish in strict mode when the
	// source module did not declare the event type in its manifest.
	ErrUndeclaredEventType = errors.New("event type not declared by source module")

	// ErrSealed is returned by Subscribe after Seal.
	ErrSealed = errors.New("event bus is sealed")

	// ErrHandlerTimeout is reported to logs and metrics when a handler does
	// not return within the configured timeout.
	ErrHandlerTimeout = errors.New("event handler timed out")
)

// Handler reacts to a domain event. Returned errors are logged by the bus
// and never reach the publisher.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f(ctx, event).
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Named attaches a name to a handler for logs.
func Named(name string, h Handler) Handler {
	return &namedHandler{name: name, Handler: h}
}

type namedHandler struct {
	name string
	Handler
}

func handlerName(h Handler) string {
	if n, ok := h.(*namedHandler); ok {
		return n.name
	}
	return fmt.Sprintf("%T", h)
}

// Config controls bus behavior.
type Config struct {
	// HandlerTimeout bounds each handler invocation. Zero disables the bound.
	HandlerTimeout time.Duration

	// StrictEventTypes rejects events whose Source module did not declare
	// the type. When false, undeclared types are logged and delivered.
	StrictEventTypes bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		HandlerTimeout: 5 * time.Second,
	}
}

// Bus is the in-process publish/subscribe channel between modules.
//
// Handlers for one event type run sequentially in subscription order, each
// to completion before the next starts. Wildcard handlers run after the
// typed handlers. Publish returns once every handler has settled.
type Bus struct {
	cfg Config

	mu       sync.RWMutex
	handlers map[string][]Handler
	wildcard []Handler
	declared map[string]map[string]struct{}
	sealed   bool
}

// New creates an empty bus.
func New(cfg Config) *Bus {
	return &Bus{
		cfg:      cfg,
		handlers: make(map[string][]Handler),
		declared: make(map[string]map[string]struct{}),
	}
}

// Subscribe appends h to the handlers for eventType.
func (b *Bus) Subscribe(eventType string, h Handler) error {
	if eventType == "" || h == nil {
		return errors.New("event type and handler are required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed {
		return fmt.Errorf("%w: subscribe %s", ErrSealed, eventType)
	}
	b.handlers[eventType] = append(b.handlers[eventType], h)

	logging.Debug().
		Str("event_type", eventType).
		Str("handler", handlerName(h)).
		Msg("Event handler subscribed")
	return nil
}

// SubscribeFunc subscribes a named function handler.
func (b *Bus) SubscribeFunc(eventType, name string, fn func(ctx context.Context, event Event) error) error {
	return b.Subscribe(eventType, Named(name, HandlerFunc(fn)))
}

// SubscribeAll registers a handler invoked for every event after the typed
// handlers.
func (b *Bus) SubscribeAll(h Handler) error {
	if h == nil {
		return errors.New("handler is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed {
		return fmt.Errorf("%w: subscribe wildcard", ErrSealed)
	}
	b.wildcard = append(b.wildcard, h)
	return nil
}

// Declare records the event types a module publishes.
func (b *Bus) Declare(moduleID string, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.declared[moduleID]
	if !ok {
		set = make(map[string]struct{}, len(eventTypes))
		b.declared[moduleID] = set
	}
	for _, t := range eventTypes {
		set[t] = struct{}{}
	}
}

// Seal rejects further subscriptions.
func (b *Bus) Seal() {
	b.mu.Lock()
	b.sealed = true
	b.mu.Unlock()
}

// HandlerCount returns the number of typed handlers for eventType.
func (b *Bus) HandlerCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

// Publish delivers event to every subscribed handler and returns after all
// of them have settled. Handler failures are logged and counted; they never
// surface here. Publish fails only for events without a type, or for
// undeclared types in strict mode.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	if err := event.normalize(); err != nil {
		return err
	}

	b.mu.RLock()
	typed := b.handlers[event.Type]
	handlers := make([]Handler, 0, len(typed)+len(b.wildcard))
	handlers = append(handlers, typed...)
	handlers = append(handlers, b.wildcard...)
	declared := b.isDeclaredLocked(event.Source, event.Type)
	b.mu.RUnlock()

	if !declared {
		if b.cfg.StrictEventTypes {
			return fmt.Errorf("%w: %s publishing %s", ErrUndeclaredEventType, event.Source, event.Type)
		}
		logging.Warn().
			Str("event_type", event.Type).
			Str("source", event.Source).
			Msg("Publishing event type not declared in source manifest")
	}

	metrics.RecordEventPublished(event.Type)

	// Handlers outlive the publisher's request; only the handler timeout
	// bounds them.
	hctx := context.WithoutCancel(ctx)
	for _, h := range handlers {
		b.invoke(hctx, h, event)
	}
	return nil
}

// isDeclaredLocked reports whether source declared eventType. Events without
// a source, or from a source that declared nothing, are not checked.
func (b *Bus) isDeclaredLocked(source, eventType string) bool {
	if source == "" {
		return true
	}
	set, ok := b.declared[source]
	if !ok {
		return true
	}
	_, ok = set[eventType]
	return ok
}

func (b *Bus) invoke(ctx context.Context, h Handler, event Event) {
	start := time.Now()
	reason := ""

	err := b.call(ctx, h, event)
	if err != nil {
		reason = "error"
		var stack string
		var pe *panicError
		switch {
		case errors.As(err, &pe):
			reason = "panic"
			stack = string(pe.stack)
		case errors.Is(err, ErrHandlerTimeout):
			reason = "timeout"
		}

		ev := logging.Ctx(ctx).Error().
			Err(err).
			Str("event_id", event.ID).
			Str("event_type", event.Type).
			Str("tenant_id", event.TenantID).
			Str("handler", handlerName(h)).
			Str("reason", reason)
		if stack != "" {
			ev = ev.Str("stack", stack)
		}
		ev.Msg("Event handler failed")
	}

	metrics.RecordHandlerResult(event.Type, reason, time.Since(start))
}

// call runs one handler, converting panics into errors and enforcing the
// handler timeout. A handler that outlives its timeout keeps running with a
// cancelled context; the bus moves on to the next handler.
func (b *Bus) call(ctx context.Context, h Handler, event Event) error {
	if b.cfg.HandlerTimeout <= 0 {
		return safeHandle(ctx, h, event)
	}

	hctx, cancel := context.WithTimeout(ctx, b.cfg.HandlerTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- safeHandle(hctx, h, event)
	}()

	select {
	case err := <-done:
		return err
	case <-hctx.Done():
		if errors.Is(hctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrHandlerTimeout, b.cfg.HandlerTimeout)
		}
		return hctx.Err()
	}
}

type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("handler panic: %v", p.value)
}

func safeHandle(ctx context.Context, h Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()
	return h.Handle(ctx, event)
}

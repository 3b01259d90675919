// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

// Package registry holds the process-wide directory of services published by
// modules. Services are keyed by the owning module ID and a service name, so
// "orders-module"/"OrdersService" and "financial"/"OrdersService" never
// collide.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/metrics"
)

var (
	// ErrServiceNotFound is returned when nothing is registered under a key.
	ErrServiceNotFound = errors.New("service not registered")

	// ErrServiceTypeMismatch is returned by Get when the registered instance
	// does not have the requested type.
	ErrServiceTypeMismatch = errors.New("service type mismatch")

	// ErrServiceReplaced is returned when a registration overwrote an existing
	// entry. The new instance is stored; callers decide whether that is fatal.
	ErrServiceReplaced = errors.New("service replaced existing registration")

	// ErrSealed is returned by Register after Seal.
	ErrSealed = errors.New("registry is sealed")

	// ErrInvalidKey is returned when the module ID or name is empty.
	ErrInvalidKey = errors.New("module id and service name are required")
)

// ServiceKey identifies a registered service.
type ServiceKey struct {
	Module string
	Name   string
}

func (k ServiceKey) String() string {
	return k.Module + ":" + k.Name
}

// Registry maps (module, name) pairs to service instances. It is safe for
// concurrent use; writes normally happen only during bootstrap.
type Registry struct {
	mu       sync.RWMutex
	services map[ServiceKey]any
	sealed   bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		services: make(map[ServiceKey]any),
	}
}

// Register stores instance under (moduleID, name). A second registration for
// the same key replaces the first and returns ErrServiceReplaced.
func (r *Registry) Register(moduleID, name string, instance any) error {
	if moduleID == "" || name == "" {
		return ErrInvalidKey
	}

	key := ServiceKey{Module: moduleID, Name: name}

	r.mu.Lock()
	if r.sealed {
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot register %s", ErrSealed, key)
	}
	_, existed := r.services[key]
	r.services[key] = instance
	count := len(r.services)
	r.mu.Unlock()

	metrics.RegisteredServices.Set(float64(count))

	if existed {
		logging.Warn().
			Str("module", moduleID).
			Str("service", name).
			Msg("Service registration replaced an existing instance")
		return fmt.Errorf("%w: %s", ErrServiceReplaced, key)
	}

	logging.Debug().
		Str("module", moduleID).
		Str("service", name).
		Msg("Service registered")
	return nil
}

// Lookup returns the instance registered under (moduleID, name).
func (r *Registry) Lookup(moduleID, name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	instance, ok := r.services[ServiceKey{Module: moduleID, Name: name}]
	return instance, ok
}

// Has reports whether anything is registered under (moduleID, name).
func (r *Registry) Has(moduleID, name string) bool {
	_, ok := r.Lookup(moduleID, name)
	return ok
}

// Keys returns every registered key, sorted by module then name.
func (r *Registry) Keys() []ServiceKey {
	r.mu.RLock()
	keys := make([]ServiceKey, 0, len(r.services))
	for k := range r.services {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Module != keys[j].Module {
			return keys[i].Module < keys[j].Module
		}
		return keys[i].Name < keys[j].Name
	})
	return keys
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services)
}

// Seal rejects further registrations.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Get resolves a service and asserts its type.
func Get[T any](r *Registry, moduleID, name string) (T, error) {
	var zero T
	instance, ok := r.Lookup(moduleID, name)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrServiceNotFound, ServiceKey{Module: moduleID, Name: name})
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s holds %T", ErrServiceTypeMismatch, ServiceKey{Module: moduleID, Name: name}, instance)
	}
	return typed, nil
}

// Key is a typed handle to a service. Modules export a Key for each service
// they publish so consumers resolve it without repeating strings or type
// assertions.
type Key[T any] struct {
	Module string
	Name   string
}

// NewKey creates a typed service handle.
func NewKey[T any](moduleID, name string) Key[T] {
	return Key[T]{Module: moduleID, Name: name}
}

// Get resolves the service from r.
func (k Key[T]) Get(r *Registry) (T, error) {
	return Get[T](r, k.Module, k.Name)
}

// Register stores instance under the key.
func (k Key[T]) Register(r *Registry, instance T) error {
	return r.Register(k.Module, k.Name, instance)
}

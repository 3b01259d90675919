// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package tenancy

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	tenants     map[string]*Tenant
	activations map[string]map[string]*Activation
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:     make(map[string]*Tenant),
		activations: make(map[string]map[string]*Activation),
	}
}

// GetTenant implements Store.
func (s *MemoryStore) GetTenant(_ context.Context, tenantID string) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

// PutTenant implements Store.
func (s *MemoryStore) PutTenant(_ context.Context, tenant *Tenant) error {
	cp := *tenant
	s.mu.Lock()
	s.tenants[tenant.ID] = &cp
	s.mu.Unlock()
	return nil
}

// ListTenants implements Store.
func (s *MemoryStore) ListTenants(_ context.Context) ([]*Tenant, error) {
	s.mu.RLock()
	out := make([]*Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		cp := *t
		out = append(out, &cp)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetActivation implements Store.
func (s *MemoryStore) GetActivation(_ context.Context, tenantID, moduleID string) (*Activation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.activations[tenantID][moduleID]
	if !ok {
		return nil, ErrActivationNotFound
	}
	cp := *a
	return &cp, nil
}

// PutActivation implements Store.
func (s *MemoryStore) PutActivation(_ context.Context, activation *Activation) error {
	cp := *activation
	s.mu.Lock()
	defer s.mu.Unlock()
	byModule, ok := s.activations[activation.TenantID]
	if !ok {
		byModule = make(map[string]*Activation)
		s.activations[activation.TenantID] = byModule
	}
	byModule[activation.ModuleID] = &cp
	return nil
}

// ListActivations implements Store.
func (s *MemoryStore) ListActivations(_ context.Context, tenantID string) ([]*Activation, error) {
	s.mu.RLock()
	out := make([]*Activation, 0, len(s.activations[tenantID]))
	for _, a := range s.activations[tenantID] {
		cp := *a
		out = append(out, &cp)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ModuleID < out[j].ModuleID })
	return out, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

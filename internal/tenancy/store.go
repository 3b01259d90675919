// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package tenancy

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/tavola/internal/manifest"
)

var (
	// ErrTenantNotFound is returned when a tenant does not exist.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrActivationNotFound is returned when a tenant has no record for a module.
	ErrActivationNotFound = errors.New("module activation not found")
)

// Status of a tenant module activation.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Tenant is a customer account and its subscription plan.
type Tenant struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Plan      manifest.PlanTier `json:"plan"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Activation records whether a module is enabled for a tenant.
type Activation struct {
	TenantID    string    `json:"tenantId"`
	ModuleID    string    `json:"moduleId"`
	Status      Status    `json:"status"`
	ActivatedAt time.Time `json:"activatedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Active reports whether the record enables the module.
func (a *Activation) Active() bool {
	return a != nil && a.Status == StatusActive
}

// Store persists tenants and their module activations.
type Store interface {
	GetTenant(ctx context.Context, tenantID string) (*Tenant, error)
	PutTenant(ctx context.Context, tenant *Tenant) error
	ListTenants(ctx context.Context) ([]*Tenant, error)

	GetActivation(ctx context.Context, tenantID, moduleID string) (*Activation, error)
	PutActivation(ctx context.Context, activation *Activation) error
	ListActivations(ctx context.Context, tenantID string) ([]*Activation, error)

	Close() error
}

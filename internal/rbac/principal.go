// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package rbac

import (
	"context"
	"slices"
)

// Principal is the authenticated caller. Permissions and ActiveModules are a
// snapshot taken when the session was issued or refreshed; guards read only
// this snapshot and never the activation store.
type Principal struct {
	UserID        string   `json:"userId"`
	TenantID      string   `json:"tenantId"`
	Role          string   `json:"role"`
	Permissions   []string `json:"permissions"`
	ActiveModules []string `json:"activeModules"`
}

// HasPermission reports whether the snapshot grants permissionID.
func (p *Principal) HasPermission(permissionID string) bool {
	return p != nil && slices.Contains(p.Permissions, permissionID)
}

// HasModule reports whether moduleID is active in the snapshot.
func (p *Principal) HasModule(moduleID string) bool {
	return p != nil && slices.Contains(p.ActiveModules, moduleID)
}

// Authenticated reports whether the principal identifies a tenant.
func (p *Principal) Authenticated() bool {
	return p != nil && p.TenantID != ""
}

type contextKey struct{}

// WithPrincipal attaches p to ctx. The principal is never modified after
// attachment; callers that need changes build a new one.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFromContext returns the principal attached to ctx.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(*Principal)
	return p, ok && p != nil
}

// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/metrics"
	"github.com/tomtom215/tavola/internal/rbac"
)

// ErrUnknownRole is returned when issuing a session for a role no policy mentions.
var ErrUnknownRole = errors.New("unknown role")

// GrantResolver maps a role to the declared permissions it holds.
type GrantResolver interface {
	Grants(role string, declared []string) ([]string, error)
	KnownRole(role string) bool
}

// ActivationSource reports which modules a tenant has active.
type ActivationSource interface {
	ActiveModules(ctx context.Context, tenantID string) ([]string, error)
}

// Session is an issued token and the snapshot it carries.
type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Principal *rbac.Principal `json:"principal"`
}

// Issuer materializes the authenticated principal from the system of record
// and signs it into a session token. This is the only place the activation
// store and the role policy are read on behalf of a user.
type Issuer struct {
	tokens      *TokenManager
	grants      GrantResolver
	activations ActivationSource
	declared    []string
}

// NewIssuer creates an issuer. declared is every permission ID any module
// declares; grants outside it are never issued.
func NewIssuer(tokens *TokenManager, grants GrantResolver, activations ActivationSource, declared []string) *Issuer {
	return &Issuer{
		tokens:      tokens,
		grants:      grants,
		activations: activations,
		declared:    append([]string(nil), declared...),
	}
}

// Issue builds a fresh snapshot for (userID, tenantID, role) and signs it.
func (i *Issuer) Issue(ctx context.Context, userID, tenantID, role string) (*Session, error) {
	if userID == "" || tenantID == "" {
		return nil, errors.New("user id and tenant id are required")
	}
	if !i.grants.KnownRole(role) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}

	perms, err := i.grants.Grants(role, i.declared)
	if err != nil {
		return nil, fmt.Errorf("resolve grants for %s: %w", role, err)
	}
	modules, err := i.activations.ActiveModules(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve active modules for %s: %w", tenantID, err)
	}

	p := &rbac.Principal{
		UserID:        userID,
		TenantID:      tenantID,
		Role:          role,
		Permissions:   perms,
		ActiveModules: modules,
	}
	token, expires, err := i.tokens.Sign(p)
	if err != nil {
		return nil, err
	}

	metrics.SessionsIssued.WithLabelValues(role).Inc()
	logging.Ctx(ctx).Debug().
		Str("user_id", userID).
		Str("tenant_id", tenantID).
		Str("role", role).
		Int("permissions", len(perms)).
		Strs("modules", modules).
		Msg("Session issued")

	return &Session{Token: token, ExpiresAt: expires, Principal: p}, nil
}

// Refresh reissues a session for an existing principal, picking up any
// activation or grant changes since it was issued.
func (i *Issuer) Refresh(ctx context.Context, p *rbac.Principal) (*Session, error) {
	return i.Issue(ctx, p.UserID, p.TenantID, p.Role)
}

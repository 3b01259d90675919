// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package rbac

import (
	"context"
	"net/http"

	"github.com/tomtom215/tavola/internal/api/response"
	"github.com/tomtom215/tavola/internal/featureflag"
	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/metrics"
)

// Stages of the guard chain, in evaluation order.
const (
	StageAuthentication = "authentication"
	StageModule         = "module"
	StagePermission     = "permission"
	StageFeatureFlag    = "feature_flag"
)

// Middleware is a chi-compatible request guard.
type Middleware func(http.Handler) http.Handler

// FlagProvider resolves feature flags for the feature-flag guard.
type FlagProvider interface {
	IsEnabled(ctx context.Context, flagID string, subject featureflag.Subject) (bool, error)
}

// Chain composes guards so the first argument runs first.
func Chain(guards ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(guards) - 1; i >= 0; i-- {
			next = guards[i](next)
		}
		return next
	}
}

// RequireAuth terminates with 401 UNAUTHORIZED unless an authenticated
// principal with a tenant is attached to the request.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authenticated(w, r); !ok {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireModule terminates with 403 MODULE_NOT_ACTIVE unless moduleID is in
// the principal's active module snapshot.
func RequireModule(moduleID string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := authenticated(w, r)
			if !ok {
				return
			}
			if !p.HasModule(moduleID) {
				deny(w, r, p, http.StatusForbidden, &logging.AccessDenial{
					Stage:  StageModule,
					Code:   response.ErrCodeModuleNotActive,
					Module: moduleID,
				}, "Module "+moduleID+" is not active for this tenant")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission terminates with 403 INSUFFICIENT_PERMISSIONS unless the
// principal's snapshot contains permissionID.
func RequirePermission(permissionID string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := authenticated(w, r)
			if !ok {
				return
			}
			if !p.HasPermission(permissionID) {
				deny(w, r, p, http.StatusForbidden, &logging.AccessDenial{
					Stage:      StagePermission,
					Code:       response.ErrCodeInsufficientPerms,
					Permission: permissionID,
				}, "Missing permission "+permissionID)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireModuleAndPermission is RequireModule wrapping RequirePermission.
// Module activation is always checked first.
func RequireModuleAndPermission(moduleID, permissionID string) Middleware {
	return func(next http.Handler) http.Handler {
		return RequireModule(moduleID)(RequirePermission(permissionID)(next))
	}
}

// RequireFeatureFlag terminates with 403 FEATURE_FLAG_DISABLED unless flags
// resolves flagID to enabled for the principal. A provider error is treated
// as disabled.
func RequireFeatureFlag(flags FlagProvider, flagID string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := authenticated(w, r)
			if !ok {
				return
			}

			enabled := false
			var err error
			if flags != nil {
				enabled, err = flags.IsEnabled(r.Context(), flagID, featureflag.Subject{
					TenantID: p.TenantID,
					UserID:   p.UserID,
					Role:     p.Role,
				})
			}
			metrics.RecordFlagEvaluation(flagID, enabled, err)
			if err != nil {
				logging.Ctx(r.Context()).Warn().
					Err(err).
					Str("flag", flagID).
					Msg("Feature flag provider failed, treating flag as disabled")
				enabled = false
			}

			if !enabled {
				deny(w, r, p, http.StatusForbidden, &logging.AccessDenial{
					Stage: StageFeatureFlag,
					Code:  response.ErrCodeFeatureFlagDisabled,
					Flag:  flagID,
				}, "Feature "+flagID+" is not enabled")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authenticated returns the principal or writes the 401 denial.
func authenticated(w http.ResponseWriter, r *http.Request) (*Principal, bool) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok || !p.Authenticated() {
		deny(w, r, nil, http.StatusUnauthorized, &logging.AccessDenial{
			Stage: StageAuthentication,
			Code:  response.ErrCodeUnauthorized,
		}, "Authentication required")
		return nil, false
	}
	return p, true
}

func deny(w http.ResponseWriter, r *http.Request, p *Principal, status int, d *logging.AccessDenial, message string) {
	d.Method = r.Method
	d.Path = r.URL.Path
	if p != nil {
		d.TenantID = p.TenantID
		d.UserID = p.UserID
		d.Role = p.Role
	}

	logging.LogAccessDenial(r.Context(), d)
	metrics.RecordAccessDenial(d.Stage, d.Code)
	response.WriteError(w, r, status, d.Code, message)
}

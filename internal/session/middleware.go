// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package session

import (
	"net/http"
	"strings"

	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/rbac"
)

// TokenCookie is the cookie checked when no Authorization header is sent.
const TokenCookie = "tavola_session"

// Authenticate attaches the principal from a valid session token. Requests
// without a token, or with an invalid one, continue unauthenticated; the
// rbac.RequireAuth guard rejects them where authentication is required.
func (m *TokenManager) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := extractToken(r)
		if tokenStr == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.Verify(tokenStr)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Ignoring invalid session token")
			next.ServeHTTP(w, r)
			return
		}

		ctx := rbac.WithPrincipal(r.Context(), claims.Principal())
		ctx = logging.ContextWithTenantID(ctx, claims.TenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken reads the bearer token from the Authorization header, the
// session cookie, or the access_token query parameter (browsers cannot set
// headers on WebSocket upgrades).
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token
			}
		}
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get("access_token")
}

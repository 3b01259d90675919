// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package realtime

import (
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/tavola/internal/api/response"
	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/rbac"
)

// Handler upgrades authenticated requests to tenant sockets.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler creates a socket handler. With no allowed origins the
// upgrader's same-origin check applies; "*" allows any origin.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	h := &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
		},
	}
	if len(allowedOrigins) > 0 {
		origins := slices.Clone(allowedOrigins)
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return false
			}
			if slices.Contains(origins, "*") || slices.Contains(origins, origin) {
				return true
			}
			logging.Warn().Str("origin", origin).Msg("websocket connection rejected from unauthorized origin")
			return false
		}
	}
	return h
}

// ServeHTTP binds the socket to the principal's tenant. The tenant comes
// only from the verified session, never from the request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, ok := rbac.PrincipalFromContext(r.Context())
	if !ok || !p.Authenticated() {
		response.NewResponseWriter(w, r).Unauthorized("authentication required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	NewClient(h.hub, conn, p.TenantID, p.UserID).Start()
}

// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/tavola/internal/eventbus"
	"github.com/tomtom215/tavola/internal/middleware"
	"github.com/tomtom215/tavola/internal/module"
	"github.com/tomtom215/tavola/internal/rbac"
	"github.com/tomtom215/tavola/internal/realtime"
	"github.com/tomtom215/tavola/internal/registry"
	"github.com/tomtom215/tavola/internal/session"
)

// Deps are the process components the HTTP surface is built from.
type Deps struct {
	Runtime  *module.Runtime
	Services *registry.Registry
	Flags    rbac.FlagProvider
	Bus      *eventbus.Bus

	// Hub serves /ws. Nil disables the socket endpoint.
	Hub *realtime.Hub

	Tokens *session.TokenManager
	Issuer *session.Issuer

	Middleware *ChiMiddlewareConfig

	// WebSocketOrigins restricts socket upgrades. Empty means same-origin.
	WebSocketOrigins []string

	// DevSessions mounts POST /api/v1/session, which issues a session for
	// any user, tenant and role. Never enabled in production.
	DevSessions bool
}

// Router builds the chi route tree.
type Router struct {
	deps          Deps
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router.
func NewRouter(deps Deps) *Router {
	return &Router{
		deps:          deps,
		handler:       NewHandler(deps.Runtime, deps.Issuer, deps.Hub),
		chiMiddleware: NewChiMiddleware(deps.Middleware),
	}
}

// SetupChi configures all HTTP routes. It fails when the module runtime has
// not booted, so no route is served for a partially initialized module set.
func (router *Router) SetupChi() (http.Handler, error) {
	r := chi.NewRouter()

	// Applied to ALL routes in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight

	r.Route("/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	if router.deps.Hub != nil {
		r.With(
			router.chiMiddleware.RateLimitCustom(RateLimitWebSocket),
			router.deps.Tokens.Authenticate,
			rbac.RequireAuth,
		).Handle("/ws", realtime.NewHandler(router.deps.Hub, router.deps.WebSocketOrigins))
	}

	var mountErr error
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.deps.Tokens.Authenticate)

		r.With(rbac.RequireAuth).Get("/modules", router.handler.Modules)
		r.With(rbac.RequireAuth).Get("/me", router.handler.Me)

		r.Route("/session", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitCustom(RateLimitSession))
			r.With(rbac.RequireAuth).Post("/refresh", router.handler.RefreshSession)
			if router.deps.DevSessions {
				r.Post("/", router.handler.CreateSession)
			}
		})

		r.Group(func(r chi.Router) {
			mountErr = router.deps.Runtime.MountRoutes(r, module.RouteEnv{
				Services: router.deps.Services,
				Flags:    router.deps.Flags,
				Bus:      router.deps.Bus,
				Realtime: router.emitter(),
			})
		})
	})
	if mountErr != nil {
		return nil, fmt.Errorf("mount module routes: %w", mountErr)
	}

	return r, nil
}

// emitter avoids handing modules a typed nil hub.
func (router *Router) emitter() module.Emitter {
	if router.deps.Hub == nil {
		return nil
	}
	return router.deps.Hub
}

// NewServer wraps the handler in an http.Server with the given timeouts.
func NewServer(addr string, handler http.Handler, read, write, idle time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       read,
		ReadHeaderTimeout: read,
		WriteTimeout:      write,
		IdleTimeout:       idle,
	}
}

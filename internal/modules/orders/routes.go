// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package orders

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/tavola/internal/api/response"
	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/module"
	"github.com/tomtom215/tavola/internal/rbac"
	"github.com/tomtom215/tavola/internal/registry"
)

// MountRoutes implements module.RouteMounter.
func (m *Module) MountRoutes(r chi.Router, env module.RouteEnv) {
	h := &handlers{services: env.Services}

	r.Route("/orders", func(r chi.Router) {
		r.With(rbac.RequireModuleAndPermission(ModuleID, PermCreate)).Post("/", h.create)
		r.With(rbac.RequireModuleAndPermission(ModuleID, PermRead)).Get("/", h.list)
		r.With(rbac.RequireModuleAndPermission(ModuleID, PermRead)).Get("/{orderID}", h.get)
		r.With(rbac.RequireModuleAndPermission(ModuleID, PermUpdateStatus)).Patch("/{orderID}/status", h.updateStatus)
	})
}

type handlers struct {
	services *registry.Registry
}

// service resolves the order service per request. A miss means the module
// was mounted without registering, which is answered with 500.
func (h *handlers) service(rw *response.ResponseWriter) (*Service, bool) {
	svc, err := ServiceKey.Get(h.services)
	if err != nil {
		rw.ServiceNotRegistered(err)
		return nil, false
	}
	return svc, true
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	rw := response.NewResponseWriter(w, r)
	svc, ok := h.service(rw)
	if !ok {
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())

	var req CreateRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}

	order, err := svc.Create(r.Context(), p.TenantID, p.UserID, &req)
	if err != nil {
		writeServiceError(rw, r, err)
		return
	}
	rw.Created(order)
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	rw := response.NewResponseWriter(w, r)
	svc, ok := h.service(rw)
	if !ok {
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())

	status := Status(r.URL.Query().Get("status"))
	if status != "" {
		if err := svc.Validate(&StatusRequest{Status: status}); err != nil {
			rw.BadRequest("Unknown status filter")
			return
		}
	}

	orders := svc.List(r.Context(), p.TenantID, status)
	rw.List(orders, len(orders))
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	rw := response.NewResponseWriter(w, r)
	svc, ok := h.service(rw)
	if !ok {
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())

	order, err := svc.Get(r.Context(), p.TenantID, chi.URLParam(r, "orderID"))
	if err != nil {
		writeServiceError(rw, r, err)
		return
	}
	rw.Success(order)
}

func (h *handlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	rw := response.NewResponseWriter(w, r)
	svc, ok := h.service(rw)
	if !ok {
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())

	var req StatusRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}

	order, err := svc.UpdateStatus(r.Context(), p.TenantID, p.UserID, chi.URLParam(r, "orderID"), req.Status)
	if err != nil {
		writeServiceError(rw, r, err)
		return
	}
	rw.Success(order)
}

func writeServiceError(rw *response.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		rw.ValidationError("Request validation failed", validationDetails(verrs))
	case errors.Is(err, ErrOrderNotFound):
		rw.NotFound("Order not found")
	case errors.Is(err, ErrInvalidTransition):
		rw.Conflict(err.Error())
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Order operation failed")
		rw.InternalError("Order operation failed")
	}
}

// validationDetails maps each failing field to the rule it broke.
func validationDetails(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Namespace()] = fe.Tag()
	}
	return out
}

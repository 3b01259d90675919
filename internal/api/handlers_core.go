// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/tavola/internal/api/response"
	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/manifest"
	"github.com/tomtom215/tavola/internal/rbac"
	"github.com/tomtom215/tavola/internal/session"
	"github.com/tomtom215/tavola/internal/tenancy"
)

// ModuleInfo is one catalog entry with the caller's activation state.
type ModuleInfo struct {
	*manifest.ModuleManifest
	Active bool `json:"active"`
}

// Modules lists the module catalog. Active reflects the caller's session
// snapshot, which is what every guard evaluates.
func (h *Handler) Modules(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())

	all := h.runtime.Catalog().All()
	out := make([]ModuleInfo, 0, len(all))
	for _, m := range all {
		out = append(out, ModuleInfo{ModuleManifest: m, Active: p.HasModule(m.ID)})
	}
	response.NewResponseWriter(w, r).List(out, len(out))
}

// Me returns the caller's principal snapshot.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	response.WriteSuccess(w, r, p)
}

// RefreshSession reissues the caller's session from the current activation
// state and role grants.
func (h *Handler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	sess, err := h.issuer.Refresh(r.Context(), p)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	setSessionCookie(w, r, sess)
	response.WriteSuccess(w, r, sess)
}

// CreateSessionRequest is the body of POST /api/v1/session.
type CreateSessionRequest struct {
	UserID   string `json:"userId" validate:"required,max=128"`
	TenantID string `json:"tenantId" validate:"required,max=128"`
	Role     string `json:"role" validate:"required,max=64"`
}

// CreateSession issues a session for any user. Only mounted with dev
// sessions enabled; in production sessions come from the identity provider.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	rw := response.NewResponseWriter(w, r)

	var req CreateSessionRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		details := map[string]string{}
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
		}
		rw.ValidationError("Request validation failed", details)
		return
	}

	sess, err := h.issuer.Issue(r.Context(), req.UserID, req.TenantID, req.Role)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	setSessionCookie(w, r, sess)
	rw.Created(sess)
}

func (h *Handler) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	rw := response.NewResponseWriter(w, r)
	switch {
	case errors.Is(err, session.ErrUnknownRole):
		rw.BadRequest("Unknown role")
	case errors.Is(err, tenancy.ErrTenantNotFound):
		rw.NotFound("Tenant not found")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Session issuance failed")
		rw.InternalError("Session issuance failed")
	}
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.TokenCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
